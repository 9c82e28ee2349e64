// Command promote is a one-off operator utility: it sets role=superadmin on
// every user document matching the given email, in one atomic batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nayeem-ahmad/ndc95/internal/application/admin"
	"github.com/nayeem-ahmad/ndc95/internal/config"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/dynamo"
)

func main() {
	email := flag.String("email", "", "email address of the user(s) to promote")
	flag.Parse()
	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote -email <address>")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	cfg := config.Load()

	dynamoClient := dynamo.NewClient(cfg)
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	svc := admin.NewService(userRepo)

	n, err := svc.PromoteToSuperadmin(context.Background(), *email)
	if err != nil {
		log.Fatalf("Error updating role: %v", err)
	}
	if n == 0 {
		fmt.Printf("No user found with email %s\n", *email)
		return
	}
	fmt.Printf("Successfully updated role to superadmin for %d user(s)\n", n)
}
