package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nayeem-ahmad/ndc95/internal/application/verification"
	"github.com/nayeem-ahmad/ndc95/internal/config"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/dynamo"
	jwtinfra "github.com/nayeem-ahmad/ndc95/internal/infrastructure/jwt"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/mail"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/stream"
	"github.com/nayeem-ahmad/ndc95/internal/scheduler"
	transporthttp "github.com/nayeem-ahmad/ndc95/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// SMTP mailer.
	mailer, err := mail.NewSMTPMailer(cfg)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	codeRepo := dynamo.NewVerificationCodeRepo(dynamoClient, cfg.DynamoTables.VerificationCodes)
	verificationSvc := verification.NewService(codeRepo, mailer)

	// Creation trigger: react to every new verification code record.
	streamsClient := dynamo.NewStreamsClient(cfg)
	consumer := stream.NewConsumer(dynamoClient, streamsClient, cfg.DynamoTables.VerificationCodes,
		cfg.StreamPollInterval, verificationSvc.HandleCreated)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("stream consumer: %v", err)
		}
	}()

	// Scheduled trigger: hourly expired-code sweep.
	go scheduler.Every(ctx, cfg.CleanupInterval, "cleanup-expired-codes", func(ctx context.Context) error {
		_, err := verificationSvc.CleanupExpired(ctx)
		return err
	})

	deps := &transporthttp.Deps{
		VerificationCodeRepo: codeRepo,
		Mailer:               mailer,
		JWTProvider:          jwtProvider,
	}
	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel() // stops the stream consumer and the cleanup schedule
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
