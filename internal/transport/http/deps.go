package http

import (
	"context"

	"github.com/nayeem-ahmad/ndc95/internal/domain"
	jwtinfra "github.com/nayeem-ahmad/ndc95/internal/infrastructure/jwt"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/mail"
)

// VerificationCodeRepository is the minimal interface the router requires
// from the code record store.
type VerificationCodeRepository interface {
	Put(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
	SetOutcome(ctx context.Context, email string, o domain.Outcome) error
	Scan(ctx context.Context) ([]domain.VerificationCode, error)
	BatchDelete(ctx context.Context, emails []string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	VerificationCodeRepo VerificationCodeRepository
	Mailer               mail.Mailer
	JWTProvider          *jwtinfra.Provider
}
