package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/nayeem-ahmad/ndc95/internal/domain"
	"github.com/nayeem-ahmad/ndc95/internal/infrastructure/mail"
)

// IssueRequest creates or refreshes a verification code for a recipient.
// Code is optional; an empty value means a fresh 6-digit code is generated.
type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"`
}

type Service interface {
	// Issue writes a new code record for the recipient. The write is what
	// triggers delivery; Issue itself never sends mail.
	Issue(ctx context.Context, req IssueRequest) (*domain.VerificationCode, error)
	// HandleCreated reacts to a newly created record: one delivery attempt,
	// one outcome update.
	HandleCreated(ctx context.Context, code *domain.VerificationCode) error
	// CleanupExpired deletes every expired record and returns the count.
	CleanupExpired(ctx context.Context) (int, error)
	// Get returns the stored record for a recipient.
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
}

type codeStore interface {
	Put(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
	SetOutcome(ctx context.Context, email string, o domain.Outcome) error
	Scan(ctx context.Context) ([]domain.VerificationCode, error)
	BatchDelete(ctx context.Context, emails []string) error
}

type service struct {
	codes  codeStore
	mailer mail.Mailer
}

func NewService(codes codeStore, mailer mail.Mailer) Service {
	return &service{codes: codes, mailer: mailer}
}

func (s *service) Issue(ctx context.Context, req IssueRequest) (*domain.VerificationCode, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}

	code := req.Code
	if code == "" {
		var err error
		code, err = generateCode()
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	v := &domain.VerificationCode{
		Email:     req.Email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.CodeValidity).Format(time.RFC3339),
	}
	if err := s.codes.Put(ctx, v); err != nil {
		return nil, err
	}
	slog.Info("verification code issued", "email", req.Email)
	return v, nil
}

func (s *service) HandleCreated(ctx context.Context, code *domain.VerificationCode) error {
	slog.Info("sending verification code", "email", code.Email)

	subject, html, text, err := renderMessage(code.Code)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, code.Email, subject, html, text); err != nil {
		slog.Error("verification email failed", "email", code.Email, "err", err)
		if uerr := s.codes.SetOutcome(ctx, code.Email, domain.FailedWith(err.Error())); uerr != nil {
			// The failure reason is lost from the record but stays in the
			// logs; the next issuance for this recipient starts clean.
			slog.Warn("could not record delivery failure", "email", code.Email, "err", uerr)
		}
		return fmt.Errorf("send verification email to %s: %w", code.Email, domain.ErrDelivery)
	}

	if err := s.codes.SetOutcome(ctx, code.Email, domain.DeliveredAt(time.Now().UTC())); err != nil {
		// The mail is already out; leaving the record unannotated is the
		// accepted inconsistency rather than risking a second send.
		slog.Warn("could not record delivery success", "email", code.Email, "err", err)
		return nil
	}
	slog.Info("verification email sent", "email", code.Email)
	return nil
}

func (s *service) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	codes, err := s.codes.Scan(ctx)
	if err != nil {
		return 0, err
	}

	var expired []string
	for i := range codes {
		expires, perr := codes[i].ExpiresAtTime()
		if perr != nil {
			slog.Warn("skipping record with unparseable expiry", "email", codes[i].Email, "err", perr)
			continue
		}
		if expires.Before(now) {
			expired = append(expired, codes[i].Email)
		}
	}

	if len(expired) == 0 {
		slog.Info("no expired verification codes to delete")
		return 0, nil
	}

	if err := s.codes.BatchDelete(ctx, expired); err != nil {
		return 0, err
	}
	slog.Info("deleted expired verification codes", "count", len(expired))
	return len(expired), nil
}

func (s *service) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	return s.codes.Get(ctx, email)
}

// generateCode draws a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
