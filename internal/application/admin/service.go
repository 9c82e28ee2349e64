package admin

import (
	"context"
	"log/slog"

	"github.com/nayeem-ahmad/ndc95/internal/domain"
)

type userStore interface {
	ListByEmail(ctx context.Context, email string) ([]domain.User, error)
	SetRoleBatch(ctx context.Context, userIDs []string, role string) error
}

// Service covers one-off operator maintenance against the users table.
type Service interface {
	// PromoteToSuperadmin sets role=superadmin on every user document
	// matching the email, in one atomic batch. Returns the number of
	// documents updated; zero matches is a normal outcome.
	PromoteToSuperadmin(ctx context.Context, email string) (int, error)
}

type service struct {
	users userStore
}

func NewService(users userStore) Service {
	return &service{users: users}
}

func (s *service) PromoteToSuperadmin(ctx context.Context, email string) (int, error) {
	users, err := s.users.ListByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		slog.Info("no user found", "email", email)
		return 0, nil
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		slog.Info("updating user", "user_id", u.UserID, "email", u.Email)
		ids = append(ids, u.UserID)
	}
	if err := s.users.SetRoleBatch(ctx, ids, domain.RoleSuperadmin); err != nil {
		return 0, err
	}
	return len(ids), nil
}
