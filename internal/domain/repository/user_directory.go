package repository

import (
	"context"

	"github.com/wekeepgrowing/resume-billing/internal/domain/entity"
)

// UserDirectory looks up identity-provider accounts.
type UserDirectory interface {
	// FindUserByEmail matches email case-insensitively. It returns (nil, nil)
	// when no account has that email.
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)
}
