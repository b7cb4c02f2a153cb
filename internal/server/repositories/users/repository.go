// Package users is the credential store: it persists user records and
// answers lookups by name and ID. Not-found is always common.ErrorNotFound.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts user. A taken name yields common.ErrUserExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByName looks up a user regardless of confirmation state.
	GetUserByName(ctx context.Context, name string) (*models.User, error)

	GetConfirmedByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetConfirmedByName(ctx context.Context, name string) (*models.User, error)

	// SetConfirmed marks the user confirmed. It is idempotent; a missing
	// row yields common.ErrorNotFound.
	SetConfirmed(ctx context.Context, id uuid.UUID) error

	// UpdatePasswordHash replaces the stored hash, e.g. after the hashing
	// parameters were raised. A missing row yields common.ErrorNotFound.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}
