// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/myflix/internal/model"
)

// AccountRepository provides access to accounts and their favorites sets.
// Every mutation is a single atomic statement against the store.
type AccountRepository interface {
	// Create inserts a new account if the username is free; errs.ErrAlreadyExists otherwise.
	Create(ctx context.Context, a *model.NewAccount) (*model.Account, error)
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// UpdateProfile applies a patch and returns the updated account.
	// A password change bumps the token version in the same statement.
	UpdateProfile(ctx context.Context, username string, p model.ProfilePatch) (*model.Account, error)
	// Delete removes the account and its favorites.
	Delete(ctx context.Context, username string) error
	// AddFavorite adds movieID to the favorites set (set union).
	AddFavorite(ctx context.Context, username, movieID string) (*model.Account, error)
	// RemoveFavorite ensures movieID is absent from the favorites set.
	RemoveFavorite(ctx context.Context, username, movieID string) (*model.Account, error)
	// TokenVersion returns the current token version of the account.
	TokenVersion(ctx context.Context, username string) (int64, error)
}
