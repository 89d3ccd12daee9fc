// Package service contains the account, favorites and catalog application services.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/myflix/internal/crypto"
	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/limiter"
	"github.com/and161185/myflix/internal/model"
	"github.com/and161185/myflix/internal/repository"
)

// RegisterInput is a registration request. Birthday is YYYY-MM-DD or empty.
type RegisterInput struct {
	Username string `json:"username" validate:"required,alphanum,max=64"`
	Password string `json:"password" validate:"required,min=8,max=256"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
}

// ProfileInput lists profile fields to change; nil means unchanged.
type ProfileInput struct {
	Password *string `json:"password" validate:"omitnil,min=8,max=256"`
	Email    *string `json:"email" validate:"omitnil,email,max=254"`
	Birthday *string `json:"birthday" validate:"omitnil,datetime=2006-01-02"`
}

// TokenIssuer signs session tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(a *model.Account) (model.Tokens, error)
}

// AccountService is the credential manager.
type AccountService interface {
	// Register validates input and creates an account storing only a password hash.
	Register(ctx context.Context, in RegisterInput) (*model.Account, error)
	// Authenticate verifies credentials (rate limited per username+ip) and issues a token.
	Authenticate(ctx context.Context, username, password, ip string) (model.Tokens, *model.Account, error)
	// Get returns the account read view.
	Get(ctx context.Context, username string) (*model.Account, error)
	// UpdateProfile re-validates and applies provided fields.
	UpdateProfile(ctx context.Context, username string, in ProfileInput) (*model.Account, error)
	// DeleteAccount removes the account and its favorites.
	DeleteAccount(ctx context.Context, username string) error
	// CheckSession rejects tokens of deleted accounts or older token versions.
	CheckSession(ctx context.Context, id model.Identity) error
}

type AccountServiceImpl struct {
	users  repository.AccountRepository
	tokens TokenIssuer
	lim    limiter.Limiter

	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(users repository.AccountRepository, tokens TokenIssuer, lim limiter.Limiter) *AccountServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	return &AccountServiceImpl{users: users, tokens: tokens, lim: lim}
}

// Register creates a new account. The existence pre-check only gives an early,
// friendly rejection; the store's unique constraint decides races.
func (s *AccountServiceImpl) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	switch _, err := s.users.GetByUsername(ctx, in.Username); {
	case err == nil:
		return nil, errs.ErrAlreadyExists
	case !errors.Is(err, errs.ErrNotFound):
		return nil, err
	}

	hash, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, &model.NewAccount{
		ID:       id,
		Username: in.Username,
		PwdHash:  hash,
		Email:    in.Email,
		Birthday: parseDate(in.Birthday),
	})
}

// Authenticate checks credentials with rate limiting by (username, ip).
func (s *AccountServiceImpl) Authenticate(ctx context.Context, username, password, ip string) (model.Tokens, *model.Account, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, nil, fmt.Errorf("%w: limiter: %w", errs.ErrDependency, err)
	}
	if !allowed {
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	a, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, nil, err
	}

	var ok bool
	if a != nil {
		ok, err = pkgcrypto.VerifyPassword(password, a.PwdHash)
		if err != nil {
			return model.Tokens{}, nil, fmt.Errorf("verify password: %w", err)
		}
	} else {
		// same hashing cost whether or not the user exists
		_, _ = pkgcrypto.VerifyPassword(password, s.dummy())
	}

	if !ok {
		blocked, _, ferr := s.lim.Failure(ctx, username, ipHash)
		if ferr != nil {
			// an unrecorded failure would lift the lockout, so fail closed
			return model.Tokens{}, nil, fmt.Errorf("%w: limiter: %w", errs.ErrDependency, ferr)
		}
		if blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		return model.Tokens{}, nil, errs.ErrInvalidCredentials
	}

	// best-effort reset
	_ = s.lim.Success(ctx, username, ipHash)

	tok, err := s.tokens.Issue(a)
	if err != nil {
		return model.Tokens{}, nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, a, nil
}

func (s *AccountServiceImpl) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = pkgcrypto.HashPassword("not-a-real-password")
	})
	return s.dummyHash
}

// Get returns the account by username.
func (s *AccountServiceImpl) Get(ctx context.Context, username string) (*model.Account, error) {
	return s.users.GetByUsername(ctx, username)
}

// UpdateProfile validates provided fields, re-hashes a new password and applies the patch atomically.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, username string, in ProfileInput) (*model.Account, error) {
	if in.Password == nil && in.Email == nil && in.Birthday == nil {
		return nil, errs.NewValidation("body", "At least one of password, email or birthday is required.")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var patch model.ProfilePatch
	if in.Password != nil {
		hash, err := pkgcrypto.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		patch.PwdHash = &hash
	}
	patch.Email = in.Email
	if in.Birthday != nil {
		patch.Birthday = parseDate(*in.Birthday)
	}
	return s.users.UpdateProfile(ctx, username, patch)
}

// DeleteAccount removes the account.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, username string) error {
	return s.users.Delete(ctx, username)
}

// CheckSession compares the token's version with the stored one.
func (s *AccountServiceImpl) CheckSession(ctx context.Context, id model.Identity) error {
	ver, err := s.users.TokenVersion(ctx, id.Username)
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("%w: account gone", errs.ErrInvalidToken)
	}
	if err != nil {
		return err
	}
	if ver != id.Version {
		return fmt.Errorf("%w: revoked", errs.ErrInvalidToken)
	}
	return nil
}
