// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access token and its expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Identity is what a verified session token asserts about its holder.
type Identity struct {
	Username string
	Version  int64 // token_version at issue time
}

// Account represents a registered user. The password is never stored in plaintext.
type Account struct {
	ID           uuid.UUID // PK
	Username     string    // unique, immutable
	PwdHash      string    // PHC-encoded Argon2id
	Email        string
	Birthday     *time.Time // date only, optional
	Favorites    []string   // set of movie ids
	TokenVersion int64      // bumped on password change
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount is a validated registration intent.
type NewAccount struct {
	ID       uuid.UUID
	Username string
	PwdHash  string
	Email    string
	Birthday *time.Time
}

// ProfilePatch lists the columns to change; nil fields are left untouched.
type ProfilePatch struct {
	PwdHash  *string
	Email    *string
	Birthday *time.Time
}

// Genre describes a movie genre in the catalog.
type Genre struct {
	Name        string
	Description string
}

// Director describes a movie director in the catalog.
type Director struct {
	Name  string
	Bio   string
	Birth *time.Time
	Death *time.Time
}

// Movie is a read-only catalog entry.
type Movie struct {
	ID          uuid.UUID
	Title       string
	Description string
	Genre       Genre
	Director    Director
	ImagePath   string
	Featured    bool
}
