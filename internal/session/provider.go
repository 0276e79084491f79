package session

import (
	"context"
	"time"

	"github.com/delordemm1/refshare-api/internal/apperror"
)

// ErrNotFound is returned when a refresh token has no live record, either because it was
// never issued, has expired, was deleted on logout, or was already rotated away.
var ErrNotFound = apperror.ErrNotFound.Derive("ErrSessionNotFound", "session not found", "")

// Record is a persisted refresh token. Token is the raw JWT; only its hash is stored.
type Record struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Store persists refresh tokens.
type Store interface {
	// Create persists a freshly minted refresh token.
	Create(ctx context.Context, rec *Record) error

	// Lookup returns the live record for token.
	Lookup(ctx context.Context, token string) (*Record, error)

	// Rotate atomically replaces oldToken with next. It fails with ErrNotFound when
	// oldToken is no longer live, so of two concurrent rotations only one wins.
	Rotate(ctx context.Context, oldToken string, next *Record) error

	// Delete removes the record for token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForUser removes every refresh token of the user.
	DeleteForUser(ctx context.Context, userID string) error
}
