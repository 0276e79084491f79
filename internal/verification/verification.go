// Package verification keeps the ledger of short-lived numeric codes that gate
// registration, password reset and email changes.
package verification

import (
	"context"
	"strings"
	"time"

	"github.com/delordemm1/refshare-api/internal/apperror"
)

var (
	ErrInvalidOrExpired = apperror.ErrInvalidArgument.Derive("ErrInvalidOrExpiredCode", "Invalid or expired code", "")
	ErrInvalidPurpose   = apperror.ErrInvalidArgument.Derive("ErrInvalidAction", "Invalid action. Use: register, password, draft", "")
	ErrInvalidPolicy    = apperror.ErrInvalidArgument.Derive("ErrInvalidPolicy", "verification policy must be extend or consume", "")
)

// Purpose names the flow a code unlocks.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposePassword Purpose = "password"
	PurposeDraft    Purpose = "draft"
)

// ParsePurpose maps client input onto the closed set of purposes.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(strings.ToLower(strings.TrimSpace(s))); p {
	case PurposeRegister, PurposePassword, PurposeDraft:
		return p, nil
	}
	return "", ErrInvalidPurpose
}

// Scope identifies whom a code was issued to: an existing user, or a bare email address
// that has no account yet.
type Scope string

func UserScope(userID string) Scope { return Scope("user:" + userID) }

func EmailScope(email string) Scope {
	return Scope("email:" + strings.ToLower(strings.TrimSpace(email)))
}

// Policy selects how a verified code behaves afterwards.
type Policy string

const (
	// PolicyExtend marks a code used on first verification and keeps it valid for the
	// confirmed window, so the follow-up request can present the same code again.
	PolicyExtend Policy = "extend"
	// PolicyConsume leaves the code untouched on verification; the caller consumes it
	// right after the dependent mutation, and a second verification fails.
	PolicyConsume Policy = "consume"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyExtend, PolicyConsume:
		return p, nil
	case "":
		return PolicyExtend, nil
	}
	return "", ErrInvalidPolicy
}

// Code is one issued verification code.
type Code struct {
	ID        string    `db:"id"`
	Scope     Scope     `db:"scope"`
	Purpose   Purpose   `db:"purpose"`
	Value     string    `db:"code"`
	Used      bool      `db:"used"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Store persists codes. Every lookup must ignore rows whose expiry has passed.
type Store interface {
	// Replace stores c as the only code for its scope and purpose. Concurrent calls for
	// the same pair must still leave exactly one row.
	Replace(ctx context.Context, c *Code) error
	// Find returns the newest live code matching scope, purpose and value. Used codes
	// match only when includeUsed is set.
	Find(ctx context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error)
	// MarkUsed flips used from false to true and moves the expiry. It reports false when
	// the code was already used or is gone.
	MarkUsed(ctx context.Context, id string, expiresAt, now time.Time) (bool, error)
	// Take deletes the live code matching scope, purpose and value and returns it. Of two
	// concurrent calls for the same code only one gets it; the other gets nil.
	Take(ctx context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error)
}

// Delivery is what the dispatcher needs to tell the recipient about a code.
type Delivery struct {
	Destination string
	Purpose     Purpose
	Code        string
	ExpiresIn   time.Duration
}

// Dispatcher delivers codes to their recipient.
type Dispatcher interface {
	SendCode(ctx context.Context, d Delivery) error
}
