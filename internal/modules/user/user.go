package user

import (
	"time"
)

// Role is the coarse permission level of an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// DefaultAvatar is assigned to accounts that never uploaded or imported one.
const DefaultAvatar = "default-avatar.png"

// User represents an account. A nil VerifiedAt means the email address has not been
// confirmed yet; a nil PasswordHash means the account only signs in through OAuth.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash *string    `db:"password_hash"`
	Username     *string    `db:"username"`
	Avatar       *string    `db:"avatar"`
	Role         Role       `db:"role"`
	VerifiedAt   *time.Time `db:"verified_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (u *User) IsVerified() bool { return u.VerifiedAt != nil }

func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Identity links a user to an account at an external provider.
type Identity struct {
	Provider   Provider  `db:"provider"`
	ProviderID string    `db:"provider_id"`
	UserID     string    `db:"user_id"`
	Email      *string   `db:"email"`
	CreatedAt  time.Time `db:"created_at"`
}

// Changes lists the columns an update touches. Nil fields are left as they are.
type Changes struct {
	Email        *string
	Username     *string
	Avatar       *string
	PasswordHash *string
	VerifiedAt   *time.Time
}

func (c Changes) empty() bool {
	return c.Email == nil && c.Username == nil && c.Avatar == nil && c.PasswordHash == nil && c.VerifiedAt == nil
}

// Profile is the signed-in user's view of their own account.
type Profile struct {
	User       *User
	Identities []Identity
	Liked      []string
	Disliked   []string
}

// ClientInfo describes the device a session is issued to.
type ClientInfo struct {
	IP        string
	UserAgent string
}
