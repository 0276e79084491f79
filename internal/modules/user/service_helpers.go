package user

import (
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword uses bcrypt to generate a hash from a plaintext password.
func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// checkPassword compares a plaintext password with the user's bcrypt hash.
// Accounts without a password never match.
func checkPassword(user *User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateSecureToken creates a random, URL-safe string from n random bytes.
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// sanitizeReturnTo accepts a relative path or an absolute URL on the frontend origin and
// returns an absolute URL on that origin. Anything else falls back to the frontend root,
// which keeps the OAuth callback from becoming an open redirect.
func sanitizeReturnTo(raw, frontendURL string) string {
	base, err := url.Parse(frontendURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		base = &url.URL{Path: "/"}
	}
	fallback := base.String()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	switch {
	case u.Scheme == "" && u.Host == "":
		// Relative path; protocol-relative and backslash forms are rejected.
		if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
			return fallback
		}
		return base.ResolveReference(&url.URL{Path: u.Path, RawQuery: u.RawQuery, Fragment: u.Fragment}).String()
	case (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, base.Host) && u.Scheme == base.Scheme:
		return u.String()
	default:
		return fallback
	}
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
