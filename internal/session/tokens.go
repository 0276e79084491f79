package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/delordemm1/refshare-api/internal/apperror"
)

// ErrInvalidToken is returned for a token with a bad signature, a wrong type, or an
// elapsed expiry.
var ErrInvalidToken = apperror.ErrUnauthorized.Derive("ErrInvalidToken", "Invalid or expired token", "")

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenConfig configures JWT signing. Access and refresh tokens use distinct secrets so
// one can never be presented as the other.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Tokens mints and parses HS256 JWTs.
type Tokens struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokens creates a token minter. Zero TTLs fall back to 15 minutes and 7 days.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("session: access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Tokens{cfg: cfg, now: time.Now}, nil
}

// Mint issues a new pair for the user. Every call yields distinct strings because each
// token carries its own jti.
func (t *Tokens) Mint(userID string) (Pair, error) {
	now := t.now()
	access, accessExp, err := t.sign(userID, t.cfg.AccessSecret, now, t.cfg.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := t.sign(userID, t.cfg.RefreshSecret, now, t.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseAccess verifies an access token and returns its subject.
func (t *Tokens) ParseAccess(token string) (string, error) {
	return t.parse(token, t.cfg.AccessSecret)
}

// ParseRefresh verifies a refresh token and returns its subject.
func (t *Tokens) ParseRefresh(token string) (string, error) {
	return t.parse(token, t.cfg.RefreshSecret)
}

func (t *Tokens) sign(userID, secret string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	jti, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate jti: %w", err)
	}
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *Tokens) parse(token, secret string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", ErrInvalidToken.WithCause(err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
