package user

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/delordemm1/refshare-api/internal/config"
)

// OAuthProfile is the provider account data the service needs, normalized across providers.
type OAuthProfile struct {
	ProviderID string
	Email      string
	Name       string
	Avatar     string
}

// OAuthProvider drives the authorization code flow of one provider.
type OAuthProvider interface {
	// AuthCodeURL builds the consent URL. verifier is the PKCE verifier kept in the state.
	AuthCodeURL(state, verifier string) string
	// Exchange trades the callback code for the provider profile.
	Exchange(ctx context.Context, callback OAuthCallback, verifier string) (*OAuthProfile, error)
}

// NewOAuthProviders builds the providers that have credentials configured.
func NewOAuthProviders(cfg *config.Config) (map[Provider]OAuthProvider, error) {
	providers := map[Provider]OAuthProvider{}
	if cfg.Google.ClientID != "" {
		providers[ProviderGoogle] = &googleProvider{
			config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
		}
	}
	if cfg.Apple.ClientID != "" {
		key, err := parseApplePrivateKey(cfg.Apple.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse apple private key: %w", err)
		}
		providers[ProviderApple] = &appleProvider{
			config: &oauth2.Config{
				ClientID:    cfg.Apple.ClientID,
				RedirectURL: cfg.Apple.RedirectURL,
				Endpoint: oauth2.Endpoint{
					AuthURL:   "https://appleid.apple.com/auth/authorize",
					TokenURL:  "https://appleid.apple.com/auth/token",
					AuthStyle: oauth2.AuthStyleInParams,
				},
				Scopes: []string{"name", "email"},
			},
			teamID: cfg.Apple.TeamID,
			keyID:  cfg.Apple.KeyID,
			key:    key,
		}
	}
	return providers, nil
}

// --- Google ---

type googleProvider struct {
	config *oauth2.Config
}

func (g *googleProvider) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange validates the id_token returned with the access token against Google's keys
// and reads the profile claims from it.
func (g *googleProvider) Exchange(ctx context.Context, callback OAuthCallback, verifier string) (*OAuthProfile, error) {
	tok, err := g.config.Exchange(ctx, callback.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange google code: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, errors.New("id_token not found in google token response")
	}

	payload, err := idtoken.Validate(ctx, raw, g.config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("validate google id_token: %w", err)
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	claim := func(name string) string {
		v, _ := payload.Claims[name].(string)
		return strings.TrimSpace(v)
	}
	profile := &OAuthProfile{
		ProviderID: payload.Subject,
		Name:       claim("name"),
		Avatar:     claim("picture"),
	}
	// Unverified Google emails must not be trusted for account matching.
	if verified, _ := payload.Claims["email_verified"].(bool); verified {
		profile.Email = normalizeEmail(claim("email"))
	}
	return profile, nil
}

// --- Apple ---

type appleProvider struct {
	config *oauth2.Config
	teamID string
	keyID  string
	key    *ecdsa.PrivateKey
}

func parseApplePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	// Keys from env files often carry literal "\n" sequences.
	formatted := strings.ReplaceAll(key, `\n`, "\n")
	return jwt.ParseECPrivateKeyFromPEM([]byte(formatted))
}

// AuthCodeURL asks Apple to POST the callback, which it requires when the name or email
// scope is requested. Apple does not support PKCE, so verifier is unused.
func (a *appleProvider) AuthCodeURL(state, _ string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func (a *appleProvider) Exchange(ctx context.Context, callback OAuthCallback, _ string) (*OAuthProfile, error) {
	secret, err := a.clientSecret(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate apple client secret: %w", err)
	}
	cfg := *a.config
	cfg.ClientSecret = secret

	tok, err := cfg.Exchange(ctx, callback.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange apple code: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, errors.New("id_token not found in apple token response")
	}

	idToken, err := validator.NewClient().VerifyIdToken(a.config.ClientID, raw)
	if err != nil {
		return nil, fmt.Errorf("verify apple id_token: %w", err)
	}
	if idToken.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}
	if idToken.Sub == "" {
		return nil, errors.New("subject claim missing from apple id_token")
	}

	return &OAuthProfile{
		ProviderID: idToken.Sub,
		Email:      normalizeEmail(idToken.Email),
		Name:       appleName(callback.User),
	}, nil
}

// clientSecret signs the short-lived ES256 JWT Apple expects as client_secret.
func (a *appleProvider) clientSecret(now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{
		Issuer:    a.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.ClaimStrings{"https://appleid.apple.com"},
		Subject:   a.config.ClientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = a.keyID
	return token.SignedString(a.key)
}

// appleName reads the display name from the "user" form field. Apple sends it only on
// the first authorization, so it is empty on every later sign-in.
func appleName(raw string) string {
	if raw == "" {
		return ""
	}
	var u struct {
		Name struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return ""
	}
	return strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
}
