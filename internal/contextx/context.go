package contextx

import "context"

// key is a private type to avoid collisions in request context keys.
type key string

const (
	authKey   key = "auth"
	clientKey key = "client"
)

// Auth is the per-request identity built from a verified access token.
type Auth struct {
	UserID string
}

// WithAuth returns a copy of ctx carrying the authenticated identity.
func WithAuth(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, authKey, a)
}

// AuthFrom returns the identity stored in ctx and whether a signed-in user is present.
func AuthFrom(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(authKey).(Auth)
	if !ok || a.UserID == "" {
		return Auth{}, false
	}
	return a, true
}

// UserID returns the signed-in user's id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	a, _ := AuthFrom(ctx)
	return a.UserID
}

// Client describes the caller's device as seen by the server.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient returns a copy of ctx carrying the caller's device info.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// ClientFrom returns the device info stored in ctx, or a zero Client.
func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey).(Client)
	return c
}
