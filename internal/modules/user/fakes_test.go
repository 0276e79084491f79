package user

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/delordemm1/refshare-api/internal/cache"
	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/verification"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu         sync.Mutex
	users      map[string]User
	identities []Identity
	reactions  map[string]map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]User{}, reactions: map[string]map[string]string{}}
}

func (r *memRepo) WithinTx(_ context.Context, fn func(Repository) error) error { return fn(r) }

func (r *memRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail(u.Email); ok {
		return ErrEmailExists
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail(email)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memRepo) byEmail(email string) (User, bool) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}

func (r *memRepo) Update(_ context.Context, id string, c Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if c.Email != nil {
		if other, ok := r.byEmail(*c.Email); ok && other.ID != id {
			return ErrEmailExists
		}
		u.Email = *c.Email
	}
	if c.Username != nil {
		u.Username = c.Username
	}
	if c.Avatar != nil {
		u.Avatar = c.Avatar
	}
	if c.PasswordHash != nil {
		u.PasswordHash = c.PasswordHash
	}
	if c.VerifiedAt != nil {
		u.VerifiedAt = c.VerifiedAt
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.reactions, id)
	kept := r.identities[:0]
	for _, ident := range r.identities {
		if ident.UserID != id {
			kept = append(kept, ident)
		}
	}
	r.identities = kept
	return nil
}

func (r *memRepo) FindByIdentity(_ context.Context, p Provider, providerID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.identities {
		if ident.Provider == p && ident.ProviderID == providerID {
			u := r.users[ident.UserID]
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) LinkIdentity(_ context.Context, identity *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.identities {
		if ident.Provider == identity.Provider && ident.ProviderID == identity.ProviderID {
			if ident.UserID != identity.UserID {
				return ErrIdentityTaken
			}
			return nil
		}
	}
	identity.CreatedAt = time.Now()
	r.identities = append(r.identities, *identity)
	return nil
}

func (r *memRepo) ListIdentities(_ context.Context, userID string) ([]Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Identity
	for _, ident := range r.identities {
		if ident.UserID == userID {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (r *memRepo) ReactionIDs(_ context.Context, userID string) ([]string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var liked, disliked []string
	for refID, kind := range r.reactions[userID] {
		if kind == "like" {
			liked = append(liked, refID)
		} else {
			disliked = append(disliked, refID)
		}
	}
	return liked, disliked, nil
}

// outbox records the last code delivered to each destination and purpose.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
}

func newOutbox() *outbox { return &outbox{codes: map[string]string{}} }

func (o *outbox) SendCode(_ context.Context, d verification.Delivery) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[d.Destination+"|"+string(d.Purpose)] = d.Code
	o.sent++
	return nil
}

func (o *outbox) last(destination string, purpose verification.Purpose) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[destination+"|"+string(purpose)]
}

// memStates is a single-use StateStore.
type memStates struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStates() *memStates { return &memStates{data: map[string][]byte{}} }

func (m *memStates) Put(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memStates) Take(_ context.Context, key string, v any) error {
	m.mu.Lock()
	b, ok := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, v)
}

func (m *memStates) onlyKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		return k
	}
	return ""
}

// fakeProvider returns a fixed profile for any code.
type fakeProvider struct {
	profile   OAuthProfile
	verifier  string
	exchanged int
}

func (f *fakeProvider) AuthCodeURL(state, verifier string) string {
	f.verifier = verifier
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, _ OAuthCallback, verifier string) (*OAuthProfile, error) {
	f.exchanged++
	if verifier != f.verifier {
		return nil, ErrOAuthExchangeFailed
	}
	p := f.profile
	return &p, nil
}

func withUser(ctx context.Context, userID string) context.Context {
	return contextx.WithAuth(ctx, contextx.Auth{UserID: userID})
}
