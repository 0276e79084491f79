package ref

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/delordemm1/refshare-api/internal/modules/company"
	"github.com/delordemm1/refshare-api/internal/pagination"
)

type reactionKey struct{ user, ref string }

// memRepo keeps refs and reactions in maps. WithinTx holds txMu for the whole callback,
// standing in for the row lock.
type memRepo struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	refs      map[string]Ref
	reactions map[reactionKey]Reaction
	users     map[string]bool
}

func newMemRepo(users ...string) *memRepo {
	r := &memRepo{
		refs:      map[string]Ref{},
		reactions: map[reactionKey]Reaction{},
		users:     map[string]bool{},
	}
	for _, u := range users {
		r.users[u] = true
	}
	return r
}

func (r *memRepo) WithinTx(_ context.Context, fn func(Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

func (r *memRepo) Create(_ context.Context, ref *Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref.ID] = *ref
	return nil
}

func (r *memRepo) counts(refID string) (likes, dislikes int64) {
	for k, v := range r.reactions {
		if k.ref != refID {
			continue
		}
		if v == ReactionLike {
			likes++
		} else {
			dislikes++
		}
	}
	return likes, dislikes
}

func (r *memRepo) live(id string) (Ref, bool) {
	ref, ok := r.refs[id]
	if !ok || !ref.ExpiresAt.After(time.Now()) {
		return Ref{}, false
	}
	ref.Likes, ref.Dislikes = r.counts(id)
	return ref, true
}

func (r *memRepo) FindByID(_ context.Context, id string) (*Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.live(id)
	if !ok {
		return nil, ErrRefNotFound
	}
	return &ref, nil
}

func (r *memRepo) List(_ context.Context, f Filter, page pagination.Params) ([]Ref, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := f.Status
	if status == "" {
		status = StatusPosted
	}
	var out []Ref
	for id := range r.refs {
		ref, ok := r.live(id)
		if !ok || ref.Status != status {
			continue
		}
		if !f.IncludeHidden && (!ref.IsVisible || ref.IsArchived) {
			continue
		}
		if (f.Type != "" && ref.Type != f.Type) ||
			(f.CompanyID != "" && ref.CompanyID != f.CompanyID) ||
			(f.AuthorID != "" && ref.AuthorID != f.AuthorID) ||
			(f.Search != "" && !strings.Contains(strings.ToLower(ref.Title), strings.ToLower(f.Search))) {
			continue
		}
		out = append(out, ref)
	}
	switch f.Sort {
	case "-rating":
		sort.Slice(out, func(i, j int) bool { return out[i].Rating() > out[j].Rating() })
	case "title":
		sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	total := int64(len(out))
	start := min(int(page.Offset()), len(out))
	end := min(start+page.Limit, len(out))
	return out[start:end], total, nil
}

func (r *memRepo) Update(_ context.Context, id string, ch Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refs[id]
	if !ok {
		return ErrRefNotFound
	}
	if ch.Title != nil {
		ref.Title = *ch.Title
	}
	if ch.Description != nil {
		ref.Description = ch.Description
	}
	if ch.Benefits != nil {
		ref.Benefits = *ch.Benefits
	}
	if ch.TermsOfUse != nil {
		ref.TermsOfUse = *ch.TermsOfUse
	}
	r.refs[id] = ref
	return nil
}

func (r *memRepo) LockForUpdate(ctx context.Context, id string) (*Ref, error) {
	return r.FindByID(ctx, id)
}

func (r *memRepo) SetFlags(_ context.Context, id string, visible, archived bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := r.refs[id]
	ref.IsVisible, ref.IsArchived = visible, archived
	r.refs[id] = ref
	return nil
}

func (r *memRepo) IncrementClicks(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := r.refs[id]
	ref.Clicks++
	r.refs[id] = ref
	return ref.Clicks, nil
}

func (r *memRepo) Reaction(_ context.Context, userID, refID string) (Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reactions[reactionKey{userID, refID}], nil
}

func (r *memRepo) SetReaction(_ context.Context, userID, refID string, reaction Reaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reaction == ReactionNone {
		delete(r.reactions, reactionKey{userID, refID})
		return nil
	}
	r.reactions[reactionKey{userID, refID}] = reaction
	return nil
}

func (r *memRepo) Counts(_ context.Context, refID string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	likes, dislikes := r.counts(refID)
	return likes, dislikes, nil
}

func (r *memRepo) UserExists(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID], nil
}

type fakeCompanies map[string]string

func (f fakeCompanies) Get(_ context.Context, id string) (*company.Company, error) {
	name, ok := f[id]
	if !ok {
		return nil, company.ErrCompanyNotFound
	}
	return &company.Company{ID: id, Name: name}, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
