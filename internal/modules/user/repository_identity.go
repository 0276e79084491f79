package user

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/delordemm1/refshare-api/internal/database"
)

// FindByIdentity returns the user linked to the provider account.
func (r *repository) FindByIdentity(ctx context.Context, provider Provider, providerID string) (*User, error) {
	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}
	query, args, err := r.psql.Select(cols...).
		From("users u").
		Join("user_identities i ON i.user_id = u.id").
		Where(squirrel.Eq{"i.provider": string(provider), "i.provider_id": providerID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrUserNotFound.WithCause(err)
		}
		return nil, err
	}
	return &user, nil
}

// LinkIdentity attaches a provider account to a user. Linking the same pair twice is a
// no-op; linking a provider account that belongs to someone else yields ErrIdentityTaken.
func (r *repository) LinkIdentity(ctx context.Context, identity *Identity) error {
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	query, args, err := r.psql.Insert("user_identities").
		Columns("provider", "provider_id", "user_id", "email", "created_at").
		Values(string(identity.Provider), identity.ProviderID, identity.UserID, identity.Email, identity.CreatedAt).
		Suffix("ON CONFLICT (provider, provider_id) DO UPDATE SET email = EXCLUDED.email WHERE user_identities.user_id = EXCLUDED.user_id").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrIdentityTaken.WithCause(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityTaken
	}
	return nil
}

func (r *repository) ListIdentities(ctx context.Context, userID string) ([]Identity, error) {
	query, args, err := r.psql.Select("provider", "provider_id", "user_id", "email", "created_at").
		From("user_identities").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	identities := []Identity{}
	if err := pgxscan.Select(ctx, r.db, &identities, query, args...); err != nil {
		return nil, err
	}
	return identities, nil
}
