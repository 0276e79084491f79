package user

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/delordemm1/refshare-api/internal/database"
)

// Repository defines the database operations of the user module.
type Repository interface {
	// WithinTx runs fn with a Repository bound to a single transaction.
	WithinTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error

	// OAuth identities
	FindByIdentity(ctx context.Context, provider Provider, providerID string) (*User, error)
	LinkIdentity(ctx context.Context, identity *Identity) error
	ListIdentities(ctx context.Context, userID string) ([]Identity, error)

	// ReactionIDs returns the ids of the referrals the user liked and disliked.
	ReactionIDs(ctx context.Context, userID string) (liked, disliked []string, err error)
}

// repository implements Repository using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new user repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx database.DBTX) error {
		return fn(&repository{db: tx, psql: r.psql})
	})
}
