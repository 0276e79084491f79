package ref

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/delordemm1/refshare-api/internal/database"
	"github.com/delordemm1/refshare-api/internal/pagination"
)

// Repository defines the database operations of the ref module. Expired referrals are
// invisible to every read.
type Repository interface {
	// WithinTx runs fn with a Repository bound to a single transaction.
	WithinTx(ctx context.Context, fn func(Repository) error) error

	Create(ctx context.Context, ref *Ref) error
	FindByID(ctx context.Context, id string) (*Ref, error)
	List(ctx context.Context, f Filter, page pagination.Params) ([]Ref, int64, error)
	Update(ctx context.Context, id string, changes Changes) error

	// LockForUpdate loads the bare ref row and holds a row lock until the transaction ends.
	LockForUpdate(ctx context.Context, id string) (*Ref, error)
	SetFlags(ctx context.Context, id string, visible, archived bool) error
	IncrementClicks(ctx context.Context, id string) (int64, error)

	Reaction(ctx context.Context, userID, refID string) (Reaction, error)
	// SetReaction stores the user's reaction; ReactionNone removes it.
	SetReaction(ctx context.Context, userID, refID string, reaction Reaction) error
	Counts(ctx context.Context, refID string) (likes, dislikes int64, err error)

	UserExists(ctx context.Context, userID string) (bool, error)
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a ref repository on db.
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

const (
	likesColumn    = "(SELECT count(*) FROM ref_reactions x WHERE x.ref_id = r.id AND x.kind = 'like')"
	dislikesColumn = "(SELECT count(*) FROM ref_reactions x WHERE x.ref_id = r.id AND x.kind = 'dislike')"
)

var refColumns = []string{
	"r.id", "r.title", "r.description", "r.benefits", "r.terms_of_use", "r.type", "r.value",
	"r.status", "r.is_visible", "r.is_archived", "r.clicks", "r.author_id", "r.company_id",
	"r.expires_at", "r.created_at", "r.updated_at",
	likesColumn + " AS likes",
	dislikesColumn + " AS dislikes",
	"c.name AS company_name",
	"u.username AS author_username",
}

// sortOrders maps the public sort keys to ORDER BY clauses. A leading '-' sorts descending.
var sortOrders = map[string]string{
	"createdAt":  "r.created_at ASC",
	"-createdAt": "r.created_at DESC",
	"rating":     "(" + likesColumn + " - " + dislikesColumn + ") ASC",
	"-rating":    "(" + likesColumn + " - " + dislikesColumn + ") DESC",
	"title":      "r.title ASC",
	"-title":     "r.title DESC",
}

const defaultSort = "-createdAt"

func (r *repository) selectRefs(columns ...string) squirrel.SelectBuilder {
	return r.psql.Select(columns...).
		From("refs r").
		Join("companies c ON c.id = r.company_id").
		LeftJoin("users u ON u.id = r.author_id").
		Where("r.expires_at > now()")
}

func (r *repository) Create(ctx context.Context, ref *Ref) error {
	if ref.Benefits == nil {
		ref.Benefits = []string{}
	}
	if ref.TermsOfUse == nil {
		ref.TermsOfUse = []string{}
	}
	query, args, err := r.psql.Insert("refs").
		Columns("id", "title", "description", "benefits", "terms_of_use", "type", "value", "status",
			"is_visible", "is_archived", "clicks", "author_id", "company_id", "expires_at", "created_at", "updated_at").
		Values(ref.ID, ref.Title, ref.Description, ref.Benefits, ref.TermsOfUse, ref.Type, ref.Value, ref.Status,
			ref.IsVisible, ref.IsArchived, ref.Clicks, ref.AuthorID, ref.CompanyID, ref.ExpiresAt, ref.CreatedAt, ref.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Ref, error) {
	query, args, err := r.selectRefs(refColumns...).Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var ref Ref
	if err := pgxscan.Get(ctx, r.db, &ref, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrRefNotFound.WithCause(err)
		}
		return nil, err
	}
	return &ref, nil
}

func applyFilter(q squirrel.SelectBuilder, f Filter) squirrel.SelectBuilder {
	status := f.Status
	if status == "" {
		status = StatusPosted
	}
	q = q.Where(squirrel.Eq{"r.status": status})
	if !f.IncludeHidden {
		q = q.Where(squirrel.Eq{"r.is_visible": true, "r.is_archived": false})
	}
	if f.Type != "" {
		q = q.Where(squirrel.Eq{"r.type": f.Type})
	}
	if f.CompanyID != "" {
		q = q.Where(squirrel.Eq{"r.company_id": f.CompanyID})
	}
	if f.AuthorID != "" {
		q = q.Where(squirrel.Eq{"r.author_id": f.AuthorID})
	}
	if f.Search != "" {
		pattern := "%" + database.EscapeLike(f.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.Expr("r.title ILIKE ?", pattern),
			squirrel.Expr("r.description ILIKE ?", pattern),
			squirrel.Expr("c.name ILIKE ?", pattern),
		})
	}
	return q
}

// List returns one page of referrals and the total number matching f.
func (r *repository) List(ctx context.Context, f Filter, page pagination.Params) ([]Ref, int64, error) {
	countQuery, countArgs, err := applyFilter(r.selectRefs("count(*)"), f).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := sortOrders[f.Sort]
	if !ok {
		order = sortOrders[defaultSort]
	}
	query, args, err := applyFilter(r.selectRefs(refColumns...), f).
		OrderBy(order, "r.id").
		Limit(uint64(page.Limit)).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	refs := []Ref{}
	if err := pgxscan.Select(ctx, r.db, &refs, query, args...); err != nil {
		return nil, 0, err
	}
	return refs, total, nil
}

func (r *repository) Update(ctx context.Context, id string, changes Changes) error {
	if changes.empty() {
		return nil
	}
	q := r.psql.Update("refs").Set("updated_at", time.Now())
	if changes.Title != nil {
		q = q.Set("title", *changes.Title)
	}
	if changes.Description != nil {
		q = q.Set("description", *changes.Description)
	}
	if changes.Benefits != nil {
		q = q.Set("benefits", *changes.Benefits)
	}
	if changes.TermsOfUse != nil {
		q = q.Set("terms_of_use", *changes.TermsOfUse)
	}
	query, args, err := q.Where(squirrel.Eq{"id": id}).Where("expires_at > now()").ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRefNotFound
	}
	return nil
}

func (r *repository) LockForUpdate(ctx context.Context, id string) (*Ref, error) {
	query, args, err := r.lockQuery(id).ToSql()
	if err != nil {
		return nil, err
	}
	var ref Ref
	if err := pgxscan.Get(ctx, r.db, &ref, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrRefNotFound.WithCause(err)
		}
		return nil, err
	}
	return &ref, nil
}

func (r *repository) lockQuery(id string) squirrel.SelectBuilder {
	return r.psql.Select("id", "author_id", "company_id", "is_visible", "is_archived", "clicks", "status", "type").
		From("refs").
		Where(squirrel.Eq{"id": id}).
		Where("expires_at > now()").
		Suffix("FOR UPDATE")
}

func (r *repository) SetFlags(ctx context.Context, id string, visible, archived bool) error {
	query, args, err := r.psql.Update("refs").
		Set("is_visible", visible).
		Set("is_archived", archived).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) IncrementClicks(ctx context.Context, id string) (int64, error) {
	query, args, err := r.psql.Update("refs").
		Set("clicks", squirrel.Expr("clicks + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING clicks").
		ToSql()
	if err != nil {
		return 0, err
	}
	var clicks int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&clicks); err != nil {
		return 0, err
	}
	return clicks, nil
}

func (r *repository) Reaction(ctx context.Context, userID, refID string) (Reaction, error) {
	query, args, err := r.psql.Select("kind").
		From("ref_reactions").
		Where(squirrel.Eq{"user_id": userID, "ref_id": refID}).
		ToSql()
	if err != nil {
		return ReactionNone, err
	}
	var kind string
	if err := pgxscan.Get(ctx, r.db, &kind, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ReactionNone, nil
		}
		return ReactionNone, err
	}
	return Reaction(kind), nil
}

func (r *repository) SetReaction(ctx context.Context, userID, refID string, reaction Reaction) error {
	query, args, err := r.reactionQuery(userID, refID, reaction, time.Now()).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// reactionQuery keeps at most one row per (user_id, ref_id): a new kind overwrites the
// old one in place.
func (r *repository) reactionQuery(userID, refID string, reaction Reaction, now time.Time) squirrel.Sqlizer {
	if reaction == ReactionNone {
		return r.psql.Delete("ref_reactions").
			Where(squirrel.Eq{"user_id": userID, "ref_id": refID})
	}
	return r.psql.Insert("ref_reactions").
		Columns("user_id", "ref_id", "kind", "created_at").
		Values(userID, refID, string(reaction), now).
		Suffix("ON CONFLICT (user_id, ref_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = EXCLUDED.created_at")
}

func (r *repository) Counts(ctx context.Context, refID string) (likes, dislikes int64, err error) {
	query, args, err := r.psql.Select(
		"count(*) FILTER (WHERE kind = 'like')",
		"count(*) FILTER (WHERE kind = 'dislike')",
	).From("ref_reactions").Where(squirrel.Eq{"ref_id": refID}).ToSql()
	if err != nil {
		return 0, 0, err
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&likes, &dislikes)
	return likes, dislikes, err
}

func (r *repository) UserExists(ctx context.Context, userID string) (bool, error) {
	query, args, err := r.psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
