package company

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/delordemm1/refshare-api/internal/database"
	"github.com/delordemm1/refshare-api/internal/pagination"
)

// Repository defines the database operations of the company module.
type Repository interface {
	Create(ctx context.Context, c *Company) error
	FindByID(ctx context.Context, id string) (*Company, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, f Filter, page pagination.Params) ([]Company, int64, error)
	ListAll(ctx context.Context) ([]Company, error)
	Update(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a company repository on db.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var companyColumns = []string{
	"c.id", "c.name", "c.url", "c.description", "c.promotion_text", "c.categories",
	"c.is_custom", "c.author_id", "c.created_at", "c.updated_at",
	"(SELECT count(*) FROM refs r WHERE r.company_id = c.id AND r.expires_at > now()) AS refs_count",
}

var sortColumns = map[SortField]string{
	SortByName:      "c.name",
	SortByCreatedAt: "c.created_at",
	SortByUpdatedAt: "c.updated_at",
	SortByRefs:      "refs_count",
}

func (r *repository) Create(ctx context.Context, c *Company) error {
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Categories == nil {
		c.Categories = []string{}
	}

	query, args, err := r.psql.Insert("companies").
		Columns("id", "name", "url", "description", "promotion_text", "categories", "is_custom", "author_id", "created_at", "updated_at").
		Values(c.ID, c.Name, c.URL, c.Description, c.PromotionText, c.Categories, c.IsCustom, c.AuthorID, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCompanyExists.WithCause(err)
		}
		return err
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Company, error) {
	query, args, err := r.psql.Select(companyColumns...).
		From("companies c").
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var c Company
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrCompanyNotFound.WithCause(err)
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query, args, err := r.psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("companies").
		Where(squirrel.Eq{"name": name}).
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

func applyFilter(q squirrel.SelectBuilder, f Filter) squirrel.SelectBuilder {
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("c.name ILIKE ?", "%"+database.EscapeLike(s)+"%")
	}
	if f.Category != "" {
		q = q.Where("? = ANY(c.categories)", f.Category)
	}
	return q
}

// List returns one page of companies and the total number matching f.
func (r *repository) List(ctx context.Context, f Filter, page pagination.Params) ([]Company, int64, error) {
	countQuery, countArgs, err := applyFilter(r.psql.Select("count(*)").From("companies c"), f).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[SortByName]
	}
	dir := " ASC"
	if f.Descending {
		dir = " DESC"
	}
	query, args, err := applyFilter(r.psql.Select(companyColumns...).From("companies c"), f).
		OrderBy(col+dir, "c.id").
		Limit(uint64(page.Limit)).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	companies := []Company{}
	if err := pgxscan.Select(ctx, r.db, &companies, query, args...); err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Company, error) {
	query, args, err := r.psql.Select(companyColumns...).From("companies c").OrderBy("c.name").ToSql()
	if err != nil {
		return nil, err
	}
	companies := []Company{}
	if err := pgxscan.Select(ctx, r.db, &companies, query, args...); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repository) Update(ctx context.Context, id string, changes Changes) error {
	if changes.empty() {
		return nil
	}
	q := r.psql.Update("companies").Set("updated_at", time.Now())
	if changes.Name != nil {
		q = q.Set("name", *changes.Name)
	}
	if changes.URL != nil {
		q = q.Set("url", *changes.URL)
	}
	if changes.Description != nil {
		q = q.Set("description", *changes.Description)
	}
	if changes.PromotionText != nil {
		q = q.Set("promotion_text", *changes.PromotionText)
	}
	if changes.Categories != nil {
		q = q.Set("categories", *changes.Categories)
	}

	query, args, err := q.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCompanyExists.WithCause(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// Delete removes the company together with its referrals.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("companies").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}
