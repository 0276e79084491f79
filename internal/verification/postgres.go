package verification

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/delordemm1/refshare-api/internal/database"
)

type postgresStore struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewPostgresStore returns a Store backed by the verification_codes table.
func NewPostgresStore(db database.DBTX) Store {
	return &postgresStore{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var codeColumns = []string{"id", "scope", "purpose", "code", "used", "expires_at", "created_at"}

func (s *postgresStore) Replace(ctx context.Context, c *Code) error {
	sql, args, err := s.replaceQuery(c).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, sql, args...)
	return err
}

// replaceQuery upserts on the (scope, purpose) unique key, so overlapping issues for the
// same pair serialize on the row instead of each inserting their own.
func (s *postgresStore) replaceQuery(c *Code) squirrel.InsertBuilder {
	return s.psql.Insert("verification_codes").
		Columns("id", "scope", "purpose", "code", "used", "expires_at", "created_at", "updated_at").
		Values(c.ID, string(c.Scope), string(c.Purpose), c.Value, c.Used, c.ExpiresAt, c.CreatedAt, c.CreatedAt).
		Suffix("ON CONFLICT (scope, purpose) DO UPDATE SET " +
			"id = EXCLUDED.id, code = EXCLUDED.code, used = EXCLUDED.used, " +
			"expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at")
}

func (s *postgresStore) Find(ctx context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error) {
	q := s.psql.Select(codeColumns...).
		From("verification_codes").
		Where(squirrel.Eq{"scope": string(scope), "purpose": string(purpose), "code": value}).
		Where(squirrel.Gt{"expires_at": now})
	if !includeUsed {
		q = q.Where(squirrel.Eq{"used": false})
	}
	sql, args, err := q.OrderBy("created_at DESC").Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var c Code
	if err := pgxscan.Get(ctx, s.db, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *postgresStore) MarkUsed(ctx context.Context, id string, expiresAt, now time.Time) (bool, error) {
	sql, args, err := s.psql.Update("verification_codes").
		Set("used", true).
		Set("expires_at", expiresAt).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "used": false}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *postgresStore) Take(ctx context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error) {
	sql, args, err := s.takeQuery(scope, purpose, value, includeUsed, now).ToSql()
	if err != nil {
		return nil, err
	}

	var c Code
	if err := pgxscan.Get(ctx, s.db, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// takeQuery deletes with RETURNING. A concurrent taker blocks on the row lock and then
// finds nothing to delete.
func (s *postgresStore) takeQuery(scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) squirrel.DeleteBuilder {
	q := s.psql.Delete("verification_codes").
		Where(squirrel.Eq{"scope": string(scope), "purpose": string(purpose), "code": value}).
		Where(squirrel.Gt{"expires_at": now})
	if !includeUsed {
		q = q.Where(squirrel.Eq{"used": false})
	}
	return q.Suffix("RETURNING " + strings.Join(codeColumns, ", "))
}
