package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/delordemm1/refshare-api/internal/database"
)

type postgresStore struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
	now  func() time.Time
}

// NewPostgresStore returns a Store backed by the refresh_tokens table.
func NewPostgresStore(db database.DBTX) Store {
	return &postgresStore{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:  time.Now,
	}
}

type row struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	IP        *string   `db:"ip"`
	UserAgent *string   `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *postgresStore) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate session id: %w", err)
		}
		rec.ID = id.String()
	}
	now := s.now()
	rec.CreatedAt = now

	sql, args, err := s.psql.Insert("refresh_tokens").
		Columns("id", "user_id", "token_hash", "expires_at", "ip", "user_agent", "created_at", "updated_at").
		Values(rec.ID, rec.UserID, hashToken(rec.Token), rec.ExpiresAt, nullable(rec.IP), nullable(rec.UserAgent), now, now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *postgresStore) Lookup(ctx context.Context, token string) (*Record, error) {
	sql, args, err := s.psql.Select("id", "user_id", "expires_at", "ip", "user_agent", "created_at").
		From("refresh_tokens").
		Where(squirrel.Eq{"token_hash": hashToken(token)}).
		Where(squirrel.Gt{"expires_at": s.now()}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var r row
	if err := pgxscan.Get(ctx, s.db, &r, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &Record{
		ID:        r.ID,
		UserID:    r.UserID,
		Token:     token,
		ExpiresAt: r.ExpiresAt,
		IP:        deref(r.IP),
		UserAgent: deref(r.UserAgent),
		CreatedAt: r.CreatedAt,
	}, nil
}

func (s *postgresStore) Rotate(ctx context.Context, oldToken string, next *Record) error {
	sql, args, err := s.rotateQuery(oldToken, next, s.now()).ToSql()
	if err != nil {
		return err
	}
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&next.ID, &next.UserID); err != nil {
		if pgxscan.NotFound(err) {
			return ErrNotFound.WithCause(err)
		}
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

// rotateQuery swaps the hash in place only while the old one is still stored and live,
// so of two rotations presenting the same token the second matches no row.
func (s *postgresStore) rotateQuery(oldToken string, next *Record, now time.Time) squirrel.UpdateBuilder {
	return s.psql.Update("refresh_tokens").
		Set("token_hash", hashToken(next.Token)).
		Set("expires_at", next.ExpiresAt).
		Set("ip", nullable(next.IP)).
		Set("user_agent", nullable(next.UserAgent)).
		Set("updated_at", now).
		Where(squirrel.Eq{"token_hash": hashToken(oldToken)}).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING id, user_id")
}

func (s *postgresStore) Delete(ctx context.Context, token string) error {
	sql, args, err := s.psql.Delete("refresh_tokens").
		Where(squirrel.Eq{"token_hash": hashToken(token)}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, sql, args...)
	return err
}

func (s *postgresStore) DeleteForUser(ctx context.Context, userID string) error {
	sql, args, err := s.psql.Delete("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, sql, args...)
	return err
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
