package user

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/delordemm1/refshare-api/internal/database"
)

var userColumns = []string{"id", "email", "password_hash", "username", "avatar", "role", "verified_at", "created_at", "updated_at"}

// Create inserts a new user. A duplicate email yields ErrEmailExists.
func (r *repository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = RoleUser
	}

	query, args, err := r.psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.PasswordHash, user.Username, user.Avatar, string(user.Role), user.VerifiedAt, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByID retrieves a user by primary key.
func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByEmail retrieves a user by email, ignoring case.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

func (r *repository) findOne(ctx context.Context, pred squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(userColumns...).
		From("users").
		Where(pred).
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

// Update writes the non-nil fields of changes.
func (r *repository) Update(ctx context.Context, id string, changes Changes) error {
	if changes.empty() {
		return nil
	}
	q := r.psql.Update("users").Set("updated_at", time.Now())
	if changes.Email != nil {
		q = q.Set("email", *changes.Email)
	}
	if changes.Username != nil {
		q = q.Set("username", *changes.Username)
	}
	if changes.Avatar != nil {
		q = q.Set("avatar", *changes.Avatar)
	}
	if changes.PasswordHash != nil {
		q = q.Set("password_hash", *changes.PasswordHash)
	}
	if changes.VerifiedAt != nil {
		q = q.Set("verified_at", *changes.VerifiedAt)
	}

	query, args, err := q.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists.WithCause(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user. Identities, refresh tokens and reactions cascade.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) ReactionIDs(ctx context.Context, userID string) ([]string, []string, error) {
	query, args, err := r.psql.Select("ref_id", "kind").
		From("ref_reactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	var rows []struct {
		RefID string `db:"ref_id"`
		Kind  string `db:"kind"`
	}
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, nil, err
	}

	liked, disliked := []string{}, []string{}
	for _, row := range rows {
		switch row.Kind {
		case "like":
			liked = append(liked, row.RefID)
		case "dislike":
			disliked = append(disliked, row.RefID)
		}
	}
	return liked, disliked, nil
}
