package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/siddharthav19/ToursProj/internal/auth"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/query"
)

const userColumns = "id,name,email,password_hash,role,password_changed_at,password_reset_digest,password_reset_expires,active,created_at,updated_at"

// passwordChangeSkew backdates password_changed_at so a token issued in the
// same request as the change is never rejected as stale by the route guard.
const passwordChangeSkew = 2 * time.Second

// UserSchema whitelists the user fields exposed to the query builder.
// The credential and reset columns are deliberately absent: they can never
// be filtered on, sorted by or projected out.
var UserSchema = query.Schema{Fields: []query.Field{
	{Name: "id", Column: "id"},
	{Name: "name", Column: "name"},
	{Name: "email", Column: "email"},
	{Name: "role", Column: "role"},
	{Name: "active", Column: "active"},
}}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The password confirmation must
// match or the write is rejected with ErrPasswordMismatch; the hash is
// computed here so no caller can slip a plaintext password into the row.
func (r *UserRepo) Create(ctx context.Context, name, email, password, passwordConfirm, role string, cost int) (uint64, error) {
	if password != passwordConfirm {
		return 0, ErrPasswordMismatch
	}
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email, hash included.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByResetDigest fetches the user holding an unexpired reset token with
// the given digest. sql.ErrNoRows covers both no match and an expired one.
func (r *UserRepo) GetByResetDigest(ctx context.Context, digest string, now time.Time) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_digest=? AND password_reset_expires > ? LIMIT 1",
		digest, now))
}

// List executes a feature-built query over the users table. Call sites pass
// the active-only decorator explicitly; nothing is filtered behind their
// back. Rows come back as generic documents because the projection varies
// per request.
func (r *UserRepo) List(ctx context.Context, f *query.Features) ([]map[string]any, error) {
	sqlStr, args, err := f.Build("users")
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// UpdateProfile changes name and/or email; empty arguments keep the
// current value. Password updates go through RotatePassword only.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) (model.User, error) {
	if email != "" {
		email = strings.ToLower(strings.TrimSpace(email))
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=COALESCE(NULLIF(?,''),name), email=COALESCE(NULLIF(?,''),email) WHERE id=?",
		name, email, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Deactivate soft-deletes a user. The row stays; active flips to false and
// every listing that should hide it says so explicitly via the query
// decorator.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET active=0 WHERE id=?", id)
	return err
}

// RotatePassword stores a new password hash, backdates password_changed_at
// by the skew, and clears any pending reset token in the same statement.
func (r *UserRepo) RotatePassword(ctx context.Context, id uint64, password, passwordConfirm string, cost int) error {
	if password != passwordConfirm {
		return ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return err
	}
	changedAt := time.Now().UTC().Add(-passwordChangeSkew)
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=?, password_reset_digest=NULL, password_reset_expires=NULL WHERE id=?",
		hash, changedAt, id)
	return err
}

// SetResetToken persists the reset digest and expiry for a pending
// password reset.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, digest string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_digest=?, password_reset_expires=? WHERE id=?",
		digest, expires, id)
	return err
}

// ClearResetToken removes a pending reset, either after a successful reset
// or as the rollback when the reset email cannot be delivered.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_digest=NULL, password_reset_expires=NULL WHERE id=?", id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.PasswordChangedAt, &u.ResetDigest, &u.ResetExpires, &u.Active,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}
