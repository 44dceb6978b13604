package model

import (
	"database/sql"
	"time"
)

// Role values stored in users.role. Signup always assigns RoleUser; the
// elevated roles are granted only through the admin-only create-user route.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRole reports whether a role string is one of the fixed set.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents a row of the `users` table. PasswordHash never leaves the
// repository/handler layer; response types redefine which fields are
// serialized. The reset fields are either both set (while a password reset
// is pending) or both NULL.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Name              – display name.
//  Email             – unique, lowercase-normalized email address.
//  PasswordHash      – bcrypt hashed password.
//  Role              – one of user, guide, lead-guide, admin.
//  PasswordChangedAt – when the password last changed (null until the first
//                      change; stored 2s in the past so freshly issued
//                      tokens survive the route guard's freshness check).
//  ResetDigest       – SHA-256 hex digest of the pending reset token.
//  ResetExpires      – absolute expiry of the pending reset token.
//  Active            – soft-delete marker; self-service delete flips this
//                      to false, rows are never removed.
type User struct {
	ID                uint64
	Name              string
	Email             string
	PasswordHash      string
	Role              string
	PasswordChangedAt sql.NullTime
	ResetDigest       sql.NullString
	ResetExpires      sql.NullTime
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ChangedPasswordAfter reports whether the user's password changed after
// the given token issue time. Users who never changed their password always
// report false.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if !u.PasswordChangedAt.Valid {
		return false
	}
	return issuedAt.Before(u.PasswordChangedAt.Time)
}
