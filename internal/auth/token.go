// Package auth provides the credential primitives of the API: password
// hashing, signed bearer tokens and password reset tokens. All of it is
// stateless; the secret and lifetimes arrive from the caller's config, never
// from ambient globals.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned by VerifyToken when the embedded expiry has
// passed. The signature itself was valid.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenInvalid is returned by VerifyToken for any token whose signature
// does not verify under the given secret. It covers tampering as well as
// tokens signed with a rotated secret.
var ErrTokenInvalid = errors.New("token invalid")

// Claims is the verified payload of an access token: which user it names
// and when it was issued. IssuedAt is what the route guard compares against
// the user's password-changed timestamp.
type Claims struct {
	UserID   uint64
	IssuedAt time.Time
}

// IssueToken builds and signs an HS256 JWT for a user. The token carries
// the subject (user id), issued-at and an expiry of now+ttl at second
// granularity.
func IssueToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyToken checks the signature before trusting anything in the payload,
// then returns the embedded claims. Expired tokens yield ErrTokenExpired;
// everything else that fails verification yields ErrTokenInvalid.
func VerifyToken(raw, secret string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens that name a different algorithm than the one we
		// sign with.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	iat, ok := mc["iat"].(float64)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{UserID: uint64(sub), IssuedAt: time.Unix(int64(iat), 0).UTC()}, nil
}
