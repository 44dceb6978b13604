package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is how long a password reset token stays usable after it is
// generated.
const ResetTokenTTL = 10 * time.Minute

// ResetToken pairs the plaintext reset token sent to the user by email with
// the digest stored on the user row. The plaintext is never persisted, so a
// database dump alone cannot produce a usable reset link.
type ResetToken struct {
	Plain   string
	Digest  string
	Expires time.Time
}

// NewResetToken generates a 32-byte random token, its SHA-256 hex digest and
// an absolute expiry of now+ResetTokenTTL.
func NewResetToken() (ResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}
	plain := hex.EncodeToString(buf)
	return ResetToken{
		Plain:   plain,
		Digest:  DigestResetToken(plain),
		Expires: time.Now().UTC().Add(ResetTokenTTL),
	}, nil
}

// DigestResetToken returns the SHA-256 hex digest of a plaintext reset
// token. Lookups by digest use this so the stored value never has to be
// reversed.
func DigestResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ConsumeResetToken reports whether a candidate plaintext matches the
// stored digest and the expiry has not passed. The comparison is constant
// time.
func ConsumeResetToken(candidate, storedDigest string, storedExpiry time.Time) bool {
	if !time.Now().UTC().Before(storedExpiry) {
		return false
	}
	digest := DigestResetToken(candidate)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedDigest)) == 1
}
