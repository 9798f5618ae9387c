package sso

import (
	"time"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
)

// MintReason says why a presented token could not be reused.
type MintReason string

const (
	MintNoToken         MintReason = "no_token"
	MintInvalidToken    MintReason = "invalid_token"
	MintSubjectMismatch MintReason = "subject_mismatch"
	MintUnknownJTI      MintReason = "unknown_jti"
	MintRevoked         MintReason = "revoked"
	MintExpired         MintReason = "expired"
)

// Decision is either Reuse(token) or Mint(reason).
type Decision struct {
	Reuse  bool
	Token  string
	Reason MintReason
}

func Reuse(token string) Decision {
	return Decision{Reuse: true, Token: token}
}

func Mint(reason MintReason) Decision {
	return Decision{Reason: reason}
}

// Decide is the access-time revalidation rule. claims is nil when the token
// did not decode and rec is nil when no record exists for claims.ID. A token
// is reused only when it decodes, belongs to the session user, has a live
// record and has not expired at now.
func Decide(sessionUserID int64, token string, claims *auth.Claims, rec *models.TokenRecord, now time.Time) Decision {
	if token == "" {
		return Mint(MintNoToken)
	}
	if claims == nil {
		return Mint(MintInvalidToken)
	}
	if uid, err := claims.UserID(); err != nil || uid != sessionUserID {
		return Mint(MintSubjectMismatch)
	}
	if rec == nil || rec.JTI != claims.ID {
		return Mint(MintUnknownJTI)
	}
	if rec.Revoked {
		return Mint(MintRevoked)
	}
	// Decode checked expiry too, but at an earlier instant.
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return Mint(MintExpired)
	}
	return Reuse(token)
}
