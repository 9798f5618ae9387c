package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

// Reason is the machine-readable cause of an inactive validation result.
type Reason string

const (
	ReasonMissingToken Reason = "missing_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonUnknownJTI   Reason = "unknown_jti"
	ReasonRevoked      Reason = "revoked"
	ReasonExpired      Reason = "expired"
	ReasonUserInactive Reason = "user_inactive"
)

// ValidationResult is returned to relying parties as JSON.
type ValidationResult struct {
	Active    bool             `json:"active"`
	Reason    Reason           `json:"reason,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Sub       string           `json:"sub,omitempty"`
	Email     string           `json:"email,omitempty"`
	IssuedAt  int64            `json:"iat,omitempty"`
	ExpiresAt int64            `json:"exp,omitempty"`
	JTI       string           `json:"jti,omitempty"`
	User      *models.UserInfo `json:"user,omitempty"`
}

func inactive(r Reason) ValidationResult {
	return ValidationResult{Reason: r}
}

// Validate classifies token into exactly one outcome. Checks run in order:
// decode, record lookup, revocation, expiry, owner state. Only storage
// failures are returned as errors.
func (s *Service) Validate(ctx context.Context, token string) (ValidationResult, error) {
	if token == "" {
		return inactive(ReasonMissingToken), nil
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			return ValidationResult{}, err
		}
		res := inactive(ReasonInvalidToken)
		res.Detail = err.Error()
		return res, nil
	}

	rec, err := s.store.FindTokenByJTI(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return inactive(ReasonUnknownJTI), nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate lookup: %w", err)
	}
	if rec.Revoked {
		return inactive(ReasonRevoked), nil
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return inactive(ReasonExpired), nil
	}

	uid, _ := claims.UserID()
	user, err := s.store.GetUser(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return inactive(ReasonUserInactive), nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate user lookup: %w", err)
	}
	if !user.CanSignIn() {
		return inactive(ReasonUserInactive), nil
	}

	info := user.Info()
	return ValidationResult{
		Active:    true,
		Sub:       claims.Subject,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
		JTI:       claims.ID,
		User:      &info,
	}, nil
}
