package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

// Demo account created by Seed.
const (
	SeedEmail    = "admin@example.com"
	SeedPassword = "admin123"
)

type SeedResult struct {
	Created  bool   `json:"created"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Seed creates the demo account when it does not exist yet.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	_, err := s.store.GetUserByEmail(ctx, SeedEmail)
	if err == nil {
		return SeedResult{Created: false}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return SeedResult{}, fmt.Errorf("seed lookup: %w", err)
	}

	if _, err := s.createUser(ctx, SeedEmail, SeedPassword, true); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return SeedResult{Created: false}, nil
		}
		return SeedResult{}, err
	}
	return SeedResult{Created: true, Email: SeedEmail, Password: SeedPassword}, nil
}

// Register creates an account after checking the email and password rules.
func (s *Service) Register(ctx context.Context, email, password string, active bool) (models.User, error) {
	if err := auth.ValidateNewAccount(email, password); err != nil {
		return models.User{}, err
	}
	return s.createUser(ctx, email, password, active)
}

func (s *Service) createUser(ctx context.Context, email, password string, active bool) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, email, hash, active)
	if err != nil {
		return models.User{}, err
	}
	s.log.Info(ctx, "user created", "user_id", user.ID, "active", active)
	return user, nil
}

// SetActive enables or disables an account by email. Disabling stops every
// outstanding token of the user from validating.
func (s *Service) SetActive(ctx context.Context, email string, active bool) (models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	if err := s.store.SetUserActive(ctx, user.ID, active); err != nil {
		return models.User{}, err
	}
	user.IsActive = active
	return user, nil
}

// Tokens lists issued token records, optionally for a single email.
func (s *Service) Tokens(ctx context.Context, email string) ([]models.TokenRecord, error) {
	var userID int64
	if email != "" {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		userID = user.ID
	}
	return s.store.ListTokens(ctx, userID)
}
