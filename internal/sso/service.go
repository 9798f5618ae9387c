// Package sso implements the token lifecycle: login, access-time
// revalidation, logout, explicit revocation and relying-party validation.
package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/logging"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

var (
	// ErrSessionUser means the session's user no longer exists or was disabled.
	ErrSessionUser = errors.New("session user unavailable")
	// ErrNoSession means the session id is unknown or expired.
	ErrNoSession = errors.New("no active session")
)

// Codec mints and decodes signed tokens.
type Codec interface {
	Mint(userID int64, email string, ttl time.Duration) (auth.IssuedToken, error)
	Decode(token string) (*auth.Claims, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
	VerifyDummy(password string)
}

type Options struct {
	TokenTTL   time.Duration
	SessionTTL time.Duration
}

type Service struct {
	store  store.Store
	codec  Codec
	hasher PasswordHasher
	opts   Options
	now    func() time.Time
	log    logging.Logger
}

func NewService(st store.Store, codec Codec, hasher PasswordHasher, opts Options, log logging.Logger) *Service {
	return &Service{
		store:  st,
		codec:  codec,
		hasher: hasher,
		opts:   opts,
		now:    time.Now,
		log:    log,
	}
}

// WithClock replaces the wall clock used for expiry checks and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type LoginResult struct {
	User    models.User
	Session models.Session
	Token   auth.IssuedToken
}

// Login verifies credentials, opens a session and mints a token. Unknown
// email, wrong password and inactive account all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.VerifyDummy(password)
		return LoginResult{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login lookup: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) || !user.CanSignIn() {
		s.log.Info(ctx, "login rejected", "user_id", user.ID)
		return LoginResult{}, auth.ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	tok, err := s.issue(ctx, user, "login")
	if err != nil {
		if endErr := s.store.DeleteSession(ctx, sess.ID); endErr != nil {
			s.log.Warn(ctx, "dropping session after failed login", "error", endErr)
		}
		return LoginResult{}, err
	}

	return LoginResult{User: user, Session: sess, Token: tok}, nil
}

func (s *Service) openSession(ctx context.Context, user models.User) (models.Session, error) {
	id, err := auth.NewSessionID()
	if err != nil {
		return models.Session{}, err
	}
	now := s.now().UTC()
	sess := models.Session{
		ID:        id,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return models.Session{}, fmt.Errorf("opening session: %w", err)
	}
	return sess, nil
}

// Session resolves a session id. Expired sessions are removed and reported
// as ErrNoSession.
func (s *Service) Session(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, ErrNoSession
	}
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("session lookup: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, id); err != nil {
			return models.Session{}, fmt.Errorf("dropping expired session: %w", err)
		}
		return models.Session{}, ErrNoSession
	}
	return sess, nil
}

// EndSession clears the server-side binding. Unknown ids are ignored.
func (s *Service) EndSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}

// PruneSessions deletes every session that has expired.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now().UTC())
}

type AccessResult struct {
	Token     string
	Reissued  bool
	Reason    MintReason
	JTI       string
	ExpiresAt time.Time
}

// Access revalidates the token presented alongside a session and mints a
// replacement when it cannot be reused. The superseded record is left
// untouched, so a user may hold several live tokens.
func (s *Service) Access(ctx context.Context, sess models.Session, presented string) (AccessResult, error) {
	user, err := s.store.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return AccessResult{}, ErrSessionUser
	}
	if err != nil {
		return AccessResult{}, fmt.Errorf("session user lookup: %w", err)
	}
	if !user.CanSignIn() {
		return AccessResult{}, ErrSessionUser
	}

	var (
		claims *auth.Claims
		rec    *models.TokenRecord
	)
	if presented != "" {
		if c, err := s.codec.Decode(presented); err == nil {
			claims = c
			found, err := s.store.FindTokenByJTI(ctx, c.ID)
			switch {
			case err == nil:
				rec = &found
			case !errors.Is(err, store.ErrNotFound):
				return AccessResult{}, fmt.Errorf("token lookup: %w", err)
			}
		} else if !errors.Is(err, auth.ErrInvalidToken) {
			return AccessResult{}, err
		}
	}

	d := Decide(sess.UserID, presented, claims, rec, s.now())
	if d.Reuse {
		return AccessResult{Token: d.Token, JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
	}

	tok, err := s.issue(ctx, user, string(d.Reason))
	if err != nil {
		return AccessResult{}, err
	}
	return AccessResult{
		Token:     tok.Token,
		Reissued:  true,
		Reason:    d.Reason,
		JTI:       tok.JTI,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// Logout revokes the presented token when it decodes. Undecodable tokens
// and unknown jtis are ignored; only storage failures are returned.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil
	}
	err = s.store.RevokeToken(ctx, claims.ID, s.now().UTC())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoking on logout: %w", err)
	}
	if err == nil {
		s.log.Info(ctx, "token revoked", "jti", claims.ID, "cause", "logout")
	}
	return nil
}

// Revoke marks the record for jti revoked. Revoking twice is not an error;
// an unknown jti is store.ErrNotFound.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	if err := s.store.RevokeToken(ctx, jti, s.now().UTC()); err != nil {
		return err
	}
	s.log.Info(ctx, "token revoked", "jti", jti, "cause", "admin")
	return nil
}

// issue mints a token and records it, retrying once on a jti collision.
func (s *Service) issue(ctx context.Context, user models.User, cause string) (auth.IssuedToken, error) {
	for attempt := 0; ; attempt++ {
		tok, err := s.codec.Mint(user.ID, user.Email, s.opts.TokenTTL)
		if err != nil {
			return auth.IssuedToken{}, fmt.Errorf("minting token: %w", err)
		}

		_, err = s.store.CreateToken(ctx, models.TokenRecord{
			JTI:       tok.JTI,
			UserID:    user.ID,
			IssuedAt:  tok.IssuedAt,
			ExpiresAt: tok.ExpiresAt,
		})
		if errors.Is(err, store.ErrDuplicateJTI) && attempt == 0 {
			s.log.Warn(ctx, "jti collision, retrying", "user_id", user.ID)
			continue
		}
		if err != nil {
			return auth.IssuedToken{}, fmt.Errorf("recording token: %w", err)
		}

		s.log.Info(ctx, "token issued", "user_id", user.ID, "jti", tok.JTI, "cause", cause)
		return tok, nil
	}
}
