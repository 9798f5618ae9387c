package sso

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/logging"
	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

var errStoreDown = errors.New("store down")

type ServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *memStore
	svc   *Service
	now   time.Time
	admin models.User
}

func (s *ServiceTestSuite) clock() time.Time { return s.now }

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = newMemStore()

	codec, err := auth.NewTokenManager("test-secret", "HS256")
	require.NoError(s.T(), err)
	codec.WithClock(s.clock)

	s.svc = NewService(s.store, codec, auth.NewHasher(bcrypt.MinCost), Options{
		TokenTTL:   15 * time.Minute,
		SessionTTL: time.Hour,
	}, logging.Discard()).WithClock(s.clock)

	res, err := s.svc.Seed(s.ctx)
	require.NoError(s.T(), err)
	require.True(s.T(), res.Created)
	s.admin, err = s.store.GetUserByEmail(s.ctx, SeedEmail)
	require.NoError(s.T(), err)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) login() LoginResult {
	res, err := s.svc.Login(s.ctx, SeedEmail, SeedPassword)
	require.NoError(s.T(), err)
	return res
}

func (s *ServiceTestSuite) TestLoginIssuesRecordedToken() {
	res := s.login()

	assert.Equal(s.T(), s.admin.ID, res.User.ID)
	assert.Equal(s.T(), s.admin.ID, res.Session.UserID)
	assert.Equal(s.T(), s.now.Add(time.Hour), res.Session.ExpiresAt)

	rec, err := s.store.FindTokenByJTI(s.ctx, res.Token.JTI)
	require.NoError(s.T(), err)
	assert.False(s.T(), rec.Revoked)
	assert.Equal(s.T(), s.admin.ID, rec.UserID)
	assert.True(s.T(), rec.ExpiresAt.Equal(res.Token.ExpiresAt))
}

func (s *ServiceTestSuite) TestLoginRejectionsAreIndistinguishable() {
	_, errUnknown := s.svc.Login(s.ctx, "nobody@example.com", SeedPassword)
	_, errWrong := s.svc.Login(s.ctx, SeedEmail, "wrong")

	require.NoError(s.T(), s.store.SetUserActive(s.ctx, s.admin.ID, false))
	_, errInactive := s.svc.Login(s.ctx, SeedEmail, SeedPassword)

	for _, err := range []error{errUnknown, errWrong, errInactive} {
		assert.ErrorIs(s.T(), err, auth.ErrInvalidCredentials)
		assert.Equal(s.T(), auth.ErrInvalidCredentials.Error(), err.Error())
	}
	assert.Empty(s.T(), s.store.tokens)
}

func (s *ServiceTestSuite) TestLoginStorageFailure() {
	s.store.fail = errStoreDown
	_, err := s.svc.Login(s.ctx, SeedEmail, SeedPassword)
	assert.ErrorIs(s.T(), err, errStoreDown)
	assert.NotErrorIs(s.T(), err, auth.ErrInvalidCredentials)
}

func (s *ServiceTestSuite) TestLoginFailureLeavesNoSession() {
	s.store.dupJTIs = 2

	_, err := s.svc.Login(s.ctx, SeedEmail, SeedPassword)
	assert.ErrorIs(s.T(), err, store.ErrDuplicateJTI)
	assert.Empty(s.T(), s.store.sessions)
	assert.Empty(s.T(), s.store.tokens)
}

func (s *ServiceTestSuite) TestAccessReusesLiveToken() {
	res := s.login()
	s.now = s.now.Add(5 * time.Minute)

	acc, err := s.svc.Access(s.ctx, res.Session, res.Token.Token)
	require.NoError(s.T(), err)
	assert.False(s.T(), acc.Reissued)
	assert.Equal(s.T(), res.Token.Token, acc.Token)
	assert.Len(s.T(), s.store.tokens, 1)
}

func (s *ServiceTestSuite) TestAccessReissuesExpiredToken() {
	res := s.login()
	s.now = s.now.Add(16 * time.Minute)

	acc, err := s.svc.Access(s.ctx, res.Session, res.Token.Token)
	require.NoError(s.T(), err)
	assert.True(s.T(), acc.Reissued)
	assert.Equal(s.T(), MintInvalidToken, acc.Reason, "decode rejects the expired token first")
	assert.NotEqual(s.T(), res.Token.JTI, acc.JTI)

	old, err := s.store.FindTokenByJTI(s.ctx, res.Token.JTI)
	require.NoError(s.T(), err)
	assert.False(s.T(), old.Revoked, "superseded record is left as-is")
	assert.Len(s.T(), s.store.tokens, 2)
}

func (s *ServiceTestSuite) TestAccessReissuesRevokedAndMissingTokens() {
	res := s.login()
	require.NoError(s.T(), s.svc.Revoke(s.ctx, res.Token.JTI))

	acc, err := s.svc.Access(s.ctx, res.Session, res.Token.Token)
	require.NoError(s.T(), err)
	assert.True(s.T(), acc.Reissued)
	assert.Equal(s.T(), MintRevoked, acc.Reason)

	acc, err = s.svc.Access(s.ctx, res.Session, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), MintNoToken, acc.Reason)
}

func (s *ServiceTestSuite) TestAccessRejectsDisabledSessionUser() {
	res := s.login()
	require.NoError(s.T(), s.store.SetUserActive(s.ctx, s.admin.ID, false))

	_, err := s.svc.Access(s.ctx, res.Session, res.Token.Token)
	assert.ErrorIs(s.T(), err, ErrSessionUser)

	ghost := res.Session
	ghost.UserID = 999
	_, err = s.svc.Access(s.ctx, ghost, "")
	assert.ErrorIs(s.T(), err, ErrSessionUser)
}

func (s *ServiceTestSuite) TestAccessStorageFailureIsNotAVerdict() {
	res := s.login()
	s.store.fail = errStoreDown

	_, err := s.svc.Access(s.ctx, res.Session, res.Token.Token)
	assert.ErrorIs(s.T(), err, errStoreDown)
}

func (s *ServiceTestSuite) TestIssueRetriesOnceOnDuplicateJTI() {
	s.store.dupJTIs = 1
	res := s.login()
	_, err := s.store.FindTokenByJTI(s.ctx, res.Token.JTI)
	assert.NoError(s.T(), err)

	s.store.dupJTIs = 2
	_, err = s.svc.Login(s.ctx, SeedEmail, SeedPassword)
	assert.Error(s.T(), err)
}

func (s *ServiceTestSuite) TestLogoutRevokesAndIsSilent() {
	res := s.login()

	require.NoError(s.T(), s.svc.Logout(s.ctx, res.Token.Token))
	require.NoError(s.T(), s.svc.Logout(s.ctx, res.Token.Token))
	require.NoError(s.T(), s.svc.Logout(s.ctx, "garbage"))
	require.NoError(s.T(), s.svc.Logout(s.ctx, ""))

	rec, err := s.store.FindTokenByJTI(s.ctx, res.Token.JTI)
	require.NoError(s.T(), err)
	assert.True(s.T(), rec.Revoked)
	require.NotNil(s.T(), rec.RevokedAt)
	assert.Equal(s.T(), s.now, *rec.RevokedAt)
}

func (s *ServiceTestSuite) TestRevokeIsIdempotent() {
	res := s.login()
	require.NoError(s.T(), s.svc.Revoke(s.ctx, res.Token.JTI))
	first := *s.store.tokens[res.Token.JTI].RevokedAt

	s.now = s.now.Add(time.Minute)
	require.NoError(s.T(), s.svc.Revoke(s.ctx, res.Token.JTI))
	assert.Equal(s.T(), first, *s.store.tokens[res.Token.JTI].RevokedAt)
}

func (s *ServiceTestSuite) TestValidateOutcomes() {
	res := s.login()

	got, err := s.svc.Validate(s.ctx, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ValidationResult{Reason: ReasonMissingToken}, got)

	got, err = s.svc.Validate(s.ctx, "garbage")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ReasonInvalidToken, got.Reason)
	assert.NotEmpty(s.T(), got.Detail)

	got, err = s.svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.True(s.T(), got.Active)
	assert.Empty(s.T(), got.Reason)
	assert.Equal(s.T(), SeedEmail, got.Email)
	assert.Equal(s.T(), res.Token.JTI, got.JTI)
	assert.Equal(s.T(), res.Token.IssuedAt.Unix(), got.IssuedAt)
	assert.Equal(s.T(), res.Token.ExpiresAt.Unix(), got.ExpiresAt)
	require.NotNil(s.T(), got.User)
	assert.Equal(s.T(), s.admin.ID, got.User.ID)

	require.NoError(s.T(), s.store.SetUserActive(s.ctx, s.admin.ID, false))
	got, err = s.svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ReasonUserInactive, got.Reason)
	require.NoError(s.T(), s.store.SetUserActive(s.ctx, s.admin.ID, true))

	require.NoError(s.T(), s.svc.Revoke(s.ctx, res.Token.JTI))
	got, err = s.svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ValidationResult{Reason: ReasonRevoked}, got)
}

// The codec stays at issue time so decoding succeeds; only the service
// clock moves past exp.
func (s *ServiceTestSuite) TestValidateExpiredAfterDecode() {
	issued := s.now
	codec, err := auth.NewTokenManager("test-secret", "HS256")
	require.NoError(s.T(), err)
	codec.WithClock(func() time.Time { return issued })

	svc := NewService(s.store, codec, auth.NewHasher(bcrypt.MinCost), Options{
		TokenTTL:   time.Minute,
		SessionTTL: time.Hour,
	}, logging.Discard()).WithClock(s.clock)

	res, err := svc.Login(s.ctx, SeedEmail, SeedPassword)
	require.NoError(s.T(), err)

	s.now = issued.Add(2 * time.Minute)
	got, err := svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ValidationResult{Reason: ReasonExpired}, got)

	// Revocation is checked before expiry.
	require.NoError(s.T(), svc.Revoke(s.ctx, res.Token.JTI))
	got, err = svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ValidationResult{Reason: ReasonRevoked}, got)
}

func (s *ServiceTestSuite) TestValidateUnknownJTI() {
	res := s.login()
	delete(s.store.tokens, res.Token.JTI)

	got, err := s.svc.Validate(s.ctx, res.Token.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ReasonUnknownJTI, got.Reason)
}

func (s *ServiceTestSuite) TestValidateStorageFailure() {
	res := s.login()
	s.store.fail = errStoreDown

	_, err := s.svc.Validate(s.ctx, res.Token.Token)
	assert.ErrorIs(s.T(), err, errStoreDown)
}

func (s *ServiceTestSuite) TestSessions() {
	res := s.login()

	got, err := s.svc.Session(s.ctx, res.Session.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), res.Session.ID, got.ID)

	_, err = s.svc.Session(s.ctx, "")
	assert.ErrorIs(s.T(), err, ErrNoSession)

	s.now = s.now.Add(2 * time.Hour)
	_, err = s.svc.Session(s.ctx, res.Session.ID)
	assert.ErrorIs(s.T(), err, ErrNoSession)
	assert.Empty(s.T(), s.store.sessions)

	require.NoError(s.T(), s.svc.EndSession(s.ctx, "unknown"))
}

func (s *ServiceTestSuite) TestSeedAndRegister() {
	res, err := s.svc.Seed(s.ctx)
	require.NoError(s.T(), err)
	assert.False(s.T(), res.Created)

	_, err = s.svc.Register(s.ctx, "bad", "Str0ngPass", true)
	assert.ErrorIs(s.T(), err, auth.ErrInvalidEmail)

	u, err := s.svc.Register(s.ctx, "new@example.com", "Str0ngPass", false)
	require.NoError(s.T(), err)
	assert.False(s.T(), u.IsActive)

	u, err = s.svc.SetActive(s.ctx, "new@example.com", true)
	require.NoError(s.T(), err)
	assert.True(s.T(), u.IsActive)

	_, err = s.svc.Login(s.ctx, "new@example.com", "Str0ngPass")
	assert.NoError(s.T(), err)

	recs, err := s.svc.Tokens(s.ctx, "new@example.com")
	require.NoError(s.T(), err)
	assert.Len(s.T(), recs, 1)
}
