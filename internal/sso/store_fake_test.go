package sso

import (
	"context"
	"sync"
	"time"

	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

// memStore is an in-memory store.Store. Setting fail makes every call
// return that error.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]models.User
	tokens   map[string]models.TokenRecord
	sessions map[string]models.Session
	nextID   int64
	fail     error

	// dupJTIs makes the next n CreateToken calls report a collision.
	dupJTIs int
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]models.User{},
		tokens:   map[string]models.TokenRecord{},
		sessions: map[string]models.Session{},
	}
}

func (m *memStore) GetUser(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	u, ok := m.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (m *memStore) CreateUser(_ context.Context, email, hash string, active bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	for _, u := range m.users {
		if u.Email == email {
			return models.User{}, store.ErrDuplicateEmail
		}
	}
	m.nextID++
	u := models.User{ID: m.nextID, Email: email, PasswordHash: hash, IsActive: active, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) SetUserActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memStore) CreateToken(_ context.Context, rec models.TokenRecord) (models.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.TokenRecord{}, m.fail
	}
	if m.dupJTIs > 0 {
		m.dupJTIs--
		return models.TokenRecord{}, store.ErrDuplicateJTI
	}
	if _, ok := m.tokens[rec.JTI]; ok {
		return models.TokenRecord{}, store.ErrDuplicateJTI
	}
	m.nextID++
	rec.ID = m.nextID
	m.tokens[rec.JTI] = rec
	return rec, nil
}

func (m *memStore) FindTokenByJTI(_ context.Context, jti string) (models.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.TokenRecord{}, m.fail
	}
	rec, ok := m.tokens[jti]
	if !ok {
		return models.TokenRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) RevokeToken(_ context.Context, jti string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	rec, ok := m.tokens[jti]
	if !ok {
		return store.ErrNotFound
	}
	if !rec.Revoked {
		rec.Revoked = true
		rec.RevokedAt = &at
		m.tokens[jti] = rec
	}
	return nil
}

func (m *memStore) ListTokens(_ context.Context, userID int64) ([]models.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []models.TokenRecord
	for _, rec := range m.tokens {
		if userID == 0 || rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Session{}, m.fail
	}
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }
