// Package boltdb provides a single-file store.Store backed by bbolt.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

var (
	bucketUsers        = []byte("users")
	bucketUsersByEmail = []byte("users_by_email")
	bucketTokens       = []byte("tokens")
	bucketSessions     = []byte("sessions")
)

// Store implements store.Store. bbolt serialises write transactions, which is
// what keeps jti and email uniqueness checks race free.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database and creates the buckets it needs.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketUsersByEmail, bucketTokens, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// update and view refuse to start once ctx is done; bbolt itself has no
// notion of cancellation.
func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// userRecord is the persisted form of models.User, which hides the hash
// from JSON.
type userRecord struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r userRecord) model() models.User {
	return models.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func getUser(tx *bbolt.Tx, id int64) (userRecord, error) {
	data := tx.Bucket(bucketUsers).Get(itob(id))
	if data == nil {
		return userRecord{}, store.ErrNotFound
	}
	var r userRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return userRecord{}, fmt.Errorf("decoding user %d: %w", id, err)
	}
	return r, nil
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var r userRecord
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		r, err = getUser(tx, id)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return r.model(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var r userRecord
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(email))
		if id == nil {
			return store.ErrNotFound
		}
		var err error
		r, err = getUser(tx, int64(binary.BigEndian.Uint64(id)))
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return r.model(), nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, active bool) (models.User, error) {
	now := time.Now().UTC()
	r := userRecord{Email: email, PasswordHash: passwordHash, IsActive: active, CreatedAt: now, UpdatedAt: now}

	err := s.update(ctx, func(tx *bbolt.Tx) error {
		byEmail := tx.Bucket(bucketUsersByEmail)
		if byEmail.Get([]byte(email)) != nil {
			return store.ErrDuplicateEmail
		}

		users := tx.Bucket(bucketUsers)
		seq, err := users.NextSequence()
		if err != nil {
			return err
		}
		r.ID = int64(seq)

		if err := putJSON(users, itob(r.ID), r); err != nil {
			return err
		}
		return byEmail.Put([]byte(email), itob(r.ID))
	})
	if err != nil {
		return models.User{}, err
	}
	return r.model(), nil
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		r, err := getUser(tx, id)
		if err != nil {
			return err
		}
		r.IsActive = active
		r.UpdatedAt = time.Now().UTC()
		return putJSON(tx.Bucket(bucketUsers), itob(id), r)
	})
}

func (s *Store) CreateToken(ctx context.Context, rec models.TokenRecord) (models.TokenRecord, error) {
	rec.IssuedAt = rec.IssuedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.Revoked = false
	rec.RevokedAt = nil

	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := getUser(tx, rec.UserID); err != nil {
			return fmt.Errorf("token owner %d: %w", rec.UserID, err)
		}

		tokens := tx.Bucket(bucketTokens)
		if tokens.Get([]byte(rec.JTI)) != nil {
			return store.ErrDuplicateJTI
		}
		seq, err := tokens.NextSequence()
		if err != nil {
			return err
		}
		rec.ID = int64(seq)
		return putJSON(tokens, []byte(rec.JTI), rec)
	})
	if err != nil {
		return models.TokenRecord{}, err
	}
	return rec, nil
}

func getToken(tx *bbolt.Tx, jti string) (models.TokenRecord, error) {
	data := tx.Bucket(bucketTokens).Get([]byte(jti))
	if data == nil {
		return models.TokenRecord{}, store.ErrNotFound
	}
	var rec models.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.TokenRecord{}, fmt.Errorf("decoding token %s: %w", jti, err)
	}
	return rec, nil
}

func (s *Store) FindTokenByJTI(ctx context.Context, jti string) (models.TokenRecord, error) {
	var rec models.TokenRecord
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		rec, err = getToken(tx, jti)
		return err
	})
	return rec, err
}

func (s *Store) RevokeToken(ctx context.Context, jti string, at time.Time) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		rec, err := getToken(tx, jti)
		if err != nil {
			return err
		}
		if rec.Revoked {
			return nil
		}
		at := at.UTC()
		rec.Revoked = true
		rec.RevokedAt = &at
		return putJSON(tx.Bucket(bucketTokens), []byte(jti), rec)
	})
}

func (s *Store) ListTokens(ctx context.Context, userID int64) ([]models.TokenRecord, error) {
	var out []models.TokenRecord
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(k, v []byte) error {
			var rec models.TokenRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding token %s: %w", k, err)
			}
			if userID == 0 || rec.UserID == userID {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	return s.update(ctx, func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketSessions), []byte(sess.ID), sess)
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var sess models.Session
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return store.ErrNotFound
		}
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(id))
	})
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess models.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("decoding session: %w", err)
			}
			if !sess.ExpiresAt.After(before) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = int64(len(stale))
		return nil
	})
	return n, err
}
