package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidCredentials is the single failure returned for an unknown email,
// a wrong password or a disabled account.
var ErrInvalidCredentials = errors.New("invalid credentials")

const DefaultBcryptCost = 12

// Hasher hashes new passwords with bcrypt and verifies both bcrypt and
// legacy passlib pbkdf2-sha256 hashes.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// NewHasher clamps cost into bcrypt's accepted range; zero selects the default.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int {
	return h.cost
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches stored. A malformed hash is a
// mismatch, not an error.
func (h *Hasher) Verify(password, stored string) bool {
	if strings.HasPrefix(stored, pbkdf2Prefix) {
		return verifyPBKDF2(password, stored)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// VerifyDummy burns the same work as a real verification. Callers use it
// when the account does not exist so that timing does not reveal that.
func (h *Hasher) VerifyDummy(password string) {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
		if err == nil {
			h.dummy = string(b)
		}
	})
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummy), []byte(password))
}

const pbkdf2Prefix = "$pbkdf2-sha256$"

// passlib's "adapted base64": standard alphabet with '.' for '+', unpadded.
var ab64 = base64.RawStdEncoding

func ab64Decode(s string) ([]byte, error) {
	return ab64.DecodeString(strings.ReplaceAll(s, ".", "+"))
}

// verifyPBKDF2 checks $pbkdf2-sha256$<rounds>$<salt>$<checksum>.
func verifyPBKDF2(password, stored string) bool {
	parts := strings.Split(strings.TrimPrefix(stored, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds < 1 {
		return false
	}
	salt, err := ab64Decode(parts[1])
	if err != nil {
		return false
	}
	want, err := ab64Decode(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
