package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into, and required on, every SSO token.
const Issuer = "sso-provider"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrExpired      = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMalformed    = fmt.Errorf("%w: malformed", ErrInvalidToken)
)

// Claims is the claim set carried by an SSO token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IssuedToken is the result of Mint.
type IssuedToken struct {
	Token     string
	JTI       string
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager signs and verifies SSO tokens with one HMAC algorithm and a
// secret that stays sealed outside of each sign or verify call.
type TokenManager struct {
	secret *memguard.Enclave
	method jwt.SigningMethod
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenManager seals secret and fixes the algorithm (HS256, HS384 or HS512).
func NewTokenManager(secret, algorithm string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token signing secret must not be empty")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	tm := &TokenManager{
		secret: memguard.NewEnclave([]byte(secret)),
		method: method,
		now:    time.Now,
	}
	tm.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(func() time.Time { return tm.now() }),
	)
	return tm, nil
}

// WithClock replaces the time source. Intended for tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

func (tm *TokenManager) Algorithm() string {
	return tm.method.Alg()
}

// Mint issues a token for the user that expires ttl from now.
func (tm *TokenManager) Mint(userID int64, email string, ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 {
		return IssuedToken{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	jti, err := randomHex(16)
	if err != nil {
		return IssuedToken{}, err
	}

	issued := tm.now().UTC().Truncate(time.Second)
	expires := issued.Add(ttl)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        jti,
		},
	}

	key, err := tm.secret.Open()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("opening signing secret: %w", err)
	}
	defer key.Destroy()

	signed, err := jwt.NewWithClaims(tm.method, claims).SignedString(key.Bytes())
	if err != nil {
		return IssuedToken{}, fmt.Errorf("signing token: %w", err)
	}

	return IssuedToken{
		Token:     signed,
		JTI:       jti,
		UserID:    userID,
		Email:     email,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}

// Decode verifies the signature, algorithm, issuer and expiry of token and
// returns its claims. Failures are ErrBadSignature, ErrExpired or
// ErrMalformed; claims are never returned alongside an error.
func (tm *TokenManager) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}

	key, err := tm.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("opening signing secret: %w", err)
	}
	defer key.Destroy()

	parsed, err := tm.parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return key.Bytes(), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrMalformed
	}
	return claims, nil
}
