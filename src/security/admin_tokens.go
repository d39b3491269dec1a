package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject claim carried by every admin token.
const AdminSubject = "admin"

// MinSecretLength is the shortest JWT_SECRET accepted for admin routes.
const MinSecretLength = 32

var (
	ErrInvalidToken = errors.New("invalid or expired admin token")
	ErrWeakSecret   = fmt.Errorf("JWT secret must be at least %d characters", MinSecretLength)
)

// AdminTokens issues and validates HS256 bearer tokens for the admin API.
type AdminTokens struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewAdminTokens(secret string, expiry time.Duration) (*AdminTokens, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &AdminTokens{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Issue signs a token valid for the configured expiry.
func (a *AdminTokens) Issue() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, subject and expiry.
func (a *AdminTokens) Validate(tokenString string) error {
	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(AdminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
