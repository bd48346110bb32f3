package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// secretLength is the size of the generated signing secret in bytes.
const secretLength = 32

// TokenService signs and verifies bearer tokens with a process-lifetime
// symmetric secret. The secret is generated by NewTokenService and never
// leaves memory, so all tokens are implicitly revoked on restart.
//
// Thread Safety: the secret is read-only after construction; all methods
// are safe for concurrent use.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with a freshly generated secret.
func NewTokenService() (*TokenService, error) {
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating signing secret: %w", err)
	}
	return &TokenService{secret: secret}, nil
}

// Sign produces a compact signed token embedding the subject id with an
// expiry of ttl from now.
func (s *TokenService) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns the subject id.
//
// Every failure mode collapses to ErrTokenInvalid: malformed, expired and
// tampered tokens are indistinguishable to the caller. Expiry uses zero
// clock-skew tolerance; a token expiring at instant T is already invalid
// at T.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(0))
	if err != nil {
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}

	// Strict expiry boundary: valid only while now is before the expiry.
	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return "", ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
