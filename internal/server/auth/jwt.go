// Package auth implements token issuance/verification and password hashing
// for the server.
package auth

import (
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anandakmagar/authguard/internal/common"
)

// TokenService issues and verifies HS256-signed JWTs carrying the username as
// the subject claim. The signing key is derived once from the configured
// secret and is immutable for the process lifetime; the service is safe for
// concurrent use.
type TokenService struct {
	key             []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

// NewTokenService derives the signing key from secret and fixes the access
// and refresh token lifetimes.
func NewTokenService(secret string, accessValidity, refreshValidity time.Duration) *TokenService {
	key := sha256.Sum256([]byte(secret))
	return &TokenService{
		key:             key[:],
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
	}
}

// AccessValidity returns the configured access token lifetime.
func (s *TokenService) AccessValidity() time.Duration { return s.accessValidity }

// RefreshValidity returns the configured refresh token lifetime.
func (s *TokenService) RefreshValidity() time.Duration { return s.refreshValidity }

// IssueAccessToken returns a signed access token for the given subject.
func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return s.issue(subject, s.accessValidity)
}

// IssueRefreshToken returns a signed refresh token for the given subject.
func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return s.issue(subject, s.refreshValidity)
}

func (s *TokenService) issue(subject string, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	})
	return token.SignedString(s.key)
}

// ExtractSubject verifies the token signature and claims and returns the
// subject. Failures are mapped to sentinel errors:
//
//	common.ErrMalformedToken   — the token cannot be parsed
//	common.ErrInvalidSignature — the signature does not verify
//	common.ErrTokenExpired     — the token is past its expiry
//	common.ErrInvalidToken     — any other verification failure
func (s *TokenService) ExtractSubject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", common.ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", common.ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", common.ErrTokenExpired
		default:
			return "", common.ErrInvalidToken
		}
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// IsValid reports whether the token verifies against the signing key, carries
// exactly expectedSubject (case-sensitive), and has not expired.
func (s *TokenService) IsValid(tokenString, expectedSubject string) bool {
	subject, err := s.ExtractSubject(tokenString)
	return err == nil && subject == expectedSubject
}
