package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidAccessToken indicates the token failed signature or claim validation.
	ErrInvalidAccessToken = errors.New("jwt: invalid access token")
	// ErrExpiredAccessToken indicates the token is past its expiry.
	ErrExpiredAccessToken = errors.New("jwt: access token expired")
)

// AccessClaims are the claims the account service relies on.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c AccessClaims) UserID() string {
	return c.Subject
}

// TokenManager signs and verifies HS256 access tokens issued by the identity provider.
type TokenManager struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenManager constructs a manager for the shared signing key.
func NewTokenManager(signingKey, issuer, audience string) (*TokenManager, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, fmt.Errorf("jwt: signing key is required")
	}
	return &TokenManager{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Issue signs a token for userID valid for ttl.
func (m *TokenManager) Issue(userID string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw and returns its claims.
func (m *TokenManager) Parse(raw string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}

	return &claims, nil
}
