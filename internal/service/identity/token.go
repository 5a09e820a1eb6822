// internal/service/identity/token.go

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stagemap/internal/domain/identity"
)

const tokenIssuer = "stagemap"

// JWTTokenManager implements identity.TokenManager with HS256 tokens whose
// subject is the user id
type JWTTokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewJWTTokenManager creates a token manager signing with secret
func NewJWTTokenManager(secret string) *JWTTokenManager {
	return &JWTTokenManager{secret: []byte(secret), now: time.Now}
}

// GenerateToken generates a token for a user
func (m *JWTTokenManager) GenerateToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", identity.ErrInvalidUserInput)
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns the user ID
func (m *JWTTokenManager) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, identity.ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", identity.ErrInvalidToken)
		}
		return "", identity.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", identity.ErrInvalidToken
	}

	return claims.Subject, nil
}
