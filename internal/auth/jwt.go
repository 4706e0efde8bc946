package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrWrongMatch   = errors.New("token does not cover this match")
)

// DefaultExpiry is how long a spectator token stays valid.
const DefaultExpiry = 12 * time.Hour

// Claims holds the JWT payload. An empty MatchID lets the holder watch any
// match served by the bot.
type Claims struct {
	Spectator string `json:"spectator"`
	MatchID   string `json:"match_id,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims cover matchID.
func (c *Claims) Allows(matchID string) bool {
	return c.MatchID == "" || c.MatchID == matchID
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secret: []byte(secret), expiry: DefaultExpiry}
}

// WithExpiry returns a copy of m issuing tokens valid for d.
func (m *JWTManager) WithExpiry(d time.Duration) *JWTManager {
	return &JWTManager{secret: m.secret, expiry: d}
}

// GenerateSpectatorToken creates a token for spectator, optionally limited
// to one match.
func (m *JWTManager) GenerateSpectatorToken(spectator, matchID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Spectator: spectator,
		MatchID:   matchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   spectator,
			Issuer:    "cellwar",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
