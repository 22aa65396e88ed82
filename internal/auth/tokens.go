package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuer       = "social-autopost-platform"
	accessPrefix = "access:"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token revoked or expired")
)

type Claims struct {
	UserID   string `json:"user_id"`
	ClientID string `json:"client_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// sessionStore is the subset of redis the revocation list uses.
type sessionStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// TokenManager signs and verifies HS256 access tokens. When a redis client
// is set every token's jti is tracked there so tokens can be revoked.
type TokenManager struct {
	secret   []byte
	sessions sessionStore
}

func NewTokenManager(secret string, rdb *redis.Client) (*TokenManager, error) {
	if rdb == nil {
		return newTokenManager(secret, nil)
	}
	return newTokenManager(secret, rdb)
}

func newTokenManager(secret string, sessions sessionStore) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("ACCESS_SECRET must be configured and at least 32 characters")
	}
	return &TokenManager{secret: []byte(secret), sessions: sessions}, nil
}

func (m *TokenManager) IssueAccessToken(ctx context.Context, userID, clientID, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserID:   userID,
		ClientID: clientID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	if m.sessions != nil {
		if err := m.sessions.Set(ctx, accessPrefix+jti, userID, ttl).Err(); err != nil {
			return "", time.Time{}, err
		}
	}

	return signed, exp, nil
}

func (m *TokenManager) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if m.sessions != nil {
		exists, err := m.sessions.Exists(ctx, accessPrefix+claims.ID).Result()
		if err != nil || exists != 1 {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// Revoke drops a token's jti so ValidateAccessToken rejects it. It is a
// no-op when revocation is disabled.
func (m *TokenManager) Revoke(ctx context.Context, jti string) error {
	if m.sessions == nil || jti == "" {
		return nil
	}
	return m.sessions.Del(ctx, accessPrefix+jti).Err()
}

// RevocationEnabled reports whether tokens are tracked in redis.
func (m *TokenManager) RevocationEnabled() bool {
	return m.sessions != nil
}
