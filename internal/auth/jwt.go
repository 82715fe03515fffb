package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

// ErrInvalidToken is returned for tokens that fail to parse or verify.
var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the owner a token was issued to.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// OwnerID returns the subject as a UUID.
func (c *Claims) OwnerID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTConfig holds signing settings.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	cfg JWTConfig
	now func() time.Time
}

// NewTokenManager creates a TokenManager. A zero TTL means 7 days.
func NewTokenManager(cfg JWTConfig) *TokenManager {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "papertrail"
	}
	return &TokenManager{cfg: cfg, now: time.Now}
}

// Issue creates a signed token for the user.
func (m *TokenManager) Issue(user *domain.User) (string, error) {
	now := m.now()
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.Secret))
}

// Validate verifies a token and returns its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(m.cfg.Secret), nil
	},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := claims.OwnerID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
