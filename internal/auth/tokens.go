package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"catalog-api/internal/apperr"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the payload of both token kinds. The kinds differ only by secret and lifetime.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) IssueAccessToken(user User) (string, error) {
	token, _, err := m.sign(user, m.accessSecret, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken returns the signed token and the moment it expires.
func (m *TokenManager) IssueRefreshToken(user User) (string, time.Time, error) {
	token, expiresAt, err := m.sign(user, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyAccessToken reports ErrAccessTokenExpired separately from every other
// failure so clients know when the refresh flow is worth trying.
func (m *TokenManager) VerifyAccessToken(raw string) (Identity, error) {
	claims, err := m.parse(raw, m.accessSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(ErrAccessTokenExpired, err)
		}
		return Identity{}, apperr.Wrap(ErrAccessTokenInvalid, err)
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

func (m *TokenManager) VerifyRefreshToken(raw string) (Claims, error) {
	claims, err := m.parse(raw, m.refreshSecret)
	if err != nil {
		return Claims{}, apperr.Wrap(ErrRefreshTokenInvalid, err)
	}
	return claims, nil
}

func (m *TokenManager) sign(user User, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (m *TokenManager) parse(raw string, secret []byte) (Claims, error) {
	if raw == "" {
		return Claims{}, errors.New("empty token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if claims.UserID == "" {
		return Claims{}, errors.New("token has no user id")
	}

	return claims, nil
}
