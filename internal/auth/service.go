package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"catalog-api/internal/apperr"
)

const defaultBcryptCost = 10

// UserStore is the persistence the credential service needs. Implementations
// return ErrUserNotFound and ErrUserExists (possibly wrapped) for the matching cases.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByRefreshToken(ctx context.Context, token string) (User, error)
	SetRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

type Service struct {
	users      UserStore
	tokens     *TokenManager
	bcryptCost int
}

func NewService(users UserStore, tokens *TokenManager) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: defaultBcryptCost,
	}
}

func (s *Service) WithBcryptCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (Profile, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return Profile{}, ErrRegistrationFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Profile{}, ErrPasswordTooLong
		}
		return Profile{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return Profile{}, err
		}
		return Profile{}, apperr.Internal(err)
	}

	return user.Profile(), nil
}

// Login checks the credentials and starts a new session. Any session the user
// already had is replaced, so its refresh token stops working.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrLoginFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, err
		}
		return Session{}, apperr.Internal(err)
	}
	if user.PasswordHash == "" {
		return Session{}, apperr.Internal(fmt.Errorf("user %s has no password hash", user.ID))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, apperr.Internal(fmt.Errorf("compare password: %w", err))
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	refreshToken, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return Session{}, apperr.Internal(err)
	}

	return Session{
		Profile:      user.Profile(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges the user's current refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", ErrRefreshTokenMissing
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrRefreshTokenMismatch
		}
		return "", apperr.Internal(err)
	}
	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return "", ErrRefreshTokenMismatch
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", apperr.Internal(err)
	}

	return accessToken, nil
}

// Logout clears the session holding refreshToken. It reports false when no
// user holds that token, which callers treat as already logged out.
func (s *Service) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return false, ErrRefreshTokenMissing
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, apperr.Internal(err)
	}

	if err := s.users.ClearRefreshToken(ctx, user.ID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, apperr.Internal(err)
	}

	return true, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Profile{}, err
		}
		return Profile{}, apperr.Internal(err)
	}
	return user.Profile(), nil
}

func (s *Service) VerifyAccessToken(raw string) (Identity, error) {
	return s.tokens.VerifyAccessToken(raw)
}
