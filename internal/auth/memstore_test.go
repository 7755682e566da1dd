package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]User
	failGet error
	failSet error

	lookups int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[string]User)}
}

func (s *memUserStore) Create(ctx context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == user.Email {
			return User{}, ErrUserExists
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.byID[user.ID] = user
	return user, nil
}

func (s *memUserStore) GetByID(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failGet != nil {
		return User{}, s.failGet
	}
	user, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failGet != nil {
		return User{}, s.failGet
	}
	for _, user := range s.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *memUserStore) GetByRefreshToken(ctx context.Context, token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failGet != nil {
		return User{}, s.failGet
	}
	for _, user := range s.byID {
		if token != "" && user.RefreshToken == token {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *memUserStore) SetRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	user.RefreshTokenExpiresAt = &expiresAt
	s.byID[userID] = user
	return nil
}

func (s *memUserStore) ClearRefreshToken(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = ""
	user.RefreshTokenExpiresAt = nil
	s.byID[userID] = user
	return nil
}

func (s *memUserStore) stored(id string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

var errStoreDown = errors.New("store down")
