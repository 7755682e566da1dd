package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-api/internal/observability"
)

const redisLoginKeyPrefix = "login_ip:"

// hitStore counts login hits per client within a window and decides whether one more is allowed.
type hitStore interface {
	allow(ctx context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error)
}

type LoginRateLimiter struct {
	store   hitStore
	maxHits int
	window  time.Duration
	now     func() time.Time
}

// NewLoginRateLimiter keeps counters in process memory; each replica limits on its own.
func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	return newLoginRateLimiter(&memoryHitStore{hitByIP: make(map[string][]time.Time), maxMemory: 5000}, maxHits, window)
}

// NewRedisLoginRateLimiter shares fixed-window counters between replicas through Redis.
func NewRedisLoginRateLimiter(client redis.UniversalClient, maxHits int, window time.Duration) *LoginRateLimiter {
	return newLoginRateLimiter(&redisHitStore{client: client}, maxHits, window)
}

func newLoginRateLimiter(store hitStore, maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		store:   store,
		maxHits: maxHits,
		window:  window,
		now:     time.Now,
	}
}

// Middleware answers 429 with Retry-After once a client exceeds its budget.
// A failing counter store lets the request through.
func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := observability.ClientIP(r)

		allowed, retryAfter, err := l.store.allow(r.Context(), ip, l.maxHits, l.window, l.now().UTC())
		if err != nil {
			observability.CaptureError(err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type memoryHitStore struct {
	mu        sync.Mutex
	hitByIP   map[string][]time.Time
	maxMemory int
}

func (s *memoryHitStore) allow(_ context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	threshold := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hitByIP[ip]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= maxHits {
		s.hitByIP[ip] = filtered
		return false, atLeastOneSecond(filtered[0].Add(window).Sub(now)), nil
	}

	filtered = append(filtered, now)
	s.hitByIP[ip] = filtered

	if len(s.hitByIP) > s.maxMemory {
		for key, value := range s.hitByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(s.hitByIP, key)
			}
		}
	}

	return true, 0, nil
}

type redisHitStore struct {
	client redis.UniversalClient
}

func (s *redisHitStore) allow(ctx context.Context, ip string, maxHits int, window time.Duration, _ time.Time) (bool, time.Duration, error) {
	key := redisLoginKeyPrefix + ip

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr login counter: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("expire login counter: %w", err)
		}
	}

	if count <= int64(maxHits) {
		return true, 0, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read login counter ttl: %w", err)
	}
	if ttl < 0 {
		// A counter without expiry would never reset.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("expire login counter: %w", err)
		}
		ttl = window
	}

	return false, atLeastOneSecond(ttl), nil
}

func atLeastOneSecond(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
