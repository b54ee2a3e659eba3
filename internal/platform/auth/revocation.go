package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList tracks tokens that were invalidated before their
// natural expiry, typically by logout. Entries only need to live as
// long as the token would have.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList keeps revoked JTIs in memory with automatic
// cleanup of expired entries. Suitable for single-instance deployments
// and tests; revocations do not survive a restart.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // JTI -> expiry
	done    chan struct{}
}

// NewMemoryRevocationList creates a list and starts a background
// goroutine that removes expired entries every 5 minutes.
func NewMemoryRevocationList() *MemoryRevocationList {
	l := &MemoryRevocationList{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// Count returns the number of tracked revocations, expired or not.
func (l *MemoryRevocationList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (l *MemoryRevocationList) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (l *MemoryRevocationList) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup drops entries for tokens that are past their natural expiry.
// An expired token fails validation anyway, so tracking its revocation
// no longer serves a purpose.
func (l *MemoryRevocationList) cleanup() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for jti, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, jti)
		}
	}
}

const revokedKeyPrefix = "trl:jti:"

// RedisRevocationList shares revocation state across instances through
// Redis. Keys expire on their own, matching the token lifetime, so no
// cleanup pass is needed.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	// The key's existence is the marker; the value is irrelevant.
	return l.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
