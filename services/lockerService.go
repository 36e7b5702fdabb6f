package services

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/cache"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
)

// Locker ... lease based exclusive guard keyed by identifier
type Locker interface {
	// AcquireLock returns the lease token and false when the identifier is already held
	AcquireLock(ctx context.Context, identifier string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, identifier, token string) error
}

// NewLocker ... picks the backend named by lockerBackend
func NewLocker(cfg config.Data, memoryCache *cache.Memory) (Locker, error) {
	switch cfg.LockerBackend {
	case "", constants.LOCKER_MEMORY:
		return NewMemoryLocker(memoryCache, cfg.LockerPrefix), nil
	case constants.LOCKER_REDIS:
		if cfg.RedisAddress == "" {
			return nil, appError.Configuration("lockerBackend is redis but redisAddress is empty")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
		return NewRedisLocker(client, cfg.LockerPrefix), nil
	default:
		return nil, appError.Configuration("unknown lockerBackend %q", cfg.LockerBackend)
	}
}

// MemoryLocker ... single instance locker on top of the memory cache
type MemoryLocker struct {
	Cache  *cache.Memory
	Prefix string
	mu     sync.Mutex
}

// NewMemoryLocker ...
func NewMemoryLocker(memoryCache *cache.Memory, prefix string) *MemoryLocker {
	return &MemoryLocker{Cache: memoryCache, Prefix: prefix}
}

// AcquireLock ...
func (locker *MemoryLocker) AcquireLock(ctx context.Context, identifier string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	locker.mu.Lock()
	defer locker.mu.Unlock()
	if !locker.Cache.Add(locker.Prefix+identifier, token, ttl) {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock ... only the holder of token can release
func (locker *MemoryLocker) ReleaseLock(ctx context.Context, identifier, token string) error {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	if held, ok := locker.Cache.Get(locker.Prefix + identifier).(string); ok && held == token {
		locker.Cache.Delete(locker.Prefix + identifier)
	}
	return nil
}

// release deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker ... locker shared by every collector instance
type RedisLocker struct {
	Client *redis.Client
	Prefix string
}

// NewRedisLocker ...
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{Client: client, Prefix: prefix}
}

// AcquireLock ...
func (locker *RedisLocker) AcquireLock(ctx context.Context, identifier string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	acquired, err := locker.Client.WithContext(ctx).SetNX(locker.Prefix+identifier, token, ttl).Result()
	if err != nil {
		return "", false, appError.New(http.StatusServiceUnavailable, errorcode.LOCK_ERR, "acquire %s: %s", identifier, err)
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock ...
func (locker *RedisLocker) ReleaseLock(ctx context.Context, identifier, token string) error {
	if err := releaseScript.Run(locker.Client.WithContext(ctx), []string{locker.Prefix + identifier}, token).Err(); err != nil && err != redis.Nil {
		return appError.New(http.StatusServiceUnavailable, errorcode.LOCK_ERR, "release %s: %s", identifier, err)
	}
	return nil
}
