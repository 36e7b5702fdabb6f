package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory ... in-process key/value store with expiry
type Memory struct {
	Cache *cache.Cache
}

// Initialize ...
func Initialize(expiry time.Duration, purgeInterval time.Duration) *Memory {
	return &Memory{
		Cache: cache.New(expiry, purgeInterval),
	}
}

// Set ...
func (memory *Memory) Set(key string, value interface{}, expiry bool) {
	if expiry {
		memory.Cache.Set(key, value, cache.DefaultExpiration)
	} else {
		memory.Cache.Set(key, value, cache.NoExpiration)
	}
}

// SetFor ... stores value for the given duration
func (memory *Memory) SetFor(key string, value interface{}, ttl time.Duration) {
	memory.Cache.Set(key, value, ttl)
}

// Add ... stores value only when key is absent or expired, reporting whether it did
func (memory *Memory) Add(key string, value interface{}, ttl time.Duration) bool {
	return memory.Cache.Add(key, value, ttl) == nil
}

// Get ...
func (memory *Memory) Get(key string) interface{} {
	cacheValue, _ := memory.Cache.Get(key)
	return cacheValue
}

// Delete ...
func (memory *Memory) Delete(key string) {
	memory.Cache.Delete(key)
}
