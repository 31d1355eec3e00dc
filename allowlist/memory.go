package allowlist

import (
	"context"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory is an allow list which lives in a process memory. It is lost
// on restart and is not shared between instances.
type Memory struct {
	cache *cache.Cache
}

func (m *Memory) Put(_ context.Context, username string, ip net.IP, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	m.cache.Set(username, ip.String(), ttl)

	return nil
}

func (m *Memory) Contains(_ context.Context, username string, ip net.IP) bool {
	value, ok := m.cache.Get(username)
	if !ok {
		return false
	}

	stored, _ := value.(string)

	return stored == ip.String()
}

func (m *Memory) Remove(_ context.Context, username string) error {
	m.cache.Delete(username)

	return nil
}

// Purge drops expired entries. go-cache does not report what was
// evicted so a difference of item counts is returned.
func (m *Memory) Purge(_ context.Context) (int, error) {
	before := m.cache.ItemCount()

	m.cache.DeleteExpired()

	return max(before-m.cache.ItemCount(), 0), nil
}

func (m *Memory) Size(_ context.Context) int {
	return m.cache.ItemCount()
}

func (m *Memory) Close() error {
	m.cache.Flush()

	return nil
}

// NewMemory creates an in-memory allow list. Expired entries are not
// visible, they are dropped by Purge.
func NewMemory() *Memory {
	return &Memory{
		// a janitor is not started: a filter calls Purge itself
		cache: cache.New(cache.NoExpiration, 0),
	}
}
