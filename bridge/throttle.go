package bridge

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttle limits a rate of verification sessions per client address.
type throttle struct {
	limiters map[string]*rate.Limiter
	lastUsed map[string]time.Time
	mutex    sync.RWMutex
	limit    rate.Limit
	burst    int
	cleanup  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Allow checks if one more session from ip can be started.
func (t *throttle) Allow(ip net.IP) bool {
	if t.limit == rate.Inf {
		return true
	}

	// raw bytes are cheaper than ip.String()
	key := string(normalizeIP(ip))
	now := t.now()

	t.mutex.RLock()
	limiter, exists := t.limiters[key]
	t.mutex.RUnlock()

	if exists {
		return limiter.AllowN(now, 1)
	}

	t.mutex.Lock()
	limiter, exists = t.limiters[key]

	if !exists {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = limiter
	}

	t.lastUsed[key] = now
	t.mutex.Unlock()

	return limiter.AllowN(now, 1)
}

// Size returns a number of tracked addresses.
func (t *throttle) Size() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.limiters)
}

func (t *throttle) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
}

func (t *throttle) collect() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	now := t.now()

	for key, lastUsed := range t.lastUsed {
		if now.Sub(lastUsed) > 2*t.cleanup {
			delete(t.limiters, key)
			delete(t.lastUsed, key)
		}
	}
}

func (t *throttle) cleanupLoop() {
	ticker := time.NewTicker(t.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.collect()
		}
	}
}

func normalizeIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}

	return ip
}

// newThrottle creates a throttle. Zero perSecond disables it.
func newThrottle(perSecond float64, burst int, cleanup time.Duration) *throttle {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	rv := &throttle{
		limiters: make(map[string]*rate.Limiter),
		lastUsed: make(map[string]time.Time),
		limit:    limit,
		burst:    max(burst, 1),
		cleanup:  cleanup,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	if limit != rate.Inf {
		go rv.cleanupLoop()
	}

	return rv
}
