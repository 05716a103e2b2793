// ABOUTME: Thread-safe TTL cache of processed Matrix event IDs
// ABOUTME: Lets the bridge drop events the homeserver redelivers after a sync restart

package dedupe

import (
	"sync"
	"time"
)

// Cache remembers keys for ttl, holding at most maxSize of them. When full,
// the oldest key is forgotten first.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time // key -> time it was marked
	queue   []string             // keys in mark order, oldest first
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache and starts its background sweeper.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// Seen reports whether key was marked within the ttl.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(key)
}

// CheckAndMark marks key and reports whether it was already marked within the
// ttl. Check and mark happen atomically.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.liveLocked(key) {
		return true
	}
	if _, ok := c.seen[key]; ok {
		// expired but not swept yet: re-marked keys become the newest
		c.dropFromQueueLocked(key)
	} else {
		for len(c.seen) >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.queue = append(c.queue, key)
	c.seen[key] = c.now()
	return false
}

// Len returns the number of remembered keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) liveLocked(key string) bool {
	at, ok := c.seen[key]
	return ok && c.now().Sub(at) < c.ttl
}

func (c *Cache) evictOldestLocked() {
	for len(c.queue) > 0 {
		key := c.queue[0]
		c.queue = c.queue[1:]
		if _, ok := c.seen[key]; ok {
			delete(c.seen, key)
			return
		}
	}
}

func (c *Cache) dropFromQueueLocked(key string) {
	for i, k := range c.queue {
		if k == key {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

func (c *Cache) sweepLoop(every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep drops expired keys and compacts the queue.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.queue[:0]
	for _, key := range c.queue {
		if c.liveLocked(key) {
			kept = append(kept, key)
			continue
		}
		delete(c.seen, key)
	}
	c.queue = kept
}

// Close stops the sweeper. It is safe to call multiple times.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
