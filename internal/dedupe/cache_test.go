// ABOUTME: Tests for the event dedupe cache
// ABOUTME: Validates TTL expiry, size-bounded eviction, sweeping and concurrency safety

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration, size int) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New(ttl, size)
	c.mu.Lock()
	c.now = clock.now
	c.mu.Unlock()
	t.Cleanup(c.Close)
	return c, clock
}

func TestCheckAndMark_FirstThenDuplicate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)

	assert.False(t, c.CheckAndMark("$event1"))
	assert.True(t, c.CheckAndMark("$event1"))
	assert.True(t, c.Seen("$event1"))
	assert.False(t, c.Seen("$event2"))
}

func TestCheckAndMark_Expires(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.CheckAndMark("$event")
	clock.advance(61 * time.Second)

	assert.False(t, c.Seen("$event"))
	assert.False(t, c.CheckAndMark("$event"), "expired key treated as duplicate")
	assert.True(t, c.CheckAndMark("$event"))
	assert.Equal(t, 1, c.Len())
}

func TestCheckAndMark_EvictsOldest(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 3)

	for i := 1; i <= 4; i++ {
		c.CheckAndMark(fmt.Sprintf("k%d", i))
	}

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("k1"))
	assert.True(t, c.Seen("k2"))
	assert.True(t, c.Seen("k4"))
}

func TestCheckAndMark_RemarkedExpiredKeyIsNewest(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 2)

	c.CheckAndMark("$a")
	clock.advance(61 * time.Second)
	c.CheckAndMark("$b")
	assert.False(t, c.CheckAndMark("$a"), "expired key reported as duplicate")

	// full: the next mark must evict $b, which is now the oldest
	c.CheckAndMark("$c")

	assert.True(t, c.Seen("$a"))
	assert.False(t, c.Seen("$b"))
	assert.True(t, c.Seen("$c"))
	assert.Equal(t, 2, c.Len())

	c.mu.Lock()
	assert.Equal(t, []string{"$a", "$c"}, c.queue)
	c.mu.Unlock()
}

func TestSweep_RemovesExpired(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.CheckAndMark("old")
	clock.advance(30 * time.Second)
	c.CheckAndMark("new")
	clock.advance(45 * time.Second)

	c.sweep()

	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Seen("new"))
}

func TestClose_Idempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestCheckAndMark_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 1000)

	var firsts int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.CheckAndMark("$same") {
				atomic.AddInt32(&firsts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), firsts)
}
