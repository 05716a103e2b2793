// ABOUTME: Tests for the delivery scheduler
// ABOUTME: Covers rotation, replacement, stop guarantees, failures, isolation and shutdown

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2389/coven-phrasebot/internal/convlock"
	"github.com/2389/coven-phrasebot/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// cursorAdvancer keeps one cursor per conversation in memory.
type cursorAdvancer struct {
	mu      sync.Mutex
	cursors map[string]int
	err     error
}

func newCursorAdvancer() *cursorAdvancer {
	return &cursorAdvancer{cursors: make(map[string]int)}
}

func (a *cursorAdvancer) Advance(ctx context.Context, conversationID string, snapshot []string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	idx := a.cursors[conversationID] % len(snapshot)
	a.cursors[conversationID] = (idx + 1) % len(snapshot)
	return snapshot[idx], nil
}

// recorder collects delivered phrases.
type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) send(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func (r *recorder) phrases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newTestScheduler(t *testing.T) (*Scheduler, *convlock.Locker, *cursorAdvancer) {
	t.Helper()
	locks := convlock.New()
	adv := newCursorAdvancer()
	s := New(locks, adv, nil)
	t.Cleanup(s.Close)
	return s, locks, adv
}

// stopLocked stops a job the way the controller does, under the conversation lock.
func stopLocked(t *testing.T, s *Scheduler, locks *convlock.Locker, id string) bool {
	t.Helper()
	unlock, err := locks.Lock(context.Background(), id)
	require.NoError(t, err)
	defer unlock()
	return s.Stop(id)
}

func TestStart_EmptyDictionary(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	rec := &recorder{}

	err := s.Start("room", 10*time.Millisecond, nil, rec.send)
	assert.ErrorIs(t, err, ErrEmptyDictionary)
	assert.False(t, s.IsActive("room"))
}

func TestStart_InvalidPeriod(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	rec := &recorder{}

	err := s.Start("room", 0, []string{"a"}, rec.send)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.False(t, s.IsActive("room"))
}

func TestStart_DeliversCyclically(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	rec := &recorder{}

	require.NoError(t, s.Start("room", 5*time.Millisecond, []string{"a", "b", "c"}, rec.send))
	assert.True(t, s.IsActive("room"))

	require.Eventually(t, func() bool { return rec.count() >= 7 }, 2*time.Second, 5*time.Millisecond)
	got := rec.phrases()[:7]
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, got)
}

func TestStart_FirstTickAfterPeriod(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	rec := &recorder{}

	require.NoError(t, s.Start("room", 200*time.Millisecond, []string{"a"}, rec.send))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_ReplacesExistingJob(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	first := &recorder{}
	second := &recorder{}

	require.NoError(t, s.Start("room", 5*time.Millisecond, []string{"old"}, first.send))
	require.NoError(t, s.Start("room", 5*time.Millisecond, []string{"new"}, second.send))
	assert.Equal(t, 1, s.Active())

	require.Eventually(t, func() bool { return second.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	marker := first.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, marker, first.count(), "replaced job kept delivering")
	for _, p := range second.phrases() {
		assert.Equal(t, "new", p)
	}
}

func TestStart_SnapshotIsCopied(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	rec := &recorder{}
	phrases := []string{"a", "b"}

	require.NoError(t, s.Start("room", 5*time.Millisecond, phrases, rec.send))
	phrases[0] = "mutated"
	phrases = append(phrases, "c")

	require.Eventually(t, func() bool { return rec.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "a", "b"}, rec.phrases()[:4])
}

func TestStop(t *testing.T) {
	s, locks, _ := newTestScheduler(t)
	rec := &recorder{}

	assert.False(t, stopLocked(t, s, locks, "room"), "stop on idle conversation")

	require.NoError(t, s.Start("room", 5*time.Millisecond, []string{"a"}, rec.send))
	assert.True(t, stopLocked(t, s, locks, "room"))
	assert.False(t, s.IsActive("room"))
	assert.False(t, stopLocked(t, s, locks, "room"))
}

func TestStop_NoDeliveryAfterReturn(t *testing.T) {
	s, locks, _ := newTestScheduler(t)
	rec := &recorder{}

	require.NoError(t, s.Start("room", time.Millisecond, []string{"a", "b"}, rec.send))
	require.Eventually(t, func() bool { return rec.count() >= 3 }, 2*time.Second, time.Millisecond)

	require.True(t, stopLocked(t, s, locks, "room"))
	after := rec.count()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.count())
}

func TestTick_NeverOverlaps(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	var inFlight, maxInFlight, calls int32
	slow := func(ctx context.Context, text string) error {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, n)
		}
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
		}
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&calls, 1)
		return nil
	}

	require.NoError(t, s.Start("room", 2*time.Millisecond, []string{"a"}, slow))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestTick_DeliveryFailureKeepsJob(t *testing.T) {
	locks := convlock.New()
	m := metrics.New()
	s := New(locks, newCursorAdvancer(), nil, WithMetrics(m))
	t.Cleanup(s.Close)

	var calls int32
	failing := func(ctx context.Context, text string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("room unreachable")
	}

	require.NoError(t, s.Start("room", 2*time.Millisecond, []string{"a"}, failing))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, 2*time.Second, 2*time.Millisecond)
	assert.True(t, s.IsActive("room"))
}

func TestTick_AdvanceFailureSkipsDelivery(t *testing.T) {
	locks := convlock.New()
	adv := newCursorAdvancer()
	adv.err = errors.New("store down")
	s := New(locks, adv, nil)
	t.Cleanup(s.Close)
	rec := &recorder{}

	require.NoError(t, s.Start("room", 2*time.Millisecond, []string{"a"}, rec.send))
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 0, rec.count())
	assert.True(t, s.IsActive("room"))
}

func TestTick_WaitsForConversationLock(t *testing.T) {
	s, locks, _ := newTestScheduler(t)
	rec := &recorder{}

	unlock, err := locks.Lock(context.Background(), "room")
	require.NoError(t, err)

	require.NoError(t, s.Start("room", 2*time.Millisecond, []string{"a"}, rec.send))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "tick ran while the conversation was locked")

	unlock()
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 2*time.Millisecond)
}

func TestConversationsIndependent(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	blocked := make(chan struct{})
	stuck := func(ctx context.Context, text string) error {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return nil
	}
	defer close(blocked)

	fast := &recorder{}
	require.NoError(t, s.Start("slow-room", 2*time.Millisecond, []string{"x"}, stuck))
	require.NoError(t, s.Start("fast-room", 2*time.Millisecond, []string{"y"}, fast.send))

	require.Eventually(t, func() bool { return fast.count() >= 5 }, 2*time.Second, 2*time.Millisecond)
}

func TestClose(t *testing.T) {
	locks := convlock.New()
	s := New(locks, newCursorAdvancer(), nil)
	rec := &recorder{}

	require.NoError(t, s.Start("a", 2*time.Millisecond, []string{"1"}, rec.send))
	require.NoError(t, s.Start("b", 2*time.Millisecond, []string{"2"}, rec.send))

	s.Close()
	s.Close()

	assert.Equal(t, 0, s.Active())
	after := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, rec.count())

	err := s.Start("a", time.Millisecond, []string{"1"}, rec.send)
	assert.ErrorIs(t, err, ErrClosed)
}
