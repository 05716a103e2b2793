// ABOUTME: Registry of per-conversation repeating delivery jobs
// ABOUTME: Ticks run under the conversation lock so Stop is never followed by a late delivery

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-phrasebot/internal/convlock"
	"github.com/2389/coven-phrasebot/internal/metrics"
)

var (
	// ErrEmptyDictionary is returned by Start for an empty phrase snapshot.
	ErrEmptyDictionary = errors.New("dictionary is empty")

	// ErrInvalidPeriod is returned by Start for a non-positive period.
	ErrInvalidPeriod = errors.New("period must be positive")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("scheduler closed")
)

// Advancer produces the next phrase of a snapshot for a conversation and
// persists the moved cursor. It is called with the conversation lock held.
type Advancer interface {
	Advance(ctx context.Context, conversationID string, snapshot []string) (string, error)
}

// SendFunc delivers one phrase to the job's conversation.
type SendFunc func(ctx context.Context, text string) error

type job struct {
	id             string
	conversationID string
	period         time.Duration
	phrases        []string
	send           SendFunc
	done           chan struct{}
}

// Scheduler drives the delivery jobs of all conversations.
type Scheduler struct {
	locks    *convlock.Locker
	advancer Advancer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records delivery outcomes and the active job count.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler sharing locks with the command handler.
func New(locks *convlock.Locker, advancer Advancer, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		locks:    locks,
		advancer: advancer,
		logger:   logger.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers a job delivering phrases to conversationID every period,
// replacing any job already registered for it. phrases is copied.
// The caller must hold the conversation lock.
func (s *Scheduler) Start(conversationID string, period time.Duration, phrases []string, send SendFunc) error {
	if len(phrases) == 0 {
		return ErrEmptyDictionary
	}
	if period <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}

	snapshot := make([]string, len(phrases))
	copy(snapshot, phrases)
	j := &job{
		id:             uuid.New().String(),
		conversationID: conversationID,
		period:         period,
		phrases:        snapshot,
		send:           send,
		done:           make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	replaced := s.removeLocked(conversationID)
	s.jobs[conversationID] = j
	active := len(s.jobs)
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.SetActiveJobs(active)
	s.logger.Info("delivery job started",
		"conversation", conversationID,
		"job_id", j.id,
		"period", period,
		"phrases", len(snapshot),
		"replaced", replaced,
	)

	go s.run(j)
	return nil
}

// Stop cancels the conversation's job. It reports whether a job was removed.
// The caller must hold the conversation lock.
func (s *Scheduler) Stop(conversationID string) bool {
	s.mu.Lock()
	removed := s.removeLocked(conversationID)
	active := len(s.jobs)
	s.mu.Unlock()

	if removed {
		s.metrics.SetActiveJobs(active)
		s.logger.Info("delivery job stopped", "conversation", conversationID)
	}
	return removed
}

// IsActive reports whether the conversation has a registered job.
func (s *Scheduler) IsActive(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[conversationID]
	return ok
}

// Active returns the number of registered jobs.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close cancels all jobs and waits for their goroutines to exit.
// It is safe to call multiple times.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for id := range s.jobs {
			s.removeLocked(id)
		}
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.metrics.SetActiveJobs(0)
}

// removeLocked unregisters and signals the conversation's job. Must be called with mu held.
func (s *Scheduler) removeLocked(conversationID string) bool {
	j, ok := s.jobs[conversationID]
	if !ok {
		return false
	}
	delete(s.jobs, conversationID)
	close(j.done)
	return true
}

// current reports whether j is still the registered job for its conversation.
func (s *Scheduler) current(j *job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[j.conversationID] == j
}

func (s *Scheduler) run(j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(j)
		case <-j.done:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(j *job) {
	unlock, err := s.locks.Lock(s.ctx, j.conversationID)
	if err != nil {
		return
	}
	defer unlock()

	if !s.current(j) {
		return
	}

	phrase, err := s.advancer.Advance(s.ctx, j.conversationID, j.phrases)
	if err != nil {
		s.logger.Error("advancing cursor failed, skipping tick",
			"conversation", j.conversationID,
			"job_id", j.id,
			"error", err,
		)
		return
	}

	if err := j.send(s.ctx, phrase); err != nil {
		s.metrics.DeliveryFailed()
		s.logger.Error("delivery failed, phrase dropped",
			"conversation", j.conversationID,
			"job_id", j.id,
			"error", err,
		)
		return
	}

	s.metrics.PhraseDelivered()
	s.logger.Debug("phrase delivered", "conversation", j.conversationID, "job_id", j.id)
}
