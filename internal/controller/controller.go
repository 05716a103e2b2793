// ABOUTME: Per-conversation command state machine driving dictionaries and delivery jobs
// ABOUTME: Loads state, validates input, mutates, saves, then starts or stops the job

// Package controller handles bot commands for each conversation.
//
// Every command runs under the conversation's exclusive lock: load the state,
// seed it on first touch, apply the command, save it, then change the delivery
// job. Delivery ticks take the same lock through Advance, so a command and a
// tick of one conversation never interleave.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/2389/coven-phrasebot/internal/convlock"
	"github.com/2389/coven-phrasebot/internal/metrics"
	"github.com/2389/coven-phrasebot/internal/phrasebook"
	"github.com/2389/coven-phrasebot/internal/scheduler"
	"github.com/2389/coven-phrasebot/internal/store"
)

// ErrUnknownCommand is returned by Handle for command names it does not serve.
var ErrUnknownCommand = errors.New("unknown command")

// Command names.
const (
	CmdStart       = "start"
	CmdSpam        = "spam"
	CmdStop        = "stop"
	CmdInterval    = "interval"
	CmdNewDict     = "new_dict"
	CmdAddPhrase   = "add_phrase"
	CmdSetDict     = "set_dict"
	CmdDicts       = "dicts"
	CmdCurrentDict = "current_dict"
)

// minInterval is the smallest accepted interval in seconds.
const minInterval = 1.0

// Command is one parsed invocation from the dispatch layer.
type Command struct {
	ConversationID string
	Name           string
	Args           []string
	User           string
}

// Sender delivers text to a conversation.
type Sender interface {
	Send(ctx context.Context, conversationID, text string) error
}

// Controller is the command handler shared by all conversations.
type Controller struct {
	store   store.StateStore
	sender  Sender
	locks   *convlock.Locker
	sched   *scheduler.Scheduler
	metrics *metrics.Metrics
	logger  *slog.Logger
	unit    time.Duration

	handlers map[string]handlerFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records command outcomes and delivery metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithIntervalUnit sets the duration of one interval unit (default one second).
func WithIntervalUnit(d time.Duration) Option {
	return func(c *Controller) { c.unit = d }
}

// New creates a Controller and the scheduler it drives.
func New(st store.StateStore, sender Sender, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:  st,
		sender: sender,
		locks:  convlock.New(),
		logger: logger.With("component", "controller"),
		unit:   time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sched = scheduler.New(c.locks, c, logger, scheduler.WithMetrics(c.metrics))
	c.handlers = map[string]handlerFunc{
		CmdStart:       c.handleStart,
		CmdSpam:        c.handleSpam,
		CmdStop:        c.handleStop,
		CmdInterval:    c.handleInterval,
		CmdNewDict:     c.handleNewDict,
		CmdAddPhrase:   c.handleAddPhrase,
		CmdSetDict:     c.handleSetDict,
		CmdDicts:       c.handleDicts,
		CmdCurrentDict: c.handleCurrentDict,
	}
	return c
}

// Handles reports whether name is a command the controller serves.
func (c *Controller) Handles(name string) bool {
	_, ok := c.handlers[name]
	return ok
}

// IsActive reports whether the conversation has a running delivery job.
func (c *Controller) IsActive(conversationID string) bool {
	return c.sched.IsActive(conversationID)
}

// Close cancels every delivery job.
func (c *Controller) Close() {
	c.sched.Close()
}

// Handle runs one command for its conversation. Invalid input is answered and
// logged, and not reported as an error. Persistence failures are answered with
// a generic failure reply and returned.
func (c *Controller) Handle(ctx context.Context, cmd Command) error {
	h, ok := c.handlers[cmd.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}

	unlock, err := c.locks.Lock(ctx, cmd.ConversationID)
	if err != nil {
		return fmt.Errorf("locking conversation: %w", err)
	}
	defer unlock()

	sess, err := c.load(ctx, cmd)
	if err != nil {
		return c.fail(ctx, cmd, opLoad, err)
	}

	replies, err := h(ctx, sess)
	var inErr *inputError
	switch {
	case errors.As(err, &inErr):
		c.logger.Info("rejected command",
			"conversation", cmd.ConversationID,
			"user", cmd.User,
			"command", cmd.Name,
			"reason", inErr.Error(),
		)
		c.metrics.CommandHandled(cmd.Name, metrics.OutcomeInvalidInput)
		c.reply(ctx, cmd.ConversationID, inErr.reply)
		return nil
	case err != nil:
		return c.fail(ctx, cmd, failedOp(err), err)
	}

	if err := sess.commit(ctx); err != nil {
		return c.fail(ctx, cmd, opSave, err)
	}

	c.metrics.CommandHandled(cmd.Name, metrics.OutcomeOK)
	for _, text := range replies {
		c.reply(ctx, cmd.ConversationID, text)
	}
	return nil
}

// Advance implements scheduler.Advancer: it moves the conversation's cursor
// through snapshot and saves the state. The scheduler holds the lock.
func (c *Controller) Advance(ctx context.Context, conversationID string, snapshot []string) (string, error) {
	sess, err := c.load(ctx, Command{ConversationID: conversationID})
	if err != nil {
		c.metrics.PersistenceFailed(opLoad)
		return "", err
	}
	phrase, err := sess.state.NextPhrase(snapshot)
	if err != nil {
		return "", err
	}
	sess.dirty = true
	if err := sess.commit(ctx); err != nil {
		c.metrics.PersistenceFailed(opSave)
		return "", err
	}
	return phrase, nil
}

// fail answers a command that could not be completed.
func (c *Controller) fail(ctx context.Context, cmd Command, op string, err error) error {
	c.logger.Error("command failed",
		"conversation", cmd.ConversationID,
		"user", cmd.User,
		"command", cmd.Name,
		"op", op,
		"error", err,
	)
	if op == opLoad || op == opSave {
		c.metrics.PersistenceFailed(op)
	}
	c.metrics.CommandHandled(cmd.Name, metrics.OutcomeFailed)
	c.reply(ctx, cmd.ConversationID, replyFailure)
	return fmt.Errorf("%s %s: %w", cmd.Name, op, err)
}

func (c *Controller) reply(ctx context.Context, conversationID, text string) {
	if err := c.sender.Send(ctx, conversationID, text); err != nil {
		c.logger.Error("failed to send reply", "conversation", conversationID, "error", err)
	}
}

// deliverTo binds the sender to a conversation for the scheduler.
func (c *Controller) deliverTo(conversationID string) scheduler.SendFunc {
	return func(ctx context.Context, text string) error {
		return c.sender.Send(ctx, conversationID, text)
	}
}

func (c *Controller) period(seconds float64) time.Duration {
	return time.Duration(seconds * float64(c.unit))
}

// periodFits reports whether seconds converts to a positive Duration.
func (c *Controller) periodFits(seconds float64) bool {
	return seconds*float64(c.unit) < float64(math.MaxInt64)
}

// maxInterval is the largest whole number of seconds periodFits accepts.
func (c *Controller) maxInterval() float64 {
	return math.Floor(float64(math.MaxInt64)/float64(c.unit)) - 1
}

// session is the loaded state of one conversation for the duration of a command.
type session struct {
	c     *Controller
	cmd   Command
	state *phrasebook.State
	dirty bool
}

func (c *Controller) load(ctx context.Context, cmd Command) (*session, error) {
	sess := &session{c: c, cmd: cmd}

	data, err := c.store.LoadState(ctx, cmd.ConversationID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		sess.state = phrasebook.NewState()
		sess.dirty = true
		c.logger.Debug("conversation initialized", "conversation", cmd.ConversationID)
		return sess, nil
	case err != nil:
		return nil, fmt.Errorf("loading state: %w", err)
	}

	sess.state, err = phrasebook.Decode(data)
	if err != nil {
		return nil, err
	}
	if sess.state.EnsureInitialized() {
		sess.dirty = true
	}
	return sess, nil
}

// commit saves the state if it changed since it was loaded or last committed.
func (s *session) commit(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	data, err := phrasebook.Encode(s.state)
	if err != nil {
		return err
	}
	if err := s.c.store.SaveState(ctx, s.cmd.ConversationID, data); err != nil {
		return &saveError{err: err}
	}
	s.dirty = false
	return nil
}

// Operations named in failure logs and persistence metrics.
const (
	opLoad     = "load"
	opSave     = "save"
	opSchedule = "schedule"
	opState    = "state"
)

// saveError marks a failed state save inside a handler.
type saveError struct {
	err error
}

func (e *saveError) Error() string { return "saving state: " + e.err.Error() }
func (e *saveError) Unwrap() error { return e.err }

// failedOp names the operation a handler error came from.
func failedOp(err error) string {
	var se *saveError
	switch {
	case errors.As(err, &se):
		return opSave
	case errors.Is(err, scheduler.ErrClosed),
		errors.Is(err, scheduler.ErrInvalidPeriod),
		errors.Is(err, scheduler.ErrEmptyDictionary):
		return opSchedule
	}
	return opState
}

// inputError is a rejected command answered with reply.
type inputError struct {
	reply  string
	reason string
}

func (e *inputError) Error() string { return e.reason }

func rejectf(reply, format string, args ...any) error {
	return &inputError{reply: reply, reason: fmt.Sprintf(format, args...)}
}
