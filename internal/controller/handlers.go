// ABOUTME: Handlers for each bot command
// ABOUTME: Each validates its arguments, mutates the session state and returns the replies

package controller

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/2389/coven-phrasebot/internal/phrasebook"
	"github.com/2389/coven-phrasebot/internal/scheduler"
)

// handlerFunc runs one command. An *inputError rejects the command without
// saving; any other error aborts it.
type handlerFunc func(ctx context.Context, s *session) ([]string, error)

func (c *Controller) handleStart(ctx context.Context, s *session) ([]string, error) {
	c.logger.Info("user started bot", "conversation", s.cmd.ConversationID, "user", s.cmd.User)
	return []string{replyGreeting}, nil
}

func (c *Controller) handleSpam(ctx context.Context, s *session) ([]string, error) {
	if err := s.commit(ctx); err != nil {
		return nil, err
	}
	if err := c.startJob(s); err != nil {
		return nil, err
	}
	c.logger.Info("user started spamming",
		"conversation", s.cmd.ConversationID,
		"user", s.cmd.User,
		"dictionary", s.state.Current(),
	)
	return nil, nil
}

// startJob starts delivery of a fresh snapshot of the current dictionary.
func (c *Controller) startJob(s *session) error {
	interval := s.state.Interval()
	if !c.periodFits(interval) {
		// intervals saved before the upper bound existed
		return rejectf(replyIntervalTooLarge(c.maxInterval()), "stored interval %v does not fit a period", interval)
	}

	snapshot := s.state.Snapshot()
	err := c.sched.Start(s.cmd.ConversationID, c.period(interval), snapshot, c.deliverTo(s.cmd.ConversationID))
	if errors.Is(err, scheduler.ErrEmptyDictionary) {
		name := s.state.Current()
		return rejectf(replyEmptyDictionary(name), "dictionary %q is empty", name)
	}
	return err
}

func (c *Controller) handleStop(ctx context.Context, s *session) ([]string, error) {
	stopped := c.sched.Stop(s.cmd.ConversationID)
	c.logger.Info("user stopped spamming",
		"conversation", s.cmd.ConversationID,
		"user", s.cmd.User,
		"was_active", stopped,
	)
	return []string{replyStopped}, nil
}

func (c *Controller) handleInterval(ctx context.Context, s *session) ([]string, error) {
	switch len(s.cmd.Args) {
	case 0:
		return nil, rejectf(replyIntervalUsage, "interval given zero arguments")
	case 1:
	default:
		return nil, rejectf(replyIntervalFormat, "interval given %d arguments", len(s.cmd.Args))
	}

	value, err := strconv.ParseFloat(s.cmd.Args[0], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, rejectf(replyIntervalFormat, "interval %q is not a number", s.cmd.Args[0])
	}

	if !c.periodFits(value) {
		return nil, rejectf(replyIntervalTooLarge(c.maxInterval()), "interval %v is too large", value)
	}

	var replies []string
	if value < minInterval {
		value = minInterval
		replies = append(replies, replyIntervalClamp)
	}
	if err := s.state.SetInterval(value); err != nil {
		return nil, err
	}
	s.dirty = true
	if err := s.commit(ctx); err != nil {
		return nil, err
	}
	replies = append(replies, replyIntervalSet(value))

	c.logger.Info("user set interval",
		"conversation", s.cmd.ConversationID,
		"user", s.cmd.User,
		"interval", value,
	)

	if c.sched.Stop(s.cmd.ConversationID) {
		if err := c.startJob(s); err != nil {
			var inErr *inputError
			if errors.As(err, &inErr) {
				// The interval is saved; report why delivery did not resume.
				c.logger.Info("delivery not restarted",
					"conversation", s.cmd.ConversationID,
					"reason", inErr.Error(),
				)
				return append(replies, inErr.reply), nil
			}
			return nil, err
		}
	}
	return replies, nil
}

func (c *Controller) handleNewDict(ctx context.Context, s *session) ([]string, error) {
	if len(s.cmd.Args) != 1 {
		return nil, rejectf(replyNewDictUsage, "new_dict given %d arguments", len(s.cmd.Args))
	}
	name := s.cmd.Args[0]

	err := s.state.Create(name)
	switch {
	case errors.Is(err, phrasebook.ErrInvalidName):
		return nil, rejectf(replyInvalidName(name), "%v", err)
	case errors.Is(err, phrasebook.ErrAlreadyExists):
		return nil, rejectf(replyAlreadyExists(name), "%v", err)
	case err != nil:
		return nil, err
	}
	s.dirty = true
	return []string{replyDictCreated(name)}, nil
}

func (c *Controller) handleAddPhrase(ctx context.Context, s *session) ([]string, error) {
	if len(s.cmd.Args) == 0 {
		return nil, rejectf(replyAddPhraseUsage, "add_phrase given zero arguments")
	}
	phrase := strings.Join(s.cmd.Args, " ")
	dict := s.state.Current()

	if err := s.state.AppendPhrase(dict, phrase); err != nil {
		if errors.Is(err, phrasebook.ErrEmptyPhrase) {
			return nil, rejectf(replyAddPhraseUsage, "%v", err)
		}
		return nil, err
	}
	s.dirty = true
	return []string{replyPhraseAdded(phrase, dict)}, nil
}

func (c *Controller) handleSetDict(ctx context.Context, s *session) ([]string, error) {
	if len(s.cmd.Args) != 1 {
		return nil, rejectf(replySetDictUsage, "set_dict given %d arguments", len(s.cmd.Args))
	}
	name := s.cmd.Args[0]

	if err := s.state.SetCurrent(name); err != nil {
		if errors.Is(err, phrasebook.ErrNotFound) {
			return nil, rejectf(replyUnknownDict(name), "%v", err)
		}
		return nil, err
	}
	s.dirty = true
	return []string{replyDictSelected(name)}, nil
}

func (c *Controller) handleDicts(ctx context.Context, s *session) ([]string, error) {
	return []string{strings.Join(s.state.Names(), " ")}, nil
}

func (c *Controller) handleCurrentDict(ctx context.Context, s *session) ([]string, error) {
	return []string{s.state.Current()}, nil
}
