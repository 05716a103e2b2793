// ABOUTME: Line-oriented terminal frontend for running the bot locally
// ABOUTME: Reads commands from an io.Reader and prints replies and phrases to an io.Writer

// Package console runs the bot against a terminal as a single conversation.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-phrasebot/internal/command"
	"github.com/2389/coven-phrasebot/internal/controller"
)

// ConversationID is the conversation every console command belongs to.
const ConversationID = "console"

// User names the local sender in logs.
const User = "local"

// Handler executes parsed commands. *controller.Controller satisfies it.
type Handler interface {
	Handles(name string) bool
	Handle(ctx context.Context, cmd controller.Command) error
}

// Console reads commands from in and writes bot output to out.
type Console struct {
	in     io.Reader
	prefix string
	logger *slog.Logger

	mu  sync.Mutex
	out io.Writer
	bot *color.Color
}

// New creates a Console. An empty prefix means command.DefaultPrefix.
func New(in io.Reader, out io.Writer, prefix string, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = command.DefaultPrefix
	}
	return &Console{
		in:     in,
		out:    out,
		prefix: prefix,
		logger: logger.With("component", "console"),
		bot:    color.New(color.FgCyan),
	}
}

// Send prints text as bot output. It serves replies and delivered phrases alike.
func (c *Console) Send(_ context.Context, conversationID, text string) error {
	if conversationID != ConversationID {
		return fmt.Errorf("unknown conversation %q", conversationID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.bot.Fprintf(c.out, "bot> %s\n", text)
	return err
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run handles input lines in order until EOF, a quit command or ctx is done.
func (c *Console) Run(ctx context.Context, h Handler) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
			return
		}
		readErr <- io.EOF
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line = <-lines:
		}

		if quit := c.handleLine(ctx, h, line); quit {
			return nil
		}
	}
}

// handleLine runs one input line and reports whether the user asked to quit.
func (c *Console) handleLine(ctx context.Context, h Handler, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	parsed, ok := command.Parse(line, c.prefix)
	if !ok {
		c.printf("commands start with %q, try %shelp\n", c.prefix, c.prefix)
		return false
	}

	switch parsed.Name {
	case "quit", "exit", "q":
		return true
	case "help":
		c.printHelp()
		return false
	}

	if !h.Handles(parsed.Name) {
		c.printf("unknown command %q, try %shelp\n", parsed.Name, c.prefix)
		return false
	}

	err := h.Handle(ctx, controller.Command{
		ConversationID: ConversationID,
		Name:           parsed.Name,
		Args:           parsed.Args,
		User:           User,
	})
	if err != nil {
		c.logger.Error("command failed", "command", parsed.Name, "error", err)
	}
	return false
}

func (c *Console) printHelp() {
	p := c.prefix
	c.printf("Commands:\n")
	c.printf("  %sstart                 greeting\n", p)
	c.printf("  %sspam                  start sending phrases\n", p)
	c.printf("  %sstop                  stop sending phrases\n", p)
	c.printf("  %sinterval <seconds>    set the delay between phrases\n", p)
	c.printf("  %snew_dict <name>       create a dictionary\n", p)
	c.printf("  %sadd_phrase <text>     add a phrase to the current dictionary\n", p)
	c.printf("  %sset_dict <name>       switch dictionaries\n", p)
	c.printf("  %sdicts                 list dictionaries\n", p)
	c.printf("  %scurrent_dict          show the current dictionary\n", p)
	c.printf("  %squit                  leave\n", p)
}
