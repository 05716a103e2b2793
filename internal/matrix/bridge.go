// ABOUTME: Matrix client lifecycle, event filtering and command dispatch
// ABOUTME: Logs in with a password, syncs, auto-joins invites and sends text replies

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-phrasebot/internal/command"
	"github.com/2389/coven-phrasebot/internal/config"
	"github.com/2389/coven-phrasebot/internal/controller"
	"github.com/2389/coven-phrasebot/internal/dedupe"
)

const (
	defaultSendTimeout = 30 * time.Second
	joinTimeout        = 10 * time.Second
	dedupeTTL          = 10 * time.Minute
	dedupeMaxSize      = 10000
	deviceDisplayName  = "coven-phrasebot"
)

// ErrNotLoggedIn is returned by Run when Login has not succeeded.
var ErrNotLoggedIn = errors.New("matrix client not logged in")

// Handler executes parsed commands. *controller.Controller satisfies it.
type Handler interface {
	Handles(name string) bool
	Handle(ctx context.Context, cmd controller.Command) error
}

// roomAPI is the subset of the Matrix client used after login.
type roomAPI interface {
	SendText(ctx context.Context, roomID id.RoomID, text string) (*mautrix.RespSendEvent, error)
	JoinRoomByID(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinRoom, error)
}

// Options configures a Bridge.
type Options struct {
	Matrix        config.MatrixConfig
	CommandPrefix string
	SendTimeout   time.Duration
}

// Bridge connects the controller to Matrix rooms.
type Bridge struct {
	client *mautrix.Client
	api    roomAPI
	logger *slog.Logger

	userID       id.UserID
	username     string
	password     string
	allowedRooms []string
	autoJoin     bool
	prefix       string
	sendTimeout  time.Duration

	seen    *dedupe.Cache
	handler Handler
	queues  *roomQueues
}

// NewBridge creates a Matrix client for the configured homeserver. Call Login before Run.
func NewBridge(opts Options, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(opts.Matrix.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	b := newBridge(client, opts, logger)
	b.client = client
	return b, nil
}

func newBridge(api roomAPI, opts Options, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := opts.CommandPrefix
	if prefix == "" {
		prefix = command.DefaultPrefix
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &Bridge{
		api:          api,
		logger:       logger.With("component", "matrix"),
		username:     opts.Matrix.Username,
		password:     opts.Matrix.Password,
		allowedRooms: opts.Matrix.AllowedRooms,
		autoJoin:     opts.Matrix.AutoJoin,
		prefix:       prefix,
		sendTimeout:  timeout,
		seen:         dedupe.New(dedupeTTL, dedupeMaxSize),
	}
}

// Login authenticates with the configured username and password.
func (b *Bridge) Login(ctx context.Context) error {
	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: b.username,
		},
		Password:                 b.password,
		InitialDeviceDisplayName: deviceDisplayName,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("matrix login: %w", err)
	}

	b.userID = resp.UserID
	b.logger.Info("logged in to matrix", "user_id", resp.UserID.String(), "device_id", resp.DeviceID.String())
	return nil
}

// UserID returns the logged in user, or "" before Login.
func (b *Bridge) UserID() string {
	return b.userID.String()
}

// Client exposes the underlying client for encryption setup.
func (b *Bridge) Client() *mautrix.Client {
	return b.client
}

// Send posts text to a room, bounded by the configured send timeout.
func (b *Bridge) Send(ctx context.Context, conversationID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	if _, err := b.api.SendText(ctx, id.RoomID(conversationID), text); err != nil {
		return fmt.Errorf("sending to %s: %w", conversationID, err)
	}
	return nil
}

// Run syncs with the homeserver and dispatches commands to h until ctx is
// cancelled. Room workers have exited when Run returns.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	if b.client == nil || b.userID == "" {
		return ErrNotLoggedIn
	}

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.start(ctx, h)
	defer func() {
		cancel()
		b.stop()
	}()

	// History from before startup is not replayed as commands.
	syncer.OnSync(b.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)
	syncer.OnEventType(event.StateMember, b.handleMemberEvent)

	b.logger.Info("starting matrix sync", "user_id", b.userID.String())

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		cancel()
		<-syncErr
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bridge) start(ctx context.Context, h Handler) {
	b.handler = h
	b.queues = newRoomQueues(ctx, func(ctx context.Context, cmd controller.Command) {
		if err := h.Handle(ctx, cmd); err != nil {
			b.logger.Error("command failed", "room", cmd.ConversationID, "command", cmd.Name, "error", err)
		}
	}, b.logger)
}

func (b *Bridge) stop() {
	if b.queues != nil {
		b.queues.wait()
	}
	b.seen.Close()
}

// handleMessageEvent filters a room message and queues it if it is a command.
func (b *Bridge) handleMessageEvent(_ context.Context, evt *event.Event) {
	cmd, ok := b.commandFromEvent(evt)
	if !ok {
		return
	}

	b.logger.Info("received command",
		"room", cmd.ConversationID,
		"sender", cmd.User,
		"command", cmd.Name,
	)
	b.queues.enqueue(cmd)
}

// commandFromEvent applies the sender, type, room and prefix filters.
func (b *Bridge) commandFromEvent(evt *event.Event) (controller.Command, bool) {
	if evt.Sender == b.userID {
		return controller.Command{}, false
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return controller.Command{}, false
	}

	roomID := evt.RoomID.String()
	if !b.isRoomAllowed(roomID) {
		b.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		return controller.Command{}, false
	}

	if evt.ID != "" && b.seen.CheckAndMark(evt.ID.String()) {
		b.logger.Debug("ignoring duplicate event", "event_id", evt.ID.String())
		return controller.Command{}, false
	}

	parsed, ok := command.Parse(content.Body, b.prefix)
	if !ok {
		return controller.Command{}, false
	}
	if b.handler == nil || !b.handler.Handles(parsed.Name) {
		b.logger.Debug("ignoring unknown command", "room", roomID, "command", parsed.Name)
		return controller.Command{}, false
	}

	return controller.Command{
		ConversationID: roomID,
		Name:           parsed.Name,
		Args:           parsed.Args,
		User:           evt.Sender.String(),
	}, true
}

// handleMemberEvent joins rooms the bot is invited to when auto-join is on.
func (b *Bridge) handleMemberEvent(ctx context.Context, evt *event.Event) {
	if !b.shouldJoin(evt) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	if _, err := b.api.JoinRoomByID(ctx, evt.RoomID); err != nil {
		b.logger.Warn("failed to join room", "room", evt.RoomID.String(), "inviter", evt.Sender.String(), "error", err)
		return
	}
	b.logger.Info("joined room", "room", evt.RoomID.String(), "inviter", evt.Sender.String())
}

func (b *Bridge) shouldJoin(evt *event.Event) bool {
	if !b.autoJoin || evt.StateKey == nil || *evt.StateKey != b.userID.String() {
		return false
	}
	if evt.Content.AsMember().Membership != event.MembershipInvite {
		return false
	}
	return b.isRoomAllowed(evt.RoomID.String())
}

// isRoomAllowed checks if the room is in the allowed list. An empty list allows all.
func (b *Bridge) isRoomAllowed(roomID string) bool {
	if len(b.allowedRooms) == 0 {
		return true
	}
	return slices.Contains(b.allowedRooms, roomID)
}
