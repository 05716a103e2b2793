// ABOUTME: Ordered per-room command queues feeding the controller
// ABOUTME: One worker per busy room; rooms never wait on each other and idle workers exit

package matrix

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-phrasebot/internal/controller"
)

const (
	queueDepth      = 32
	workerIdleAfter = time.Minute
)

// roomQueues runs commands of a room in arrival order on a dedicated worker.
type roomQueues struct {
	ctx    context.Context
	handle func(ctx context.Context, cmd controller.Command)
	logger *slog.Logger
	idle   time.Duration

	mu     sync.Mutex
	queues map[string]chan controller.Command
	wg     sync.WaitGroup
}

func newRoomQueues(ctx context.Context, handle func(context.Context, controller.Command), logger *slog.Logger) *roomQueues {
	return &roomQueues{
		ctx:    ctx,
		handle: handle,
		logger: logger,
		idle:   workerIdleAfter,
		queues: make(map[string]chan controller.Command),
	}
}

// enqueue hands cmd to its room's worker, starting one if needed.
// It reports false if the room's queue is full and the command was dropped.
func (r *roomQueues) enqueue(cmd controller.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[cmd.ConversationID]
	if !ok {
		q = make(chan controller.Command, queueDepth)
		r.queues[cmd.ConversationID] = q
		r.wg.Add(1)
		go r.work(cmd.ConversationID, q)
	}

	select {
	case q <- cmd:
		return true
	default:
		r.logger.Warn("room queue full, dropping command", "room", cmd.ConversationID, "command", cmd.Name)
		return false
	}
}

func (r *roomQueues) work(roomID string, q chan controller.Command) {
	defer r.wg.Done()

	timer := time.NewTimer(r.idle)
	defer timer.Stop()

	for {
		select {
		case cmd := <-q:
			r.handle(r.ctx, cmd)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.idle)
		case <-timer.C:
			r.mu.Lock()
			if len(q) == 0 {
				delete(r.queues, roomID)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
			timer.Reset(r.idle)
		case <-r.ctx.Done():
			r.mu.Lock()
			delete(r.queues, roomID)
			r.mu.Unlock()
			return
		}
	}
}

// wait blocks until every worker has exited.
func (r *roomQueues) wait() {
	r.wg.Wait()
}

func (r *roomQueues) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}
