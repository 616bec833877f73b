package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coursegrade/backend/gitverify"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/logger"
	"github.com/coursegrade/backend/queue"
)

// Task is one grading run the pool can execute. *grader.Grader is the
// production implementation.
type Task interface {
	NetID() string
	Run(ctx context.Context, progress grader.ProgressFunc) (*grader.Submission, error)
}

// ErrPoolSaturated is returned when the task buffer stays full past the
// admission budget. The queue entry survives; recovery or a rerun
// resubmits it.
var ErrPoolSaturated = errors.New("grading pool saturated")

const (
	defaultTaskBuffer = 256
	admissionBudget   = 5 * time.Second
	subscriberBuffer  = 64
)

// Coordinator owns a bounded pool of concurrent grading runs and the
// registry of live progress subscribers. Pool size bounds external
// process load: once every worker is busy, admitted tasks wait in the
// buffer instead of spawning more processes.
type Coordinator struct {
	queue *queue.Service
	log   *slog.Logger

	tasks chan Task

	mu          sync.Mutex
	subscribers map[string][]chan Event
}

func New(ctx context.Context, q *queue.Service, workers int, log *slog.Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	c := &Coordinator{
		queue:       q,
		log:         log,
		tasks:       make(chan Task, defaultTaskBuffer),
		subscribers: make(map[string][]chan Event),
	}
	for i := 0; i < workers; i++ {
		go c.worker(ctx)
	}
	return c
}

// AddGrader admits a task to the pool. The call returns once the task is
// buffered; execution is fire-and-forget from the caller's view.
func (c *Coordinator) AddGrader(t Task) error {
	select {
	case c.tasks <- t:
		return nil
	case <-time.After(admissionBudget):
		return ErrPoolSaturated
	}
}

// Subscribe registers a progress listener for the student. The channel
// is closed after the run's terminal event. Subscribing before the run
// starts guarantees the full Started → Update* → terminal sequence.
func (c *Coordinator) Subscribe(netID string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	c.mu.Lock()
	c.subscribers[netID] = append(c.subscribers[netID], ch)
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener that no longer wants events, e.g. a
// closed websocket. The channel is not closed here; the caller simply
// stops reading.
func (c *Coordinator) Unsubscribe(netID string, ch <-chan Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	listeners := c.subscribers[netID]
	for i, l := range listeners {
		if l == ch {
			c.subscribers[netID] = append(listeners[:i], listeners[i+1:]...)
			break
		}
	}
	if len(c.subscribers[netID]) == 0 {
		delete(c.subscribers, netID)
	}
}

func (c *Coordinator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-c.tasks:
			c.runTask(ctx, task)
		}
	}
}

func (c *Coordinator) runTask(ctx context.Context, task Task) {
	netID := task.NetID()
	log := c.log.With("net_id", netID)

	// the catch-all: an unexpected panic must never leave a stuck queue
	// entry behind, so it terminates the run with an error notification
	defer func() {
		if r := recover(); r != nil {
			log.Error("grading run panicked", "panic", r)
			c.terminal(ctx, netID, Error{
				Message: "an internal error occurred while grading your submission, please try again",
				Details: fmt.Sprint(r),
			})
		}
	}()

	if err := c.queue.MarkStarted(ctx, netID); err != nil {
		log.Error("failed to mark queue item started", "error", err)
	}
	c.publish(netID, Started{})
	c.broadcastQueueStatus(ctx)

	ctx = logger.WithNetID(ctx, netID)
	submission, err := task.Run(ctx, func(message string) {
		c.publish(netID, Update{Message: message})
	})
	if err != nil {
		log.Error("grading run failed", "error", err)
		c.terminal(ctx, netID, Error{
			Message: userFacingMessage(err),
			Details: err.Error(),
		})
		return
	}

	log.Info("grading run finished",
		"phase", submission.Phase,
		"score", submission.Score,
		"passed", submission.Passed,
		"withheld", submission.Withheld)
	c.terminal(ctx, netID, Results{Submission: submission})
}

// broadcastQueueStatus tells every student still waiting how many runs
// are ahead of theirs. Positions shift whenever a worker claims a run,
// so the broadcast rides on run start.
func (c *Coordinator) broadcastQueueStatus(ctx context.Context) {
	items, err := c.queue.ListAll(ctx)
	if err != nil {
		c.log.Error("failed to list queue for status broadcast", "error", err)
		return
	}
	waiting := items[:0]
	for _, item := range items {
		if !item.Started {
			waiting = append(waiting, item)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].TimeAdded.Before(waiting[j].TimeAdded)
	})
	for pos, item := range waiting {
		c.publish(item.NetID, Update{
			Message: fmt.Sprintf("You are number %d in line for grading", pos+1),
		})
	}
}

// terminal delivers the run's final event, clears the subscriber
// registry entry and removes the queue entry. This is the single point
// where the job stops being active.
func (c *Coordinator) terminal(ctx context.Context, netID string, ev Event) {
	if !isTerminal(ev) {
		panic("terminal called with non-terminal event")
	}
	c.publish(netID, ev)

	c.mu.Lock()
	for _, ch := range c.subscribers[netID] {
		close(ch)
	}
	delete(c.subscribers, netID)
	c.mu.Unlock()

	if err := c.queue.Remove(ctx, netID); err != nil {
		c.log.Error("failed to remove queue item", "net_id", netID, "error", err)
	}
}

// publish fans an event out to the student's current subscribers. A
// slow subscriber loses its oldest buffered event rather than stalling
// the run; both the drain and the send are non-blocking so a consumer
// racing on the channel can never wedge the run.
func (c *Coordinator) publish(netID string, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subscribers[netID] {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
			// dropped the oldest buffered event
		default:
		}
		select {
		case ch <- ev:
		default:
			c.log.Error("failed to deliver event to subscriber",
				"net_id", netID, "event", ev.Type())
		}
	}
}

func userFacingMessage(err error) string {
	if errors.Is(err, gitverify.ErrRepoUnreachable) {
		return "we could not reach your repository, check the url and its visibility"
	}
	return "an internal error occurred while grading your submission, please try again"
}
