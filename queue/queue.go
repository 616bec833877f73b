package queue

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/srvcerror"
)

// Item is a pending-or-in-progress grading request for one student.
// At most one live Item exists per net id.
type Item struct {
	NetID     string
	Phase     grader.Phase
	TimeAdded time.Time
	Started   bool
}

// Dao is the durable storage behind the queue.
type Dao interface {
	Add(ctx context.Context, item Item) error
	Remove(ctx context.Context, netID string) error
	MarkStarted(ctx context.Context, netID string) error
	MarkNotStarted(ctx context.Context, netID string) error
	IsAlreadyInQueue(ctx context.Context, netID string) (bool, error)
	GetAll(ctx context.Context) ([]Item, error)
}

const ErrCodeAlreadyQueued = "already_queued"

func ErrAlreadyQueued() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeAlreadyQueued,
		"you are already in the grading queue",
	).SetHttpStatusCode(http.StatusBadRequest)
}

// Service enforces the one-live-item-per-student invariant over the Dao.
// The check-then-add sequence is serialized so concurrent enqueue
// attempts for the same student cannot both succeed.
type Service struct {
	dao Dao
	mu  sync.Mutex
}

func NewService(dao Dao) *Service {
	return &Service{dao: dao}
}

// Enqueue registers a grading request. Fails with ErrAlreadyQueued when
// the student already has a live entry; no state changes in that case.
func (s *Service) Enqueue(ctx context.Context, netID string, phase grader.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued, err := s.dao.IsAlreadyInQueue(ctx, netID)
	if err != nil {
		return err
	}
	if queued {
		return ErrAlreadyQueued()
	}
	return s.dao.Add(ctx, Item{
		NetID:     netID,
		Phase:     phase,
		TimeAdded: time.Now().UTC(),
		Started:   false,
	})
}

func (s *Service) MarkStarted(ctx context.Context, netID string) error {
	return s.dao.MarkStarted(ctx, netID)
}

func (s *Service) Remove(ctx context.Context, netID string) error {
	return s.dao.Remove(ctx, netID)
}

func (s *Service) ListAll(ctx context.Context) ([]Item, error) {
	return s.dao.GetAll(ctx)
}

// MarkAllNotStarted re-arms every entry. Called at process restart so
// items that were mid-run when the process died get graded from scratch.
func (s *Service) MarkAllNotStarted(ctx context.Context) error {
	items, err := s.dao.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.dao.MarkNotStarted(ctx, item.NetID); err != nil {
			return err
		}
	}
	return nil
}

// Active splits the queue into waiting and in-flight students.
func (s *Service) Active(ctx context.Context) (inQueue []string, grading []string, err error) {
	items, err := s.dao.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	inQueue = []string{}
	grading = []string{}
	for _, item := range items {
		if item.Started {
			grading = append(grading, item.NetID)
		} else {
			inQueue = append(inQueue, item.NetID)
		}
	}
	return inQueue, grading, nil
}
