package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/queue"
)

// InMem keeps everything in process memory. Used in tests and for local
// development without a database file.
type InMem struct {
	mu    sync.Mutex
	queue map[string]queue.Item
	subs  []grader.Submission
	users map[string]User
}

func NewInMem() *InMem {
	return &InMem{
		queue: make(map[string]queue.Item),
		users: make(map[string]User),
	}
}

// queue dao

func (m *InMem) Add(ctx context.Context, item queue.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queue[item.NetID]; ok {
		return fmt.Errorf("queue item for %s already exists", item.NetID)
	}
	m.queue[item.NetID] = item
	return nil
}

func (m *InMem) Remove(ctx context.Context, netID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queue, netID)
	return nil
}

func (m *InMem) MarkStarted(ctx context.Context, netID string) error {
	return m.setStarted(netID, true)
}

func (m *InMem) MarkNotStarted(ctx context.Context, netID string) error {
	return m.setStarted(netID, false)
}

func (m *InMem) setStarted(netID string, started bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[netID]
	if !ok {
		return nil
	}
	item.Started = started
	m.queue[netID] = item
	return nil
}

func (m *InMem) IsAlreadyInQueue(ctx context.Context, netID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.queue[netID]
	return ok, nil
}

func (m *InMem) GetAll(ctx context.Context) ([]queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]queue.Item, 0, len(m.queue))
	for _, item := range m.queue {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].TimeAdded.Before(items[j].TimeAdded)
	})
	return items, nil
}

// submission dao

func (m *InMem) InsertSubmission(ctx context.Context, s grader.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, s)
	return nil
}

func (m *InMem) GetMostRecentSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *grader.Submission
	for i := range m.subs {
		s := m.subs[i]
		if s.NetID != netID || s.Phase != phase {
			continue
		}
		if best == nil || best.Timestamp.Before(s.Timestamp) {
			copy := s
			best = &copy
		}
	}
	return best, nil
}

func (m *InMem) GetSubmissionsForPhase(ctx context.Context, netID string, phase grader.Phase) ([]grader.Submission, error) {
	return m.filter(func(s grader.Submission) bool {
		return s.NetID == netID && s.Phase == phase
	}), nil
}

func (m *InMem) GetSubmissionsForUser(ctx context.Context, netID string) ([]grader.Submission, error) {
	return m.filter(func(s grader.Submission) bool {
		return s.NetID == netID
	}), nil
}

func (m *InMem) GetAllLatestSubmissions(ctx context.Context, count int) ([]grader.Submission, error) {
	all := m.filter(func(grader.Submission) bool { return true })
	if count >= 0 && count < len(all) {
		all = all[:count]
	}
	return all, nil
}

func (m *InMem) GetLastSubmissionForUser(ctx context.Context, netID string) (*grader.Submission, error) {
	subs, _ := m.GetSubmissionsForUser(ctx, netID)
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

func (m *InMem) GetFirstPassingSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *grader.Submission
	for i := range m.subs {
		s := m.subs[i]
		if s.NetID != netID || s.Phase != phase || !s.Passed {
			continue
		}
		if first == nil || s.Timestamp.Before(first.Timestamp) {
			copy := s
			first = &copy
		}
	}
	return first, nil
}

func (m *InMem) GetBestSubmissionForPhase(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *grader.Submission
	for i := range m.subs {
		s := m.subs[i]
		if s.NetID != netID || s.Phase != phase {
			continue
		}
		if best == nil || s.Score > best.Score {
			copy := s
			best = &copy
		}
	}
	return best, nil
}

func (m *InMem) ApproveWithheldSubmissions(ctx context.Context, netID string, phase grader.Phase, v grader.ScoreVerification) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	affected := 0
	for i := range m.subs {
		s := &m.subs[i]
		if s.NetID != netID || s.Phase != phase || !s.Withheld {
			continue
		}
		s.Withheld = false
		verification := v
		s.Verification = &verification
		affected++
	}
	return affected, nil
}

func (m *InMem) RemoveSubmissionsByNetID(ctx context.Context, netID string, phase grader.Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s.NetID == netID && s.Phase == phase {
			continue
		}
		kept = append(kept, s)
	}
	m.subs = kept
	return nil
}

// filter returns matching submissions, newest first.
func (m *InMem) filter(keep func(grader.Submission) bool) []grader.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []grader.Submission
	for _, s := range m.subs {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Timestamp.Before(out[i].Timestamp)
	})
	return out
}

// user dao

func (m *InMem) GetUser(ctx context.Context, netID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[netID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *InMem) UpsertUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.NetID] = u
	return nil
}

func (m *InMem) SetRepoURL(ctx context.Context, netID string, repoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[netID]
	if !ok {
		return nil
	}
	u.RepoURL = repoURL
	m.users[netID] = u
	return nil
}

func (m *InMem) GetUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].NetID < users[j].NetID })
	return users, nil
}
