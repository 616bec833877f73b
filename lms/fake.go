package lms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coursegrade/backend/store"
)

// Fake satisfies Client without a live LMS. Repo urls come from the
// local user table and submitted grades are only logged and remembered.
// Used for local development and tests.
type Fake struct {
	users store.UserDao
	log   *slog.Logger

	mu     sync.Mutex
	grades map[string]float64 // "userID/assignmentNum" -> score
}

func NewFake(users store.UserDao, log *slog.Logger) *Fake {
	return &Fake{users: users, log: log, grades: make(map[string]float64)}
}

func (f *Fake) GetGitRepo(ctx context.Context, lmsUserID int) (string, error) {
	users, err := f.users.GetUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.LmsUserID == lmsUserID {
			return u.RepoURL, nil
		}
	}
	return "", fmt.Errorf("no user with lms id %d", lmsUserID)
}

func (f *Fake) SubmitGrade(ctx context.Context, lmsUserID int, assignmentNum int, score float64, comment string) error {
	f.mu.Lock()
	f.grades[fmt.Sprintf("%d/%d", lmsUserID, assignmentNum)] = score
	f.mu.Unlock()
	f.log.Info("fake lms recorded grade",
		"lms_user_id", lmsUserID,
		"assignment", assignmentNum,
		"score", score,
		"comment", comment)
	return nil
}

func (f *Fake) GetAssignmentDueDate(ctx context.Context, lmsUserID int, assignmentNum int) (time.Time, error) {
	return time.Now().AddDate(1, 0, 0), nil
}

// RecordedGrade returns the last grade submitted for the assignment.
func (f *Fake) RecordedGrade(lmsUserID int, assignmentNum int) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.grades[fmt.Sprintf("%d/%d", lmsUserID, assignmentNum)]
	return score, ok
}
