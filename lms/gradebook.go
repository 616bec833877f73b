package lms

import (
	"context"
	"fmt"

	"github.com/coursegrade/backend/store"
)

// GradeBook submits grades keyed by net id, translating to the LMS user
// id through the user table. It is the grader's GradeSubmitter.
type GradeBook struct {
	client Client
	users  store.UserDao
}

func NewGradeBook(client Client, users store.UserDao) *GradeBook {
	return &GradeBook{client: client, users: users}
}

func (g *GradeBook) SubmitGrade(ctx context.Context, netID string, assignmentNum int, score float64, comment string) error {
	user, err := g.users.GetUser(ctx, netID)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", netID, err)
	}
	if user == nil {
		return fmt.Errorf("no user %s to submit a grade for", netID)
	}
	return g.client.SubmitGrade(ctx, user.LmsUserID, assignmentNum, score, comment)
}
