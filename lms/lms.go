// Package lms integrates with the course's learning-management system:
// the source of truth for student repo urls and the destination for
// final grades.
package lms

import (
	"context"
	"time"
)

type Client interface {
	// GetGitRepo returns the repository url the student registered in
	// the LMS.
	GetGitRepo(ctx context.Context, lmsUserID int) (string, error)

	// SubmitGrade writes a score and comment into the grade-book for
	// one assignment.
	SubmitGrade(ctx context.Context, lmsUserID int, assignmentNum int, score float64, comment string) error

	// GetAssignmentDueDate returns the student's due date for the
	// assignment, including any individual extensions.
	GetAssignmentDueDate(ctx context.Context, lmsUserID int, assignmentNum int) (time.Time, error)
}
