package store

import (
	"context"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/queue"
)

// User is a course participant known to the autograder.
type User struct {
	NetID     string
	LmsUserID int
	FirstName string
	LastName  string
	RepoURL   string
	Role      string
}

const (
	RoleStudent = "STUDENT"
	RoleAdmin   = "ADMIN"
)

// SubmissionDao is the persistence contract for completed grading runs.
// Submissions are append-only: approval annotates rows, it never deletes
// history (except the explicit admin wipe used for test grading).
type SubmissionDao interface {
	InsertSubmission(ctx context.Context, s grader.Submission) error
	GetMostRecentSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error)
	GetSubmissionsForPhase(ctx context.Context, netID string, phase grader.Phase) ([]grader.Submission, error)
	GetSubmissionsForUser(ctx context.Context, netID string) ([]grader.Submission, error)
	GetAllLatestSubmissions(ctx context.Context, count int) ([]grader.Submission, error)
	GetLastSubmissionForUser(ctx context.Context, netID string) (*grader.Submission, error)
	GetFirstPassingSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error)
	GetBestSubmissionForPhase(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error)
	ApproveWithheldSubmissions(ctx context.Context, netID string, phase grader.Phase, v grader.ScoreVerification) (int, error)
	RemoveSubmissionsByNetID(ctx context.Context, netID string, phase grader.Phase) error
}

// UserDao is the persistence contract for users.
type UserDao interface {
	GetUser(ctx context.Context, netID string) (*User, error)
	UpsertUser(ctx context.Context, u User) error
	SetRepoURL(ctx context.Context, netID string, repoURL string) error
	GetUsers(ctx context.Context) ([]User, error)
}

// compile-time checks that both backends satisfy every contract
var (
	_ queue.Dao     = (*Sqlite)(nil)
	_ SubmissionDao = (*Sqlite)(nil)
	_ UserDao       = (*Sqlite)(nil)

	_ queue.Dao     = (*InMem)(nil)
	_ SubmissionDao = (*InMem)(nil)
	_ UserDao       = (*InMem)(nil)
)
