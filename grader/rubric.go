package grader

import (
	"time"

	"github.com/google/uuid"

	"github.com/coursegrade/backend/gitverify"
	"github.com/coursegrade/backend/testparse"
)

// RubricResults is the outcome for one rubric category. Score is the
// fraction of the category's possible points earned, in [0, 1].
type RubricResults struct {
	Notes          string
	Score          float64
	PossiblePoints int

	// Set for the test categories.
	TestAnalysis *testparse.TestAnalysis

	// Set for the git-commits category.
	CommitVerification *gitverify.CommitVerificationResult
}

// EarnedPoints is the category's contribution to the final score.
func (r RubricResults) EarnedPoints() float64 {
	return r.Score * float64(r.PossiblePoints)
}

type RubricItem struct {
	Category string
	Criteria string
	Results  RubricResults
}

// Rubric is the fixed weighted breakdown of a submission's score.
type Rubric struct {
	PassoffTests RubricItem
	UnitTests    RubricItem
	Quality      RubricItem
	GitCommits   RubricItem

	Passed bool
	Notes  string
}

func (r Rubric) items() []RubricItem {
	return []RubricItem{r.PassoffTests, r.UnitTests, r.Quality, r.GitCommits}
}

// TotalScore collapses the rubric into a percentage in [0, 100].
func (r Rubric) TotalScore() float64 {
	earned, possible := 0.0, 0
	for _, item := range r.items() {
		earned += item.Results.EarnedPoints()
		possible += item.Results.PossiblePoints
	}
	if possible == 0 {
		return 0
	}
	return earned / float64(possible) * 100
}

// ScoreVerification records a manual approval of a withheld submission.
// Approvals never rewrite history: the original score stays on record.
type ScoreVerification struct {
	OriginalScore float64
	ApproverNetID string
	ApprovedAt    time.Time
	PenaltyPct    int
}

// Submission is the immutable record of one completed grading run.
type Submission struct {
	ID              uuid.UUID
	NetID           string
	Phase           Phase
	RepoURL         string
	HeadHash        string
	Timestamp       time.Time
	Rubric          Rubric
	Score           float64 // percentage in [0, 100]
	Passed          bool
	Withheld        bool
	Notes           string
	AdminSubmission bool

	// Verification is nil until an admin approves a withheld score.
	Verification *ScoreVerification
}
