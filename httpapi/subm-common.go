package httpapi

import (
	"time"

	"github.com/coursegrade/backend/grader"
)

type rubricItemResponse struct {
	Category       string  `json:"category"`
	Criteria       string  `json:"criteria"`
	Score          float64 `json:"score"`
	PossiblePoints int     `json:"possible_points"`
	EarnedPoints   float64 `json:"earned_points"`
	Notes          string  `json:"notes"`
}

type verificationResponse struct {
	OriginalScore float64   `json:"original_score"`
	ApproverNetID string    `json:"approver_net_id"`
	ApprovedAt    time.Time `json:"approved_at"`
	PenaltyPct    int       `json:"penalty_pct"`
}

type submissionResponse struct {
	ID              string                `json:"id"`
	NetID           string                `json:"net_id"`
	Phase           string                `json:"phase"`
	RepoURL         string                `json:"repo_url"`
	HeadHash        string                `json:"head_hash"`
	Timestamp       time.Time             `json:"timestamp"`
	Score           float64               `json:"score"`
	Passed          bool                  `json:"passed"`
	Withheld        bool                  `json:"withheld"`
	Notes           string                `json:"notes"`
	AdminSubmission bool                  `json:"admin_submission,omitempty"`
	Rubric          []rubricItemResponse  `json:"rubric"`
	Verification    *verificationResponse `json:"verification,omitempty"`
}

func mapRubricItem(item grader.RubricItem) rubricItemResponse {
	return rubricItemResponse{
		Category:       item.Category,
		Criteria:       item.Criteria,
		Score:          item.Results.Score,
		PossiblePoints: item.Results.PossiblePoints,
		EarnedPoints:   item.Results.EarnedPoints(),
		Notes:          item.Results.Notes,
	}
}

func mapSubm(s grader.Submission) submissionResponse {
	resp := submissionResponse{
		ID:              s.ID.String(),
		NetID:           s.NetID,
		Phase:           string(s.Phase),
		RepoURL:         s.RepoURL,
		HeadHash:        s.HeadHash,
		Timestamp:       s.Timestamp,
		Score:           s.Score,
		Passed:          s.Passed,
		Withheld:        s.Withheld,
		Notes:           s.Notes,
		AdminSubmission: s.AdminSubmission,
		Rubric: []rubricItemResponse{
			mapRubricItem(s.Rubric.PassoffTests),
			mapRubricItem(s.Rubric.UnitTests),
			mapRubricItem(s.Rubric.Quality),
			mapRubricItem(s.Rubric.GitCommits),
		},
	}
	if s.Verification != nil {
		resp.Verification = &verificationResponse{
			OriginalScore: s.Verification.OriginalScore,
			ApproverNetID: s.Verification.ApproverNetID,
			ApprovedAt:    s.Verification.ApprovedAt,
			PenaltyPct:    s.Verification.PenaltyPct,
		}
	}
	return resp
}

func mapSubms(subs []grader.Submission) []submissionResponse {
	out := make([]submissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, mapSubm(s))
	}
	return out
}
