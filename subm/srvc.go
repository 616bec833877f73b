package subm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/store"
)

// Srvc handles submission queries and the manual approval of withheld
// scores.
type Srvc struct {
	subs     store.SubmissionDao
	grades   grader.GradeSubmitter
	policies *grader.PhaseConfigs
	log      *slog.Logger
}

func NewSrvc(subs store.SubmissionDao, grades grader.GradeSubmitter, policies *grader.PhaseConfigs, log *slog.Logger) *Srvc {
	return &Srvc{subs: subs, grades: grades, policies: policies, log: log}
}

// ApprovalRequest releases a withheld score, optionally with a penalty.
type ApprovalRequest struct {
	NetID         string
	Phase         grader.Phase
	ApproverNetID string
	PenaltyPct    int

	// FixedScore, when set, goes to the grade-book as-is instead of
	// applying the penalty to the best submission's score.
	FixedScore *float64

	// Reference, when set, supplies the submission whose score the
	// penalty applies to instead of the best one on record.
	Reference *grader.Submission
}

// Approve annotates every withheld submission for the phase with a
// ScoreVerification and submits the recomputed score to the grade-book.
// Approval creates annotation records; it never rewrites grading
// history.
func (s *Srvc) Approve(ctx context.Context, req ApprovalRequest) error {
	if strings.TrimSpace(req.NetID) == "" || strings.TrimSpace(req.ApproverNetID) == "" {
		return ErrInvalidApproval("student and approver ids must not be blank")
	}
	if req.PenaltyPct < 0 {
		return ErrInvalidApproval("penalty must not be negative")
	}
	if req.FixedScore != nil && *req.FixedScore < 0 {
		return ErrInvalidApproval("fixed score must not be negative")
	}

	withheld, err := s.subs.GetFirstPassingSubmission(ctx, req.NetID, req.Phase)
	if err != nil {
		return fmt.Errorf("look up passing submission: %w", err)
	}
	if withheld == nil {
		return ErrNoMatchingSubmission()
	}

	verification := grader.ScoreVerification{
		OriginalScore: withheld.Score,
		ApproverNetID: req.ApproverNetID,
		ApprovedAt:    time.Now().UTC(),
		PenaltyPct:    req.PenaltyPct,
	}
	affected, err := s.subs.ApproveWithheldSubmissions(ctx, req.NetID, req.Phase, verification)
	if err != nil {
		return fmt.Errorf("approve withheld submissions: %w", err)
	}
	if affected < 1 {
		s.log.Warn("approval affected no submissions",
			"net_id", req.NetID, "phase", req.Phase)
	}

	reference := req.Reference
	if reference == nil {
		reference, err = s.subs.GetBestSubmissionForPhase(ctx, req.NetID, req.Phase)
		if err != nil {
			return fmt.Errorf("look up best submission: %w", err)
		}
		if reference == nil {
			return ErrNoMatchingSubmission()
		}
	}

	approvedScore := reference.Score * (1 - float64(req.PenaltyPct)/100)
	if req.FixedScore != nil {
		approvedScore = *req.FixedScore
	}

	policy, err := s.policies.Policy(req.Phase)
	if err != nil {
		return err
	}
	comment := fmt.Sprintf(
		"Submission initially blocked due to low commits. Submission approved by admin %s",
		req.ApproverNetID)
	err = s.grades.SubmitGrade(ctx, req.NetID, policy.AssignmentNum, approvedScore, comment)
	if err != nil {
		return fmt.Errorf("submit approved grade: %w", err)
	}

	s.log.Info("approved submission",
		"net_id", req.NetID,
		"phase", req.Phase,
		"score", approvedScore,
		"approver", req.ApproverNetID,
		"affected", affected)
	return nil
}

// CheckNewVersion guards against double-grading: it fails when the
// remote head hash matches the student's most recent submission for the
// phase.
func (s *Srvc) CheckNewVersion(ctx context.Context, netID string, phase grader.Phase, remoteHeadHash string) error {
	recent, err := s.subs.GetMostRecentSubmission(ctx, netID, phase)
	if err != nil {
		return fmt.Errorf("look up most recent submission: %w", err)
	}
	if recent != nil && recent.HeadHash == remoteHeadHash {
		return ErrAlreadySubmittedVersion()
	}
	return nil
}
