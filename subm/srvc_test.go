package subm_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/srvcerror"
	"github.com/coursegrade/backend/store"
	"github.com/coursegrade/backend/subm"
)

type recordedGrade struct {
	NetID         string
	AssignmentNum int
	Score         float64
	Comment       string
}

type fakeGradeBook struct {
	mu     sync.Mutex
	grades []recordedGrade
}

func (f *fakeGradeBook) SubmitGrade(ctx context.Context, netID string, assignmentNum int, score float64, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grades = append(f.grades, recordedGrade{netID, assignmentNum, score, comment})
	return nil
}

const approvalPhasesToml = `
[phases.Phase3]
assignment_num = 941084
min_unit_tests = 13
commit_gated = true
`

func newSrvc(t *testing.T) (*subm.Srvc, *store.InMem, *fakeGradeBook) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phases.toml")
	require.NoError(t, os.WriteFile(path, []byte(approvalPhasesToml), 0644))
	policies, err := grader.LoadPhaseConfigs(path)
	require.NoError(t, err)

	mem := store.NewInMem()
	grades := &fakeGradeBook{}
	return subm.NewSrvc(mem, grades, policies, slog.Default()), mem, grades
}

func withheldSubmission(netID string, score float64, at time.Time) grader.Submission {
	id, _ := uuid.NewV7()
	return grader.Submission{
		ID: id, NetID: netID, Phase: grader.Phase3,
		HeadHash: "h-" + id.String()[:6], Timestamp: at,
		Score: score, Passed: true, Withheld: true,
	}
}

func TestApproveAppliesPenalty(t *testing.T) {
	srvc, mem, grades := newSrvc(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, mem.InsertSubmission(ctx, withheldSubmission("cosmo", 80.0, base)))

	err := srvc.Approve(ctx, subm.ApprovalRequest{
		NetID:         "cosmo",
		Phase:         grader.Phase3,
		ApproverNetID: "ta-jones",
		PenaltyPct:    10,
	})
	require.NoError(t, err)

	// 80 * (1 - 10/100) = 72
	require.Len(t, grades.grades, 1)
	require.InDelta(t, 72.0, grades.grades[0].Score, 1e-9)
	require.Equal(t, 941084, grades.grades[0].AssignmentNum)
	require.Contains(t, grades.grades[0].Comment, "ta-jones")

	subs, _ := mem.GetSubmissionsForPhase(ctx, "cosmo", grader.Phase3)
	require.False(t, subs[0].Withheld)
	require.NotNil(t, subs[0].Verification)
	require.InDelta(t, 80.0, subs[0].Verification.OriginalScore, 1e-9)
	require.Equal(t, 10, subs[0].Verification.PenaltyPct)
}

func TestApproveFixedScoreOverridesPenaltyMath(t *testing.T) {
	srvc, mem, grades := newSrvc(t)
	ctx := context.Background()

	require.NoError(t, mem.InsertSubmission(ctx, withheldSubmission("cosmo", 80.0, time.Now().UTC())))

	fixed := 55.5
	err := srvc.Approve(ctx, subm.ApprovalRequest{
		NetID:         "cosmo",
		Phase:         grader.Phase3,
		ApproverNetID: "ta-jones",
		PenaltyPct:    10,
		FixedScore:    &fixed,
	})
	require.NoError(t, err)
	require.InDelta(t, 55.5, grades.grades[0].Score, 1e-9)
}

func TestApproveNoMatchingSubmission(t *testing.T) {
	srvc, _, _ := newSrvc(t)

	err := srvc.Approve(context.Background(), subm.ApprovalRequest{
		NetID:         "ghost",
		Phase:         grader.Phase3,
		ApproverNetID: "ta-jones",
	})
	require.Error(t, err)
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	require.Equal(t, subm.ErrCodeNoMatchingSubmission, srvcErr.ErrorCode())
}

func TestApproveValidatesInput(t *testing.T) {
	srvc, _, _ := newSrvc(t)
	ctx := context.Background()

	err := srvc.Approve(ctx, subm.ApprovalRequest{NetID: " ", Phase: grader.Phase3, ApproverNetID: "ta"})
	require.Error(t, err)

	err = srvc.Approve(ctx, subm.ApprovalRequest{NetID: "cosmo", Phase: grader.Phase3, ApproverNetID: "ta", PenaltyPct: -5})
	require.Error(t, err)
}

func TestCheckNewVersion(t *testing.T) {
	srvc, mem, _ := newSrvc(t)
	ctx := context.Background()

	sub := withheldSubmission("cosmo", 80.0, time.Now().UTC())
	sub.HeadHash = "abc123"
	require.NoError(t, mem.InsertSubmission(ctx, sub))

	require.NoError(t, srvc.CheckNewVersion(ctx, "cosmo", grader.Phase3, "fresh-hash"))

	err := srvc.CheckNewVersion(ctx, "cosmo", grader.Phase3, "abc123")
	require.Error(t, err)
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	require.Equal(t, subm.ErrCodeAlreadySubmittedVersion, srvcErr.ErrorCode())
}
