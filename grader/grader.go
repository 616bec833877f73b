package grader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/coursegrade/backend/gitverify"
	"github.com/coursegrade/backend/logger"
	"github.com/coursegrade/backend/procexec"
	"github.com/coursegrade/backend/testparse"
)

// State names the stage a grading run is in. A run moves through the
// states in order exactly once; any failure jumps straight to
// StateFailed.
type State string

const (
	StateFetching           State = "fetching"
	StateVerifyingHistory   State = "verifying_history"
	StateCompiling          State = "compiling"
	StateRunningHiddenTests State = "running_hidden_tests"
	StateRunningCustomTests State = "running_custom_tests"
	StateScoringQuality     State = "scoring_quality"
	StateAssembling         State = "assembling"
	StatePersisting         State = "persisting"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// SubmissionStore is what the grader needs from persistence.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, s Submission) error
	GetMostRecentSubmission(ctx context.Context, netID string, phase Phase) (*Submission, error)
}

// QualityAnalyzer is the external static-analysis collaborator. It
// returns a score in [0, 1] and human-readable notes.
type QualityAnalyzer interface {
	Analyze(ctx context.Context, repoDir string) (float64, string, error)
}

// GradeSubmitter pushes a finished score into the grade-book.
type GradeSubmitter interface {
	SubmitGrade(ctx context.Context, netID string, assignmentNum int, score float64, comment string) error
}

// ProgressFunc receives human-readable updates while a run executes.
type ProgressFunc func(message string)

type Config struct {
	NetID           string
	Phase           Phase
	RepoURL         string
	AdminSubmission bool

	// BaseDir is the parent under which this run's working checkout is
	// created. The run owns that checkout exclusively and removes it on
	// every exit path.
	BaseDir string
}

type Deps struct {
	Submissions SubmissionStore
	Quality     QualityAnalyzer
	Grades      GradeSubmitter
	Policy      PhasePolicy
}

// Grader executes one submission's grading run from fetch to persisted
// rubric. One instance grades one submission once.
type Grader struct {
	cfg   Config
	deps  Deps
	state State
}

func New(cfg Config, deps Deps) *Grader {
	return &Grader{cfg: cfg, deps: deps, state: StateFetching}
}

func (g *Grader) NetID() string { return g.cfg.NetID }
func (g *Grader) Phase() Phase  { return g.cfg.Phase }
func (g *Grader) State() State  { return g.state }

func (g *Grader) fail(err error) (*Submission, error) {
	g.state = StateFailed
	return nil, err
}

// Run drives the grading state machine. A failed commit-history verdict
// and a failed compile are recorded in the rubric rather than aborting,
// so the student gets full diagnostic feedback in one pass. Only
// infrastructure failures return an error, and then no Submission is
// persisted.
func (g *Grader) Run(ctx context.Context, progress ProgressFunc) (*Submission, error) {
	log := logger.FromContext(ctx).With("net_id", g.cfg.NetID, "phase", g.cfg.Phase)
	policy := g.deps.Policy

	// Fetching
	g.state = StateFetching
	progress("Fetching your repository...")
	workDir, err := os.MkdirTemp(g.cfg.BaseDir, "grading-"+g.cfg.NetID+"-")
	if err != nil {
		return g.fail(fmt.Errorf("create working directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Error("failed to remove working directory", "dir", workDir, "error", err)
		}
	}()

	repoDir := filepath.Join(workDir, "repo")
	if err := gitverify.Clone(ctx, g.cfg.RepoURL, repoDir); err != nil {
		return g.fail(err)
	}

	// VerifyingHistory
	g.state = StateVerifyingHistory
	progress("Verifying your commit history...")
	prevHeadHash := ""
	prev, err := g.deps.Submissions.GetMostRecentSubmission(ctx, g.cfg.NetID, g.cfg.Phase)
	if err != nil {
		return g.fail(fmt.Errorf("look up previous submission: %w", err))
	}
	if prev != nil {
		prevHeadHash = prev.HeadHash
	}
	commits, err := gitverify.CollectHistory(ctx, repoDir)
	if err != nil {
		return g.fail(fmt.Errorf("walk commit history: %w", err))
	}
	verification := gitverify.Evaluate(commits, prevHeadHash, policy.CommitPolicy())
	if !verification.Passed {
		progress("Commit history requirement not met; grading continues so you get full feedback.")
	}

	// Compiling
	g.state = StateCompiling
	progress("Compiling your code with the grading harness...")
	compileErr := g.build(ctx, repoDir)

	// RunningHiddenTests / RunningCustomTests
	var passoff, custom testparse.TestAnalysis
	if compileErr != "" {
		// a compile failure short-circuits the test stages but is not
		// fatal: it becomes a zero-count analysis with an error
		log.Info("compile failed, skipping test stages")
		passoff = testparse.TestAnalysis{Root: &testparse.TestNode{Name: "tests"}, Error: compileErr}
		custom = testparse.TestAnalysis{Root: &testparse.TestNode{Name: "tests"}, Error: compileErr}
	} else {
		g.state = StateRunningHiddenTests
		progress("Running the passoff test suite...")
		passoff = g.runTests(ctx, repoDir, policy.PassoffCommand(), policy.Harness.PassoffReportDir, nil)

		g.state = StateRunningCustomTests
		progress("Running your unit tests...")
		custom = g.runTests(ctx, repoDir, policy.Harness.CustomCommand, policy.Harness.CustomReportDir, policy.ExclusionSet())
	}

	// ScoringQuality
	g.state = StateScoringQuality
	progress("Scoring code quality...")
	qualityScore, qualityNotes, err := g.deps.Quality.Analyze(ctx, repoDir)
	if err != nil {
		log.Error("quality analysis failed", "error", err)
		qualityScore, qualityNotes = 0, "code quality could not be assessed: "+err.Error()
	}

	// Assembling
	g.state = StateAssembling
	progress("Assembling your rubric...")
	submission := g.assemble(passoff, custom, qualityScore, qualityNotes, verification)

	// Persisting
	g.state = StatePersisting
	if err := g.deps.Submissions.InsertSubmission(ctx, submission); err != nil {
		return g.fail(fmt.Errorf("persist submission: %w", err))
	}
	if submission.Passed && !submission.Withheld {
		err := g.deps.Grades.SubmitGrade(ctx,
			g.cfg.NetID, policy.AssignmentNum, submission.Score, submission.Notes)
		if err != nil {
			// grade-book failures are an admin problem, not the student's
			log.Error("failed to submit grade to LMS", "error", err)
		}
	}

	g.state = StateDone
	return &submission, nil
}

// build compiles the checkout. Returns "" on success, otherwise a
// diagnostic suitable for a TestAnalysis error.
func (g *Grader) build(ctx context.Context, repoDir string) string {
	h := g.deps.Policy.Harness
	if len(h.BuildCommand) == 0 {
		return ""
	}
	out, err := procexec.Run(ctx, procexec.Cmd{
		Name:    h.BuildCommand[0],
		Args:    h.BuildCommand[1:],
		Dir:     repoDir,
		Timeout: h.Timeout(),
	})
	if err != nil {
		return fmt.Sprintf("build did not finish: %v", err)
	}
	if out.ExitCode != 0 {
		return fmt.Sprintf("your code failed to compile with the grading harness:\n%s", tail(out.Stderr+out.Stdout, 4000))
	}
	return ""
}

// runTests executes one test stage and parses its junit xml report dir.
// A non-zero exit code is expected when tests fail, so only launch and
// timeout problems surface as analysis errors.
func (g *Grader) runTests(ctx context.Context, repoDir string, command []string, reportDir string, excluded map[string]struct{}) testparse.TestAnalysis {
	if len(command) == 0 {
		return testparse.TestAnalysis{
			Root:  &testparse.TestNode{Name: "tests"},
			Error: "no test command configured for this phase",
		}
	}
	h := g.deps.Policy.Harness
	_, err := procexec.Run(ctx, procexec.Cmd{
		Name:    command[0],
		Args:    command[1:],
		Dir:     repoDir,
		Timeout: h.Timeout(),
	})
	if err != nil {
		return testparse.TestAnalysis{
			Root:  &testparse.TestNode{Name: "tests"},
			Error: fmt.Sprintf("test run did not finish: %v", err),
		}
	}
	return testparse.AnalyzeReportDir(filepath.Join(repoDir, reportDir), excluded)
}

func (g *Grader) assemble(
	passoff, custom testparse.TestAnalysis,
	qualityScore float64, qualityNotes string,
	verification gitverify.CommitVerificationResult,
) Submission {
	policy := g.deps.Policy

	passoffCopy, customCopy, verificationCopy := passoff, custom, verification

	passoffItem := RubricItem{
		Category: "Passoff Tests",
		Criteria: "Pass the provided reference tests",
		Results: RubricResults{
			Notes:          passoffNotes(passoff),
			Score:          passoffScore(passoff.Root),
			PossiblePoints: policy.Rubric.PassoffPoints,
			TestAnalysis:   &passoffCopy,
		},
	}
	unitItem := RubricItem{
		Category: "Unit Tests",
		Criteria: "Write effective unit tests of your own",
		Results: RubricResults{
			Notes:          customTestItemNotes(custom, policy.MinUnitTests),
			Score:          unitTestScore(custom.Root, policy.MinUnitTests),
			PossiblePoints: policy.Rubric.UnitPoints,
			TestAnalysis:   &customCopy,
		},
	}
	qualityItem := RubricItem{
		Category: "Code Quality",
		Criteria: "Write readable, well-structured code",
		Results: RubricResults{
			Notes:          qualityNotes,
			Score:          qualityScore,
			PossiblePoints: policy.Rubric.QualityPoints,
		},
	}
	commitScore := 0.0
	if verification.Passed {
		commitScore = 1.0
	}
	commitItem := RubricItem{
		Category: "Git Commits",
		Criteria: "Regularly commit to your repository",
		Results: RubricResults{
			Notes:              verification.Message,
			Score:              commitScore,
			PossiblePoints:     policy.Rubric.CommitPoints,
			CommitVerification: &verificationCopy,
		},
	}

	// the phase is passed on the hidden-test requirement; a gated phase
	// with a failing commit verdict withholds the score until a TA
	// approves it instead of flipping the pass verdict
	passed := passedPassoffTests(&passoff)
	withheld := policy.CommitGated && passed && !verification.Passed

	notes := overallNotes(passed, withheld)

	rubric := Rubric{
		PassoffTests: passoffItem,
		UnitTests:    unitItem,
		Quality:      qualityItem,
		GitCommits:   commitItem,
		Passed:       passed,
		Notes:        notes,
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return Submission{
		ID:              id,
		NetID:           g.cfg.NetID,
		Phase:           g.cfg.Phase,
		RepoURL:         g.cfg.RepoURL,
		HeadHash:        verification.HeadHash,
		Timestamp:       time.Now().UTC(),
		Rubric:          rubric,
		Score:           rubric.TotalScore(),
		Passed:          passed,
		Withheld:        withheld,
		Notes:           notes,
		AdminSubmission: g.cfg.AdminSubmission,
	}
}

func passoffNotes(analysis testparse.TestAnalysis) string {
	if analysis.Error != "" {
		return analysis.Error
	}
	return testNotes(analysis.Root)
}

func customTestItemNotes(analysis testparse.TestAnalysis, minRequired int) string {
	if analysis.Error != "" {
		return analysis.Error
	}
	return unitTestNotes(analysis.Root, minRequired)
}

func overallNotes(passed, withheld bool) string {
	switch {
	case withheld:
		return "Submission passed but is withheld due to insufficient commit history. A TA must approve the score."
	case passed:
		return "Phase passed. Good work!"
	default:
		return "Phase not yet passed. See the rubric for details."
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
