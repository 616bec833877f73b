package grader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/coursegrade/backend/gitverify"
)

// RubricConfig carries the per-phase point weights for each rubric
// category.
type RubricConfig struct {
	PassoffPoints int `toml:"passoff_points"`
	UnitPoints    int `toml:"unit_points"`
	QualityPoints int `toml:"quality_points"`
	CommitPoints  int `toml:"commit_points"`
}

// Harness describes how to build the student's code together with the
// grading harness and how to run each test stage. Test commands are
// expected to write junit xml reports into their report directory,
// relative to the checkout root.
type Harness struct {
	BuildCommand   []string `toml:"build"`
	PassoffCommand []string `toml:"passoff"`
	CustomCommand  []string `toml:"custom"`

	PassoffReportDir string `toml:"passoff_report_dir"`
	CustomReportDir  string `toml:"custom_report_dir"`

	TimeoutSeconds int `toml:"timeout_seconds"`
}

func (h Harness) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// PhasePolicy is the value object that specializes grading for one
// phase: which hidden packages run, how many student tests are expected,
// the commit-history bar and whether it gates the phase, and the rubric
// weights. There is one Grader implementation; policies are data.
type PhasePolicy struct {
	Phase         Phase
	AssignmentNum int      `toml:"assignment_num"`
	MinUnitTests  int      `toml:"min_unit_tests"`
	CommitGated   bool     `toml:"commit_gated"`
	PassoffSuites []string `toml:"passoff_suites"`

	// ExcludedCustomTests are hidden reference tests that must not be
	// double-counted as student-written tests.
	ExcludedCustomTests []string `toml:"excluded_custom_tests"`

	Commits commitPolicyConf `toml:"commits"`
	Rubric  RubricConfig     `toml:"rubric"`
	Harness Harness          `toml:"harness"`
}

type commitPolicyConf struct {
	MinCommits               int `toml:"min_commits"`
	MinSignificantCommits    int `toml:"min_significant_commits"`
	SignificantLineThreshold int `toml:"significant_line_threshold"`
}

// PassoffCommand returns the harness passoff command with the phase's
// hidden suites appended as the test-group selector, so the suite list
// is configured once per phase rather than baked into the command.
func (p PhasePolicy) PassoffCommand() []string {
	cmd := p.Harness.PassoffCommand
	if len(cmd) == 0 || len(p.PassoffSuites) == 0 {
		return cmd
	}
	out := make([]string, 0, len(cmd)+1)
	out = append(out, cmd...)
	out = append(out, "-Dgroups="+strings.Join(p.PassoffSuites, ","))
	return out
}

// CommitPolicy adapts the configured thresholds for the verification
// engine.
func (p PhasePolicy) CommitPolicy() gitverify.CommitPolicy {
	return gitverify.CommitPolicy{
		MinCommits:               p.Commits.MinCommits,
		MinSignificantCommits:    p.Commits.MinSignificantCommits,
		SignificantLineThreshold: p.Commits.SignificantLineThreshold,
	}
}

// ExclusionSet returns the excluded custom test names as a lookup set.
func (p PhasePolicy) ExclusionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ExcludedCustomTests))
	for _, name := range p.ExcludedCustomTests {
		set[name] = struct{}{}
	}
	return set
}

// PhaseConfigs holds every configured phase policy, loaded once at
// startup from the phases toml file.
type PhaseConfigs struct {
	policies map[Phase]PhasePolicy
}

type phaseConfigFile struct {
	Phases map[string]PhasePolicy `toml:"phases"`
}

// LoadPhaseConfigs reads the phase policy file.
func LoadPhaseConfigs(path string) (*PhaseConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phase config: %w", err)
	}
	var file phaseConfigFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse phase config: %w", err)
	}

	policies := make(map[Phase]PhasePolicy, len(file.Phases))
	for name, policy := range file.Phases {
		phase, err := ParsePhase(name)
		if err != nil {
			return nil, fmt.Errorf("phase config: unknown phase %q", name)
		}
		policy.Phase = phase
		policies[phase] = policy
	}
	return &PhaseConfigs{policies: policies}, nil
}

// Policy returns the policy for the phase.
func (c *PhaseConfigs) Policy(phase Phase) (PhasePolicy, error) {
	policy, ok := c.policies[phase]
	if !ok {
		return PhasePolicy{}, ErrInvalidPhase(string(phase))
	}
	return policy, nil
}

// GetRubricConfig exposes just the rubric weights for a phase.
func (c *PhaseConfigs) GetRubricConfig(phase Phase) (RubricConfig, error) {
	policy, err := c.Policy(phase)
	if err != nil {
		return RubricConfig{}, err
	}
	return policy.Rubric, nil
}
