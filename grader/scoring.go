package grader

import (
	"fmt"

	"github.com/coursegrade/backend/testparse"
)

// passoffScore is the fraction of hidden reference tests that passed.
func passoffScore(root *testparse.TestNode) float64 {
	total := root.NumTestsPassed + root.NumTestsFailed
	if total == 0 {
		return 0
	}
	return float64(root.NumTestsPassed) / float64(total)
}

// passedPassoffTests is the phase pass requirement: every hidden test
// ran and passed.
func passedPassoffTests(analysis *testparse.TestAnalysis) bool {
	if analysis == nil || analysis.Error != "" {
		return false
	}
	root := analysis.Root
	return root.NumTestsPassed > 0 && root.NumTestsFailed == 0
}

// unitTestScore scores student-written tests with a coverage-breadth
// rule: running fewer than minRequired tests caps the score at
// passed/minRequired even with a perfect pass rate, otherwise the score
// is the plain pass rate.
func unitTestScore(root *testparse.TestNode, minRequired int) float64 {
	total := root.NumTestsPassed + root.NumTestsFailed
	if total == 0 {
		return 0
	}
	if total < minRequired {
		return float64(root.NumTestsPassed) / float64(minRequired)
	}
	return float64(root.NumTestsPassed) / float64(total)
}

func unitTestNotes(root *testparse.TestNode, minRequired int) string {
	if root.NumTestsPassed+root.NumTestsFailed < minRequired {
		return "Not enough tests: each service method should have a positive and negative test"
	}
	return testNotes(root)
}

func testNotes(root *testparse.TestNode) string {
	switch root.NumTestsFailed {
	case 0:
		return "All tests passed"
	case 1:
		return "1 test failed"
	default:
		return fmt.Sprintf("%d tests failed", root.NumTestsFailed)
	}
}
