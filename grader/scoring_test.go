package grader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursegrade/backend/testparse"
)

func resultsNode(passed, failed int) *testparse.TestNode {
	return &testparse.TestNode{
		Name:           "tests",
		NumTestsPassed: passed,
		NumTestsFailed: failed,
	}
}

func TestUnitTestScoreBelowMinimumIsCapped(t *testing.T) {
	// 10 run, 10 passed, 13 required: perfect pass rate on too few
	// tests still scores 10/13
	score := unitTestScore(resultsNode(10, 0), 13)
	require.InDelta(t, 10.0/13.0, score, 1e-9)
}

func TestUnitTestScoreAtOrAboveMinimumIsPassRate(t *testing.T) {
	score := unitTestScore(resultsNode(18, 2), 13)
	require.InDelta(t, 18.0/20.0, score, 1e-9)
}

func TestUnitTestScoreZeroTests(t *testing.T) {
	require.Zero(t, unitTestScore(resultsNode(0, 0), 13))
}

func TestUnitTestNotes(t *testing.T) {
	require.Equal(t,
		"Not enough tests: each service method should have a positive and negative test",
		unitTestNotes(resultsNode(5, 2), 13))
	require.Equal(t, "All tests passed", unitTestNotes(resultsNode(13, 0), 13))
	require.Equal(t, "1 test failed", unitTestNotes(resultsNode(13, 1), 13))
	require.Equal(t, "3 tests failed", unitTestNotes(resultsNode(12, 3), 13))
}

func TestPassoffScore(t *testing.T) {
	require.InDelta(t, 0.75, passoffScore(resultsNode(3, 1)), 1e-9)
	require.Zero(t, passoffScore(resultsNode(0, 0)))
}

func TestPassedPassoffTests(t *testing.T) {
	require.True(t, passedPassoffTests(&testparse.TestAnalysis{Root: resultsNode(5, 0)}))
	require.False(t, passedPassoffTests(&testparse.TestAnalysis{Root: resultsNode(4, 1)}))
	require.False(t, passedPassoffTests(&testparse.TestAnalysis{Root: resultsNode(0, 0)}))
	require.False(t, passedPassoffTests(&testparse.TestAnalysis{
		Root:  resultsNode(0, 0),
		Error: "compile failure",
	}))
}

func TestRubricTotalScore(t *testing.T) {
	r := Rubric{
		PassoffTests: RubricItem{Results: RubricResults{Score: 1.0, PossiblePoints: 60}},
		UnitTests:    RubricItem{Results: RubricResults{Score: 0.5, PossiblePoints: 20}},
		Quality:      RubricItem{Results: RubricResults{Score: 1.0, PossiblePoints: 10}},
		GitCommits:   RubricItem{Results: RubricResults{Score: 0.0, PossiblePoints: 10}},
	}
	// 60 + 10 + 10 + 0 out of 100
	require.InDelta(t, 80.0, r.TotalScore(), 1e-9)
}

func TestRubricTotalScoreNoPossiblePoints(t *testing.T) {
	require.Zero(t, Rubric{}.TotalScore())
}
