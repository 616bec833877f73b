package gitverify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeHistory(n int, linesEach int) []CommitInfo {
	commits := make([]CommitInfo, n)
	base := time.Unix(1700000000, 0)
	for i := 0; i < n; i++ {
		commits[i] = CommitInfo{
			Hash:         fmt.Sprintf("commit-%04d", n-i),
			Timestamp:    base.Add(-time.Duration(i) * time.Minute),
			LinesChanged: linesEach,
		}
	}
	return commits
}

func TestEvaluateBelowCommitThreshold(t *testing.T) {
	policy := CommitPolicy{MinCommits: 10, MinSignificantCommits: 0, SignificantLineThreshold: 5}
	res := Evaluate(makeHistory(4, 20), "", policy)

	require.False(t, res.Passed)
	require.Equal(t, 4, res.NumCommitsVerified)
	require.Equal(t, 4, res.TotalCommits)
	require.Contains(t, res.Message, "found 4 new commits")
	require.Contains(t, res.Message, "10 required")
}

func TestEvaluatePartitionsAtPreviousHead(t *testing.T) {
	commits := makeHistory(20, 20)
	prevHead := commits[7].Hash

	policy := CommitPolicy{MinCommits: 5, MinSignificantCommits: 2, SignificantLineThreshold: 5}
	res := Evaluate(commits, prevHead, policy)

	require.True(t, res.Passed)
	require.Equal(t, 7, res.NumCommitsVerified)
	require.Equal(t, 20, res.TotalCommits)
	require.Equal(t, 7, res.NumSignificantCommits)
	require.Equal(t, commits[0].Hash, res.HeadHash)
}

func TestEvaluateUnknownPreviousHeadCountsEverything(t *testing.T) {
	commits := makeHistory(6, 20)
	policy := CommitPolicy{MinCommits: 5, SignificantLineThreshold: 5}
	res := Evaluate(commits, "not-in-history", policy)
	require.Equal(t, 6, res.NumCommitsVerified)
	require.True(t, res.Passed)
}

func TestEvaluateSignificantChangeThreshold(t *testing.T) {
	commits := makeHistory(12, 1) // plenty of commits, all trivial
	policy := CommitPolicy{MinCommits: 10, MinSignificantCommits: 3, SignificantLineThreshold: 5}
	res := Evaluate(commits, "", policy)

	require.False(t, res.Passed)
	require.Equal(t, 0, res.NumSignificantCommits)
	require.Contains(t, res.Message, "meaningful changes")
}

func TestEvaluateIsIdempotent(t *testing.T) {
	commits := makeHistory(50, 10)
	policy := CommitPolicy{MinCommits: 10, MinSignificantCommits: 5, SignificantLineThreshold: 5}

	first := Evaluate(commits, commits[25].Hash, policy)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Evaluate(commits, commits[25].Hash, policy))
	}
}

func TestEvaluateEmptyHistory(t *testing.T) {
	res := Evaluate(nil, "", CommitPolicy{MinCommits: 1})
	require.False(t, res.Passed)
	require.Equal(t, 0, res.TotalCommits)
	require.Empty(t, res.HeadHash)
}

func TestEvaluateLargeHistoryStaysFast(t *testing.T) {
	commits := makeHistory(5000, 10)
	policy := CommitPolicy{MinCommits: 10, MinSignificantCommits: 5, SignificantLineThreshold: 5}

	start := time.Now()
	res := Evaluate(commits, commits[4000].Hash, policy)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 4000, res.NumCommitsVerified)
}

func TestParseLog(t *testing.T) {
	raw := "@aaa111 1700000060\n" +
		"10\t2\tserver/src/Main.java\n" +
		"3\t0\tREADME.md\n" +
		"\n" +
		"@bbb222 1700000000\n" +
		"-\t-\tassets/logo.png\n" +
		"1\t1\tserver/src/Main.java\n"

	commits, err := parseLog(raw)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	require.Equal(t, "aaa111", commits[0].Hash)
	require.Equal(t, 15, commits[0].LinesChanged)
	require.Equal(t, time.Unix(1700000060, 0), commits[0].Timestamp)

	// binary file rows are skipped
	require.Equal(t, "bbb222", commits[1].Hash)
	require.Equal(t, 2, commits[1].LinesChanged)
}

func TestParseLogMalformedHeader(t *testing.T) {
	_, err := parseLog("@onlyhash\n")
	require.Error(t, err)
}
