package gitverify

import "time"

// CommitInfo is one commit in the history reachable from HEAD,
// newest first, with the total number of changed lines in its patch.
type CommitInfo struct {
	Hash         string
	Timestamp    time.Time
	LinesChanged int
}

// CommitPolicy is the phase-specific bar a submission's history must clear.
type CommitPolicy struct {
	// MinCommits is the minimum number of new commits since the
	// previous submission.
	MinCommits int

	// MinSignificantCommits is how many of those commits must touch a
	// meaningfully sized change. Trivial whitespace commits don't count
	// toward this number.
	MinSignificantCommits int

	// SignificantLineThreshold is the changed-line count at which a
	// commit counts as significant.
	SignificantLineThreshold int
}

// CommitVerificationResult is the verdict of evaluating a repository's
// history against a CommitPolicy. Produced once per grading run.
type CommitVerificationResult struct {
	Passed                bool
	NumCommitsVerified    int // new commits since the previous submission
	TotalCommits          int // all commits examined
	NumSignificantCommits int
	HeadHash              string
	Message               string
}
