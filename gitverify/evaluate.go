package gitverify

import "fmt"

// Evaluate partitions the history into commits made since the previous
// submission and evaluates the new ones against the policy. Commits must
// be ordered newest first, as CollectHistory returns them.
//
// The result is deterministic: the same history, previous head and policy
// always produce the same verdict.
func Evaluate(commits []CommitInfo, prevHeadHash string, policy CommitPolicy) CommitVerificationResult {
	res := CommitVerificationResult{
		TotalCommits: len(commits),
	}
	if len(commits) > 0 {
		res.HeadHash = commits[0].Hash
	}

	newCommits := commits
	if prevHeadHash != "" {
		for i, c := range commits {
			if c.Hash == prevHeadHash {
				newCommits = commits[:i]
				break
			}
		}
	}

	res.NumCommitsVerified = len(newCommits)
	for _, c := range newCommits {
		if c.LinesChanged >= policy.SignificantLineThreshold {
			res.NumSignificantCommits++
		}
	}

	if res.NumCommitsVerified < policy.MinCommits {
		res.Passed = false
		res.Message = fmt.Sprintf(
			"found %d new commits since your last submission, %d required",
			res.NumCommitsVerified, policy.MinCommits)
		return res
	}

	if res.NumSignificantCommits < policy.MinSignificantCommits {
		res.Passed = false
		res.Message = fmt.Sprintf(
			"found %d commits with meaningful changes, %d required (each must change at least %d lines)",
			res.NumSignificantCommits, policy.MinSignificantCommits, policy.SignificantLineThreshold)
		return res
	}

	res.Passed = true
	res.Message = fmt.Sprintf("verified %d new commits, %d with meaningful changes",
		res.NumCommitsVerified, res.NumSignificantCommits)
	return res
}
