package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coursegrade/backend/grader"
)

const submissionColumns = `id, net_id, phase, repo_url, head_hash, timestamp,
	score, passed, withheld, notes, admin_submission, rubric, verification`

func (s *Sqlite) InsertSubmission(ctx context.Context, sub grader.Submission) error {
	rubric, err := json.Marshal(sub.Rubric)
	if err != nil {
		return fmt.Errorf("marshal rubric: %w", err)
	}
	var verification any
	if sub.Verification != nil {
		data, err := json.Marshal(sub.Verification)
		if err != nil {
			return fmt.Errorf("marshal verification: %w", err)
		}
		verification = string(data)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (`+submissionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID.String(), sub.NetID, string(sub.Phase), sub.RepoURL, sub.HeadHash,
		sub.Timestamp.UTC().Format(time.RFC3339Nano), sub.Score,
		boolToInt(sub.Passed), boolToInt(sub.Withheld), sub.Notes,
		boolToInt(sub.AdminSubmission), string(rubric), verification)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Sqlite) GetMostRecentSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	return s.querySubmission(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? AND phase = ? ORDER BY timestamp DESC LIMIT 1`,
		netID, string(phase))
}

func (s *Sqlite) GetSubmissionsForPhase(ctx context.Context, netID string, phase grader.Phase) ([]grader.Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? AND phase = ? ORDER BY timestamp DESC`,
		netID, string(phase))
}

func (s *Sqlite) GetSubmissionsForUser(ctx context.Context, netID string) ([]grader.Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? ORDER BY timestamp DESC`,
		netID)
}

// GetAllLatestSubmissions returns the newest submissions across all
// students. A negative count returns everything.
func (s *Sqlite) GetAllLatestSubmissions(ctx context.Context, count int) ([]grader.Submission, error) {
	if count < 0 {
		return s.querySubmissions(ctx,
			`SELECT `+submissionColumns+` FROM submissions ORDER BY timestamp DESC`)
	}
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY timestamp DESC LIMIT ?`,
		count)
}

func (s *Sqlite) GetLastSubmissionForUser(ctx context.Context, netID string) (*grader.Submission, error) {
	return s.querySubmission(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? ORDER BY timestamp DESC LIMIT 1`,
		netID)
}

// GetFirstPassingSubmission returns the earliest passing submission for
// the phase, which is the one whose score approval releases.
func (s *Sqlite) GetFirstPassingSubmission(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	return s.querySubmission(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? AND phase = ? AND passed = 1 ORDER BY timestamp ASC LIMIT 1`,
		netID, string(phase))
}

func (s *Sqlite) GetBestSubmissionForPhase(ctx context.Context, netID string, phase grader.Phase) (*grader.Submission, error) {
	return s.querySubmission(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE net_id = ? AND phase = ? ORDER BY score DESC, timestamp ASC LIMIT 1`,
		netID, string(phase))
}

// ApproveWithheldSubmissions annotates every withheld submission for the
// phase with the verification and releases the withheld flag. Returns
// how many rows were affected.
func (s *Sqlite) ApproveWithheldSubmissions(ctx context.Context, netID string, phase grader.Phase, v grader.ScoreVerification) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal verification: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET withheld = 0, verification = ?
		 WHERE net_id = ? AND phase = ? AND withheld = 1`,
		string(data), netID, string(phase))
	if err != nil {
		return 0, fmt.Errorf("approve withheld submissions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Sqlite) RemoveSubmissionsByNetID(ctx context.Context, netID string, phase grader.Phase) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM submissions WHERE net_id = ? AND phase = ?`,
		netID, string(phase))
	if err != nil {
		return fmt.Errorf("remove submissions: %w", err)
	}
	return nil
}

func (s *Sqlite) querySubmission(ctx context.Context, query string, args ...any) (*grader.Submission, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Sqlite) querySubmissions(ctx context.Context, query string, args ...any) ([]grader.Submission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []grader.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (grader.Submission, error) {
	var sub grader.Submission
	var id, phase, timestamp, rubric string
	var passed, withheld, admin int
	var verification sql.NullString

	err := row.Scan(&id, &sub.NetID, &phase, &sub.RepoURL, &sub.HeadHash,
		&timestamp, &sub.Score, &passed, &withheld, &sub.Notes, &admin,
		&rubric, &verification)
	if err != nil {
		return sub, err
	}

	sub.ID, err = uuid.Parse(id)
	if err != nil {
		return sub, fmt.Errorf("parse submission id: %w", err)
	}
	sub.Phase = grader.Phase(phase)
	sub.Passed = passed != 0
	sub.Withheld = withheld != 0
	sub.AdminSubmission = admin != 0
	sub.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return sub, fmt.Errorf("parse submission timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(rubric), &sub.Rubric); err != nil {
		return sub, fmt.Errorf("unmarshal rubric: %w", err)
	}
	if verification.Valid {
		sub.Verification = &grader.ScoreVerification{}
		if err := json.Unmarshal([]byte(verification.String), sub.Verification); err != nil {
			return sub, fmt.Errorf("unmarshal verification: %w", err)
		}
	}
	return sub, nil
}
