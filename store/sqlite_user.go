package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Sqlite) GetUser(ctx context.Context, netID string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT net_id, lms_user_id, first_name, last_name, repo_url, role
		 FROM users WHERE net_id = ?`, netID).
		Scan(&u.NetID, &u.LmsUserID, &u.FirstName, &u.LastName, &u.RepoURL, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Sqlite) UpsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (net_id, lms_user_id, first_name, last_name, repo_url, role)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(net_id) DO UPDATE SET
			lms_user_id = excluded.lms_user_id,
			first_name  = excluded.first_name,
			last_name   = excluded.last_name,
			repo_url    = excluded.repo_url,
			role        = excluded.role`,
		u.NetID, u.LmsUserID, u.FirstName, u.LastName, u.RepoURL, u.Role)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Sqlite) SetRepoURL(ctx context.Context, netID string, repoURL string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET repo_url = ? WHERE net_id = ?`, repoURL, netID)
	if err != nil {
		return fmt.Errorf("set repo url: %w", err)
	}
	return nil
}

func (s *Sqlite) GetUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT net_id, lms_user_id, first_name, last_name, repo_url, role
		 FROM users ORDER BY net_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.NetID, &u.LmsUserID, &u.FirstName, &u.LastName, &u.RepoURL, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
