package store

import (
	"context"
	"fmt"
	"time"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/queue"
)

func (s *Sqlite) Add(ctx context.Context, item queue.Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queue (net_id, phase, time_added, started) VALUES (?, ?, ?, ?)`,
		item.NetID, string(item.Phase), item.TimeAdded.UTC().Format(time.RFC3339Nano), boolToInt(item.Started))
	if err != nil {
		return fmt.Errorf("add queue item: %w", err)
	}
	return nil
}

func (s *Sqlite) Remove(ctx context.Context, netID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE net_id = ?`, netID)
	if err != nil {
		return fmt.Errorf("remove queue item: %w", err)
	}
	return nil
}

func (s *Sqlite) MarkStarted(ctx context.Context, netID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE queue SET started = 1 WHERE net_id = ?`, netID)
	if err != nil {
		return fmt.Errorf("mark queue item started: %w", err)
	}
	return nil
}

func (s *Sqlite) MarkNotStarted(ctx context.Context, netID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE queue SET started = 0 WHERE net_id = ?`, netID)
	if err != nil {
		return fmt.Errorf("mark queue item not started: %w", err)
	}
	return nil
}

func (s *Sqlite) IsAlreadyInQueue(ctx context.Context, netID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue WHERE net_id = ?`, netID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check queue membership: %w", err)
	}
	return count > 0, nil
}

func (s *Sqlite) GetAll(ctx context.Context) ([]queue.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT net_id, phase, time_added, started FROM queue ORDER BY time_added`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var items []queue.Item
	for rows.Next() {
		var item queue.Item
		var phase, timeAdded string
		var started int
		if err := rows.Scan(&item.NetID, &phase, &timeAdded, &started); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		item.Phase = grader.Phase(phase)
		item.Started = started != 0
		item.TimeAdded, err = time.Parse(time.RFC3339Nano, timeAdded)
		if err != nil {
			return nil, fmt.Errorf("parse queue timestamp: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
