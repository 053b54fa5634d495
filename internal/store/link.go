package store

import (
	"context"
	"fmt"
	"time"
)

// LinkParams holds parameters for creating/removing a link.
type LinkParams struct {
	FromNS  string
	FromKey string
	ToNS    string
	ToKey   string
	Rel     string // variant_of | compares_to | supersedes_policy
	Remove  bool
}

// Link represents a relation between two runs.
type Link struct {
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Rel       string `json:"rel"`
	CreatedAt string `json:"created_at"`
}

var validRels = map[string]bool{
	"variant_of":        true,
	"compares_to":       true,
	"supersedes_policy": true,
}

// Link creates or removes a relation between the latest versions of two runs.
func (s *SQLiteStore) Link(ctx context.Context, p LinkParams) (*Link, error) {
	if !validRels[p.Rel] {
		return nil, fmt.Errorf("invalid relation %q (valid: variant_of, compares_to, supersedes_policy)", p.Rel)
	}

	fromID, err := s.resolveRunID(ctx, p.FromNS, p.FromKey)
	if err != nil {
		return nil, fmt.Errorf("resolve from: %w", err)
	}
	toID, err := s.resolveRunID(ctx, p.ToNS, p.ToKey)
	if err != nil {
		return nil, fmt.Errorf("resolve to: %w", err)
	}

	if p.Remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM run_links WHERE from_id = ? AND to_id = ? AND rel = ?`,
			fromID, toID, p.Rel)
		if err != nil {
			return nil, err
		}
		return &Link{FromID: fromID, ToID: toID, Rel: p.Rel}, nil
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO run_links (from_id, to_id, rel, created_at) VALUES (?, ?, ?, ?)`,
		fromID, toID, p.Rel, now)
	if err != nil {
		return nil, err
	}

	return &Link{FromID: fromID, ToID: toID, Rel: p.Rel, CreatedAt: now}, nil
}

// GetLinks returns all links touching a run.
func (s *SQLiteStore) GetLinks(ctx context.Context, runID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, rel, created_at FROM run_links
		 WHERE from_id = ? OR to_id = ?`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Rel, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
