package store

import (
	"context"
	"strings"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// ExportAll returns all non-deleted runs with their daily series, optionally
// filtered by namespace.
func (s *SQLiteStore) ExportAll(ctx context.Context, ns string) ([]model.Run, error) {
	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}

	if ns != "" {
		where = append(where, "ns = ?")
		args = append(args, ns)
	}

	query := `SELECT ` + runColumns + `
	          FROM runs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ns, key, version`

	runs, err := s.queryRuns(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Days, err = s.Series(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Import stores runs from an export. Each run becomes a new version of its
// ns/key, so importing in export order preserves version ordering.
func (s *SQLiteStore) Import(ctx context.Context, runs []model.Run) (int, error) {
	imported := 0
	for _, r := range runs {
		_, err := s.Put(ctx, PutParams{
			NS:       r.NS,
			Key:      r.Key,
			Scenario: r.Scenario,
			Days:     r.Days,
			Tags:     r.Tags,
			Note:     r.Note,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
