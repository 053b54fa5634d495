package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string           `json:"db_path"`
	DBSizeBytes int64            `json:"db_size_bytes"`
	TotalRuns   int              `json:"total_runs"`
	ActiveRuns  int              `json:"active_runs"`
	SeriesRows  int              `json:"series_rows"`
	Links       int              `json:"links"`
	Namespaces  []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds per-namespace counts.
type NamespaceStats struct {
	NS   string `json:"ns"`
	Runs int    `json:"runs"`
	Keys int    `json:"keys"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.TotalRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE deleted_at IS NULL`).Scan(&st.ActiveRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_series`).Scan(&st.SeriesRows)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_links`).Scan(&st.Links)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ns, COUNT(*) as cnt, COUNT(DISTINCT key) as keys
		FROM runs WHERE deleted_at IS NULL
		GROUP BY ns ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ns NamespaceStats
		rows.Scan(&ns.NS, &ns.Runs, &ns.Keys)
		st.Namespaces = append(st.Namespaces, ns)
	}

	return st, nil
}
