package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// SearchParams holds parameters for searching runs.
type SearchParams struct {
	NS    string
	Query string
	Limit int
}

// Search finds the latest runs whose key, namespace, note or tags contain the
// query substring.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Run, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := "%" + p.Query + "%"

	where := []string{"r.deleted_at IS NULL"}
	var args []interface{}

	if p.NS != "" {
		where = append(where, "r.ns = ?")
		args = append(args, p.NS)
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM runs r
		INNER JOIN (
			SELECT ns, key, MAX(version) AS max_ver
			FROM runs WHERE deleted_at IS NULL
			GROUP BY ns, key
		) latest ON r.ns = latest.ns AND r.key = latest.key AND r.version = latest.max_ver
		WHERE %s AND (r.key LIKE ? OR r.ns LIKE ? OR r.note LIKE ? OR r.tags LIKE ?)
		ORDER BY r.created_at DESC
		LIMIT ?`, prefixed("r", runColumns), strings.Join(where, " AND "))

	args = append(args, query, query, query, query, limit)

	return s.queryRuns(ctx, sql, args...)
}
