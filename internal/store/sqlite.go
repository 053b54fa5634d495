package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id                TEXT PRIMARY KEY,
		ns                TEXT NOT NULL,
		key               TEXT NOT NULL,
		scenario          TEXT NOT NULL,
		version           INTEGER NOT NULL DEFAULT 1,
		supersedes        TEXT,
		created_at        TEXT NOT NULL,
		deleted_at        TEXT,
		tags              TEXT,
		note              TEXT,
		horizon           INTEGER NOT NULL,
		peak_infected     REAL NOT NULL DEFAULT 0,
		peak_hospitalized REAL NOT NULL DEFAULT 0,
		deaths            REAL NOT NULL DEFAULT 0,
		r_final           REAL NOT NULL DEFAULT 0,
		access_count      INTEGER NOT NULL DEFAULT 0,
		last_accessed_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_ns_key ON runs(ns, key);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_deleted ON runs(deleted_at);

	CREATE TABLE IF NOT EXISTS run_series (
		run_id             TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		day                INTEGER NOT NULL,
		infected           REAL NOT NULL,
		daily_infected     REAL NOT NULL,
		hospitalized       REAL NOT NULL,
		daily_hospitalized REAL NOT NULL,
		active_critical    REAL NOT NULL,
		deaths             REAL NOT NULL,
		quarantined        REAL NOT NULL,
		r                  REAL NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS run_links (
		from_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		to_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rel        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_links_to ON run_links(to_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, ns, key, scenario, version, supersedes, created_at, deleted_at, tags, note,
	horizon, peak_infected, peak_hospitalized, deaths, r_final, access_count, last_accessed_at`

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Run, error) {
	if p.Scenario == nil {
		return nil, fmt.Errorf("put %s/%s: missing scenario", p.NS, p.Key)
	}
	now := time.Now().UTC()
	id := s.newID()

	sc := p.Scenario
	if sc.Start.IsZero() {
		// an undated scenario is saved as starting on the day it was run
		sc = sc.Clone()
		sc.Start = now.Truncate(24 * time.Hour)
	}

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		s := string(b)
		tagsJSON = &s
	}

	scenarioJSON, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("encode scenario: %w", err)
	}

	var notePtr *string
	if p.Note != "" {
		notePtr = &p.Note
	}

	run := &model.Run{
		ID:        id,
		NS:        p.NS,
		Key:       p.Key,
		Scenario:  sc,
		CreatedAt: now,
		Tags:      p.Tags,
		Note:      p.Note,
		Horizon:   sc.Horizon,
		Days:      p.Days,
	}
	for _, d := range p.Days {
		run.PeakInfected = max(run.PeakInfected, d.Infected)
		run.PeakHospitalized = max(run.PeakHospitalized, d.Hospitalized)
	}
	if n := len(p.Days); n > 0 {
		run.Deaths = p.Days[n-1].Deaths
		run.RFinal = p.Days[n-1].R
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM runs
		 WHERE ns = ? AND key = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, p.NS, p.Key).Scan(&prevID, &prevVersion)

	run.Version = 1
	var supersedes *string
	if err == nil {
		run.Version = prevVersion + 1
		supersedes = &prevID
		run.Supersedes = prevID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, ns, key, scenario, version, supersedes, created_at, tags, note,
		                   horizon, peak_infected, peak_hospitalized, deaths, r_final)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.NS, p.Key, string(scenarioJSON), run.Version, supersedes, now.Format(timeLayout),
		tagsJSON, notePtr, run.Horizon, run.PeakInfected, run.PeakHospitalized, run.Deaths, run.RFinal)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if len(p.Days) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_series (run_id, day, infected, daily_infected, hospitalized, daily_hospitalized,
			                         active_critical, deaths, quarantined, r)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return nil, err
		}
		defer stmt.Close()
		for _, d := range p.Days {
			_, err = stmt.ExecContext(ctx, id, d.Day, d.Infected, d.DailyInfected, d.Hospitalized,
				d.DailyHospitalized, d.ActiveCritical, d.Deaths, d.Quarantined, d.R)
			if err != nil {
				return nil, fmt.Errorf("insert series: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) Get(ctx context.Context, p GetParams) ([]model.Run, error) {
	var query string
	var args []interface{}

	if p.History {
		query = `SELECT ` + runColumns + `
				 FROM runs WHERE ns = ? AND key = ? AND deleted_at IS NULL
				 ORDER BY version DESC`
		args = []interface{}{p.NS, p.Key}
	} else if p.Version > 0 {
		query = `SELECT ` + runColumns + `
				 FROM runs WHERE ns = ? AND key = ? AND version = ? AND deleted_at IS NULL
				 LIMIT 1`
		args = []interface{}{p.NS, p.Key, p.Version}
	} else {
		query = `SELECT ` + runColumns + `
				 FROM runs WHERE ns = ? AND key = ? AND deleted_at IS NULL
				 ORDER BY version DESC LIMIT 1`
		args = []interface{}{p.NS, p.Key}
	}

	runs, err := s.queryRuns(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, p.NS, p.Key)
	}

	if p.WithDays {
		for i := range runs {
			if runs[i].Days, err = s.Series(ctx, runs[i].ID); err != nil {
				return nil, err
			}
		}
	}

	// Update access tracking for the latest
	if !p.History {
		now := time.Now().UTC().Format(timeLayout)
		s.db.ExecContext(ctx,
			`UPDATE runs SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`,
			now, runs[0].ID)
	}

	return runs, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Run, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	// Build a query that returns only the latest version of each ns+key
	where := []string{"r.deleted_at IS NULL"}
	var args []interface{}

	if p.NS != "" {
		where = append(where, "r.ns = ?")
		args = append(args, p.NS)
	}

	// Tag filtering
	for _, tag := range p.Tags {
		where = append(where, "r.tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM runs r
		INNER JOIN (
			SELECT ns, key, MAX(version) AS max_ver
			FROM runs WHERE deleted_at IS NULL
			GROUP BY ns, key
		) latest ON r.ns = latest.ns AND r.key = latest.key AND r.version = latest.max_ver
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT ?`, prefixed("r", runColumns), strings.Join(where, " AND "))
	args = append(args, limit)

	return s.queryRuns(ctx, query, args...)
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		if p.AllVersions {
			res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE ns = ? AND key = ?`, p.NS, p.Key)
			if err != nil {
				return err
			}
			return requireAffected(res, p.NS, p.Key)
		}
		id, err := s.resolveRunID(ctx, p.NS, p.Key)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
		return err
	}

	now := time.Now().UTC().Format(timeLayout)
	if p.AllVersions {
		res, err := s.db.ExecContext(ctx,
			`UPDATE runs SET deleted_at = ? WHERE ns = ? AND key = ? AND deleted_at IS NULL`,
			now, p.NS, p.Key)
		if err != nil {
			return err
		}
		return requireAffected(res, p.NS, p.Key)
	}

	// Soft-delete latest version only
	id, err := s.resolveRunID(ctx, p.NS, p.Key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE runs SET deleted_at = ? WHERE id = ?`, now, id)
	return err
}

// Series returns the per-day records of a run in day order.
func (s *SQLiteStore) Series(ctx context.Context, runID string) ([]model.DayStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, infected, daily_infected, hospitalized, daily_hospitalized,
		        active_critical, deaths, quarantined, r
		 FROM run_series WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.DayStat
	for rows.Next() {
		var d model.DayStat
		if err := rows.Scan(&d.Day, &d.Infected, &d.DailyInfected, &d.Hospitalized,
			&d.DailyHospitalized, &d.ActiveCritical, &d.Deaths, &d.Quarantined, &d.R); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// resolveRunID finds the latest live run ID for a ns/key pair.
func (s *SQLiteStore) resolveRunID(ctx context.Context, ns, key string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE ns = ? AND key = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, ns, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, ns, key)
	}
	return id, err
}

func (s *SQLiteStore) queryRuns(ctx context.Context, query string, args ...interface{}) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func requireAffected(res sql.Result, ns, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ns, key)
	}
	return nil
}

// prefixed qualifies every column in a comma-separated list with alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (model.Run, error) {
	var r model.Run
	var scenarioJSON, createdAt string
	var tagsJSON, supersedes, deletedAt, note, lastAccessed sql.NullString

	err := row.Scan(
		&r.ID, &r.NS, &r.Key, &scenarioJSON, &r.Version, &supersedes, &createdAt, &deletedAt,
		&tagsJSON, &note, &r.Horizon, &r.PeakInfected, &r.PeakHospitalized, &r.Deaths, &r.RFinal,
		&r.AccessCount, &lastAccessed,
	)
	if err != nil {
		return r, err
	}

	r.Scenario = new(model.Scenario)
	if err := json.Unmarshal([]byte(scenarioJSON), r.Scenario); err != nil {
		return r, fmt.Errorf("decode scenario of run %s: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if supersedes.Valid {
		r.Supersedes = supersedes.String
	}
	if deletedAt.Valid {
		t, _ := time.Parse(timeLayout, deletedAt.String)
		r.DeletedAt = &t
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(timeLayout, lastAccessed.String)
		r.LastAccessedAt = &t
	}
	if note.Valid {
		r.Note = note.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &r.Tags)
	}
	return r, nil
}
