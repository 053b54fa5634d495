package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/seiqhcdro/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testScenario(t *testing.T, r0 float64) *model.Scenario {
	t.Helper()
	p, err := model.LoadPreset("dn")
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	p.Scenario.R0 = r0
	return p.Scenario
}

func testDays() []model.DayStat {
	return []model.DayStat{
		{Day: 0, Infected: 1, Quarantined: 1, R: 4},
		{Day: 1, Infected: 9, DailyInfected: 8, Hospitalized: 3, DailyHospitalized: 3, Quarantined: 12, R: 3.5},
		{Day: 2, Infected: 20, DailyInfected: 11, Hospitalized: 7, DailyHospitalized: 4, ActiveCritical: 1, Deaths: 1, Quarantined: 15, R: 3},
	}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.Put(ctx, PutParams{
		NS: "test", Key: "hello", Scenario: testScenario(t, 2.5), Days: testDays(), Note: "baseline",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if run.Version != 1 {
		t.Errorf("expected version 1, got %d", run.Version)
	}
	if run.ID == "" {
		t.Error("expected non-empty ID")
	}
	if run.PeakInfected != 20 || run.PeakHospitalized != 7 || run.Deaths != 1 || run.RFinal != 3 {
		t.Errorf("unexpected headline numbers: %+v", run)
	}

	got, err := s.Get(ctx, GetParams{NS: "test", Key: "hello"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Scenario.R0 != 2.5 {
		t.Errorf("expected r0 2.5, got %v", got[0].Scenario.R0)
	}
	if got[0].Note != "baseline" || got[0].Horizon != 100 {
		t.Errorf("note/horizon not persisted: %+v", got[0])
	}
	if got[0].Days != nil {
		t.Error("days should only load when requested")
	}
	// Access count incremented after read, verify with a second get
	got2, _ := s.Get(ctx, GetParams{NS: "test", Key: "hello", WithDays: true})
	if got2[0].AccessCount != 1 {
		t.Errorf("expected access_count 1 after second get, got %d", got2[0].AccessCount)
	}
	if len(got2[0].Days) != 3 || got2[0].Days[2].Deaths != 1 {
		t.Errorf("unexpected days: %+v", got2[0].Days)
	}
}

func TestPutUndatedScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := testScenario(t, 3)
	sc.Start = time.Time{}
	if _, err := s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: sc}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !sc.Start.IsZero() {
		t.Error("caller's scenario must not be modified")
	}
	got, err := s.Get(ctx, GetParams{NS: "ns", Key: "k"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Scenario.Start.IsZero() {
		t.Error("expected a start date to be stored")
	}
}

func TestPutMissingScenario(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Put(context.Background(), PutParams{NS: "ns", Key: "k"}); err == nil {
		t.Fatal("expected error without scenario")
	}
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1)})
	r2, _ := s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 2)})

	if r2.Version != 2 {
		t.Errorf("expected version 2, got %d", r2.Version)
	}
	if r2.Supersedes == "" {
		t.Error("expected supersedes to be set")
	}

	// Get latest
	got, _ := s.Get(ctx, GetParams{NS: "ns", Key: "k"})
	if got[0].Scenario.R0 != 2 {
		t.Errorf("expected r0 2, got %v", got[0].Scenario.R0)
	}

	// Get history
	hist, _ := s.Get(ctx, GetParams{NS: "ns", Key: "k", History: true})
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}

	// Get specific version
	v1, _ := s.Get(ctx, GetParams{NS: "ns", Key: "k", Version: 1})
	if v1[0].Scenario.R0 != 1 {
		t.Errorf("expected r0 1, got %v", v1[0].Scenario.R0)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), GetParams{NS: "nope", Key: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "a", Scenario: testScenario(t, 1)})
	s.Put(ctx, PutParams{NS: "ns", Key: "b", Scenario: testScenario(t, 2)})
	s.Put(ctx, PutParams{NS: "other", Key: "c", Scenario: testScenario(t, 3)})

	// List all
	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}
	if all[0].Key != "c" {
		t.Errorf("expected newest first, got %q", all[0].Key)
	}

	// List by namespace
	nsOnly, _ := s.List(ctx, ListParams{NS: "ns"})
	if len(nsOnly) != 2 {
		t.Errorf("expected 2, got %d", len(nsOnly))
	}

	limited, _ := s.List(ctx, ListParams{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 with limit, got %d", len(limited))
	}
}

func TestListShowsLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1)})
	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 2)})

	list, _ := s.List(ctx, ListParams{NS: "ns"})
	if len(list) != 1 {
		t.Fatalf("expected 1 (latest only), got %d", len(list))
	}
	if list[0].Version != 2 {
		t.Errorf("expected latest version 2, got %d", list[0].Version)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1)})
	err := s.Rm(ctx, RmParams{NS: "ns", Key: "k"})
	if err != nil {
		t.Fatalf("rm: %v", err)
	}

	_, err = s.Get(ctx, GetParams{NS: "ns", Key: "k"})
	if err == nil {
		t.Error("expected error after soft delete")
	}

	if err := s.Rm(ctx, RmParams{NS: "ns", Key: "k"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second rm, got %v", err)
	}
}

func TestSoftDeleteRevealsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1)})
	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 2)})
	s.Rm(ctx, RmParams{NS: "ns", Key: "k"})

	got, err := s.Get(ctx, GetParams{NS: "ns", Key: "k"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Version != 1 {
		t.Errorf("expected version 1 after deleting latest, got %d", got[0].Version)
	}
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, _ := s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1), Days: testDays()})
	err := s.Rm(ctx, RmParams{NS: "ns", Key: "k", Hard: true})
	if err != nil {
		t.Fatalf("rm hard: %v", err)
	}

	_, err = s.Get(ctx, GetParams{NS: "ns", Key: "k"})
	if err == nil {
		t.Error("expected error after hard delete")
	}

	days, err := s.Series(ctx, run.ID)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("expected series rows to cascade, got %d", len(days))
	}
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 1)})
	s.Put(ctx, PutParams{NS: "ns", Key: "k", Scenario: testScenario(t, 2)})

	s.Rm(ctx, RmParams{NS: "ns", Key: "k", AllVersions: true})

	_, err := s.Get(ctx, GetParams{NS: "ns", Key: "k", History: true})
	if err == nil {
		t.Error("expected error after deleting all versions")
	}
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{NS: "ns", Key: "a", Scenario: testScenario(t, 1), Tags: []string{"lockdown", "worst"}})
	s.Put(ctx, PutParams{NS: "ns", Key: "b", Scenario: testScenario(t, 1), Tags: []string{"lockdown"}})
	s.Put(ctx, PutParams{NS: "ns", Key: "c", Scenario: testScenario(t, 1)})

	list, _ := s.List(ctx, ListParams{NS: "ns", Tags: []string{"lockdown"}})
	if len(list) != 2 {
		t.Errorf("expected 2 with 'lockdown' tag, got %d", len(list))
	}

	list, _ = s.List(ctx, ListParams{NS: "ns", Tags: []string{"worst"}})
	if len(list) != 1 {
		t.Errorf("expected 1 with 'worst' tag, got %d", len(list))
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
