package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/helena/sidework/internal/background"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sidework.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)

	for _, table := range []string{"schema_version", "invocations"} {
		if !tableExists(t, store.SQL(), table) {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	if !columnExists(t, store.SQL(), "invocations", "last_progress") {
		t.Fatalf("expected invocations.last_progress column to exist")
	}
}

func TestOpenIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sidework.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = store.Close() }()

	var count int
	row := store.SQL().QueryRow(`SELECT COUNT(*) FROM schema_version`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan schema_version count: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("expected %d schema_version rows, got %d", len(migrations), count)
	}
}

func TestInsertAndGet(t *testing.T) {
	store := openTestStore(t)

	started := time.Now().Add(-3 * time.Second)
	rec := &Record{
		ID:           "0d5af9e2-93cb-45c6-bf0e-8feba3930f9a",
		Description:  "compress assets",
		Command:      "tar -czf assets.tgz assets",
		Status:       StatusCompleted,
		Result:       "assets.tgz",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Duration:     3 * time.Second,
		LogLines:     12,
		LastProgress: 1.0,
		HasProgress:  true,
	}
	if err := store.Insert(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Description != rec.Description || got.Command != rec.Command {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected status completed, got %q", got.Status)
	}
	if got.Result != "assets.tgz" || got.Error != "" {
		t.Errorf("unexpected outcome fields: result=%q error=%q", got.Result, got.Error)
	}
	if got.Duration != 3*time.Second {
		t.Errorf("expected duration 3s, got %v", got.Duration)
	}
	if got.LogLines != 12 {
		t.Errorf("expected 12 log lines, got %d", got.LogLines)
	}
	if !got.HasProgress || got.LastProgress != 1.0 {
		t.Errorf("expected final progress 1.0, got %v (has=%v)", got.LastProgress, got.HasProgress)
	}
	if got.StartedAt.Unix() != started.Unix() {
		t.Errorf("started_at did not round-trip: want %v, got %v", started, got.StartedAt)
	}
}

func TestGetByPrefix(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	for _, id := range []string{"aaaa1111", "aaaa2222", "bbbb3333"} {
		rec := &Record{
			ID:          id,
			Description: "d",
			Command:     "c",
			Status:      StatusCompleted,
			StartedAt:   now,
			FinishedAt:  now,
		}
		if err := store.Insert(rec); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	got, err := store.Get("bbbb")
	if err != nil {
		t.Fatalf("get by prefix: %v", err)
	}
	if got.ID != "bbbb3333" {
		t.Errorf("expected bbbb3333, got %s", got.ID)
	}

	if _, err := store.Get("aaaa"); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("expected ErrAmbiguousID, got %v", err)
	}
	if _, err := store.Get("zzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	ids := []string{"first", "second", "third"}
	for i, id := range ids {
		rec := &Record{
			ID:          id,
			Description: id,
			Command:     "c",
			Status:      StatusCompleted,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			FinishedAt:  base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := store.Insert(rec); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	records, err := store.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "third" || records[1].ID != "second" {
		t.Errorf("expected newest first, got %s then %s", records[0].ID, records[1].ID)
	}

	all, err := store.List(0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records with no limit, got %d", len(all))
	}
}

func TestPurge(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	old := &Record{
		ID: "old", Description: "d", Command: "c", Status: StatusFailed,
		StartedAt: now.Add(-48 * time.Hour), FinishedAt: now.Add(-48 * time.Hour),
	}
	recent := &Record{
		ID: "recent", Description: "d", Command: "c", Status: StatusCompleted,
		StartedAt: now, FinishedAt: now,
	}
	for _, rec := range []*Record{old, recent} {
		if err := store.Insert(rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	deleted, err := store.Purge(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	if _, err := store.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected old record gone, got %v", err)
	}
	if _, err := store.Get("recent"); err != nil {
		t.Errorf("recent record should survive: %v", err)
	}
}

func TestRecorderCompleted(t *testing.T) {
	store := openTestStore(t)

	rec := NewRecorder(store, "demo", "echo hi")
	direct := background.DispatcherFunc(func(fn func()) { fn() })

	w := background.NewWorker(direct, func(ctx *background.Context) (any, error) {
		ctx.Log("one")
		ctx.Log("two")
		ctx.Progress(0.75)
		return "done", nil
	})
	w.Subscribe(rec)
	w.Start()
	w.Wait()

	got, err := store.Get(rec.ID())
	if err != nil {
		t.Fatalf("get recorded invocation: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if got.Result != "done" {
		t.Errorf("expected result 'done', got %q", got.Result)
	}
	if got.LogLines != 2 {
		t.Errorf("expected 2 log lines, got %d", got.LogLines)
	}
	if !got.HasProgress || got.LastProgress != 0.75 {
		t.Errorf("expected last progress 0.75, got %v", got.LastProgress)
	}
}

func TestRecorderFailed(t *testing.T) {
	store := openTestStore(t)

	rec := NewRecorder(store, "demo", "false")
	direct := background.DispatcherFunc(func(fn func()) { fn() })

	w := background.NewWorker(direct, func(ctx *background.Context) (any, error) {
		return nil, errors.New("exit status 1")
	})
	w.Subscribe(rec)
	w.Start()
	w.Wait()

	got, err := store.Get(rec.ID())
	if err != nil {
		t.Fatalf("get recorded invocation: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("expected failed, got %q", got.Status)
	}
	if got.Error != "exit status 1" {
		t.Errorf("expected recorded error, got %q", got.Error)
	}
	if got.Result != "" {
		t.Errorf("failed invocation must not carry a result, got %q", got.Result)
	}
	if got.HasProgress {
		t.Error("no progress was reported")
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	row := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name)
	var got string
	if err := row.Scan(&got); err != nil {
		if err == sql.ErrNoRows {
			return false
		}
		t.Fatalf("query sqlite_master: %v", err)
	}
	return got == name
}

func columnExists(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()

	rows, err := db.Query(`PRAGMA table_info(` + table + `)`)
	if err != nil {
		t.Fatalf("query table_info(%s): %v", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &primaryKey); err != nil {
			t.Fatalf("scan table_info row: %v", err)
		}
		if name == column {
			return true
		}
	}
	return false
}
