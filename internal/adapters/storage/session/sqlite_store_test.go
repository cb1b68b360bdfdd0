package session_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"firesim/internal/adapters/storage"
	sessionstore "firesim/internal/adapters/storage/session"
	domain "firesim/internal/domain/session"
)

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := sessionstore.NewSQLiteStore(openTestDB(t))
	ctx := context.Background()

	s := domain.Session{ID: "s1", GroupName: "안전교육 1기", TotalTeams: 6, CreatedAt: t0}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.GroupName != s.GroupName || got.TotalTeams != 6 || got.ReportEnabled || got.TimerRunning {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(t0) || !got.TimerEndAt.IsZero() {
		t.Errorf("times = %v / %v", got.CreatedAt, got.TimerEndAt)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := sessionstore.NewSQLiteStore(openTestDB(t))
	if _, err := store.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := sessionstore.NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	for i, name := range []string{"old", "mid", "new"} {
		s := domain.Session{ID: name, GroupName: name, TotalTeams: 2, CreatedAt: t0.Add(time.Duration(i) * time.Hour)}
		if err := store.Save(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "new" || list[2].ID != "old" {
		t.Errorf("order = %v", list)
	}
}

func TestSQLiteStore_TimerAndReportGate(t *testing.T) {
	store := sessionstore.NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	if err := store.Save(ctx, domain.Session{ID: "s1", GroupName: "g", TotalTeams: 3, CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}

	end := t0.Add(30 * time.Minute)
	if err := store.SetTimer(ctx, "s1", true, end); err != nil {
		t.Fatal(err)
	}
	if err := store.SetReportEnabled(ctx, "s1", true); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "s1")
	if !got.TimerRunning || !got.TimerEndAt.Equal(end) || !got.ReportEnabled {
		t.Errorf("after update: %+v", got)
	}

	if err := store.SetTimer(ctx, "s1", false, time.Time{}); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetByID(ctx, "s1")
	if got.TimerRunning || !got.TimerEndAt.IsZero() {
		t.Errorf("after stop: %+v", got)
	}

	if err := store.SetReportEnabled(ctx, "missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing session err = %v", err)
	}
}

func TestSQLiteStore_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	store := sessionstore.NewSQLiteStore(db)
	ctx := context.Background()
	if err := store.Save(ctx, domain.Session{ID: "s1", GroupName: "g", TotalTeams: 3, CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO report (id, session_id, team_id, user_name, title, members, submitted_at, created_at, updated_at)
		VALUES ('r1', 's1', 1, 'kim', 't', 'm', 'x', 'x', 'x')`); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM report`).Scan(&n)
	if n != 0 {
		t.Errorf("reports left = %d", n)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
