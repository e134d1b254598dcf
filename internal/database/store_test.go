package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC)

func newTestService(t testing.TB) *DBService {
	t.Helper()
	svc, err := NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func ptr(t time.Time) *time.Time { return &t }

// TestNewDBService verifies that the database initializes correctly
// with the embedded schema using an in-memory SQLite instance.
func TestNewDBService(t *testing.T) {
	svc := newTestService(t)
	if svc.Path() != ":memory:" {
		t.Errorf("expected path :memory:, got %s", svc.Path())
	}
}

// TestStartStopFast verifies the full fast lifecycle:
// start → active → stop → no longer active.
func TestStartStopFast(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	fast, err := svc.StartFast(ctx, t0, 16*time.Hour, "16:8")
	if err != nil {
		t.Fatalf("StartFast failed: %v", err)
	}
	if fast.ID == "" {
		t.Fatal("expected generated fast ID")
	}
	if fast.GoalMinutes != 16*60 {
		t.Errorf("expected goal 960 minutes, got %d", fast.GoalMinutes)
	}

	active, err := svc.ActiveFast(ctx)
	if err != nil {
		t.Fatalf("ActiveFast failed: %v", err)
	}
	if active == nil || active.ID != fast.ID {
		t.Fatalf("expected active fast %s, got %+v", fast.ID, active)
	}
	if !active.Ongoing() {
		t.Error("expected active fast to be ongoing")
	}

	end := t0.Add(17 * time.Hour)
	stopped, err := svc.StopFast(ctx, end)
	if err != nil {
		t.Fatalf("StopFast failed: %v", err)
	}
	if stopped.EndTime == nil || !stopped.EndTime.Equal(end) {
		t.Errorf("expected end %v, got %v", end, stopped.EndTime)
	}
	if !stopped.GoalReached(end) {
		t.Error("expected goal reached after 17h")
	}

	active, err = svc.ActiveFast(ctx)
	if err != nil {
		t.Fatalf("ActiveFast after stop failed: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active fast, got %s", active.ID)
	}

	got, err := svc.GetFast(ctx, fast.ID)
	if err != nil {
		t.Fatalf("GetFast failed: %v", err)
	}
	if got.Note != "16:8" || got.EndTime == nil || !got.StartTime.Equal(t0) {
		t.Errorf("unexpected stored fast: %+v", got)
	}
}

func TestStartFastWhileActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.StartFast(ctx, t0, 0, ""); err != nil {
		t.Fatalf("StartFast failed: %v", err)
	}
	_, err := svc.StartFast(ctx, t0.Add(time.Hour), 0, "")
	if !errors.Is(err, ErrFastInProgress) {
		t.Fatalf("expected ErrFastInProgress, got %v", err)
	}
}

func TestStopFastErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.StopFast(ctx, t0); !errors.Is(err, ErrNoActiveFast) {
		t.Fatalf("expected ErrNoActiveFast, got %v", err)
	}

	if _, err := svc.StartFast(ctx, t0, 0, ""); err != nil {
		t.Fatalf("StartFast failed: %v", err)
	}
	if _, err := svc.StopFast(ctx, t0.Add(-time.Minute)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	// The fast is still open after the rejected stop.
	active, err := svc.ActiveFast(ctx)
	if err != nil || active == nil {
		t.Fatalf("expected fast still active, got %v, %v", active, err)
	}
}

func TestUpdateAndDeleteFast(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	fast, err := svc.StartFast(ctx, t0, 0, "")
	if err != nil {
		t.Fatalf("StartFast failed: %v", err)
	}

	fast.EndTime = ptr(t0.Add(12 * time.Hour))
	fast.Note = "edited"
	if err := svc.UpdateFast(ctx, fast); err != nil {
		t.Fatalf("UpdateFast failed: %v", err)
	}

	got, err := svc.GetFast(ctx, fast.ID)
	if err != nil {
		t.Fatalf("GetFast failed: %v", err)
	}
	if got.Note != "edited" || got.EndTime == nil {
		t.Errorf("update not persisted: %+v", got)
	}

	bad := *got
	bad.EndTime = ptr(t0.Add(-time.Hour))
	if err := svc.UpdateFast(ctx, &bad); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}

	if err := svc.DeleteFast(ctx, fast.ID); err != nil {
		t.Fatalf("DeleteFast failed: %v", err)
	}
	if _, err := svc.GetFast(ctx, fast.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteFast(ctx, fast.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := svc.UpdateFast(ctx, fast); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating deleted fast, got %v", err)
	}
}

// TestUpsertFasts verifies batch insertion and replacement.
func TestUpsertFasts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	fasts := make([]*Fast, 30)
	for i := range fasts {
		start := t0.AddDate(0, 0, -i)
		fasts[i] = &Fast{
			ID:          fmt.Sprintf("fast-%03d", i),
			StartTime:   start,
			EndTime:     ptr(start.Add(16 * time.Hour)),
			GoalMinutes: 960,
		}
	}
	if err := svc.UpsertFasts(ctx, fasts); err != nil {
		t.Fatalf("UpsertFasts failed: %v", err)
	}

	all, err := svc.QueryFasts(ctx, FastFilter{})
	if err != nil {
		t.Fatalf("QueryFasts failed: %v", err)
	}
	if len(all) != 30 {
		t.Fatalf("expected 30 fasts, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].StartTime.After(all[i-1].StartTime) {
			t.Fatalf("fasts not ordered by start DESC at %d", i)
		}
	}

	// Replace one and add an ID-less record.
	fasts[0].Note = "replaced"
	extra := &Fast{StartTime: t0.AddDate(0, 0, 1)}
	if err := svc.UpsertFasts(ctx, []*Fast{fasts[0], extra}); err != nil {
		t.Fatalf("second UpsertFasts failed: %v", err)
	}
	if extra.ID == "" {
		t.Error("expected generated ID for record without one")
	}
	got, err := svc.GetFast(ctx, "fast-000")
	if err != nil {
		t.Fatalf("GetFast failed: %v", err)
	}
	if got.Note != "replaced" {
		t.Errorf("expected replaced note, got %q", got.Note)
	}
}

func TestUpsertFastsRejectsSecondOngoing(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.StartFast(ctx, t0, 0, ""); err != nil {
		t.Fatalf("StartFast failed: %v", err)
	}
	err := svc.UpsertFasts(ctx, []*Fast{
		{ID: "closed", StartTime: t0.AddDate(0, 0, -2), EndTime: ptr(t0.AddDate(0, 0, -1))},
		{ID: "open", StartTime: t0.Add(time.Hour)},
	})
	if !errors.Is(err, ErrFastInProgress) {
		t.Fatalf("expected ErrFastInProgress, got %v", err)
	}

	// Transaction rolled back: the closed record was not written either.
	if _, err := svc.GetFast(ctx, "closed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rollback, got %v", err)
	}
}

func TestUpsertFastsRejectsReversed(t *testing.T) {
	svc := newTestService(t)
	err := svc.UpsertFasts(context.Background(), []*Fast{
		{ID: "bad", StartTime: t0, EndTime: ptr(t0.Add(-time.Hour))},
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

// TestQueryFastsFilter verifies range, completion and paging filters.
func TestQueryFastsFilter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var fasts []*Fast
	for i := 0; i < 5; i++ {
		start := t0.AddDate(0, 0, i)
		fasts = append(fasts, &Fast{
			ID: fmt.Sprintf("f%d", i), StartTime: start, EndTime: ptr(start.Add(14 * time.Hour)),
		})
	}
	fasts = append(fasts, &Fast{ID: "open", StartTime: t0.AddDate(0, 0, 6)})
	if err := svc.UpsertFasts(ctx, fasts); err != nil {
		t.Fatalf("UpsertFasts failed: %v", err)
	}

	since := t0.AddDate(0, 0, 2)
	results, err := svc.QueryFasts(ctx, FastFilter{Since: &since})
	if err != nil {
		t.Fatalf("QueryFasts failed: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("expected 4 fasts since day 2, got %d", len(results))
	}

	results, err = svc.QueryFasts(ctx, FastFilter{Since: &since, OnlyCompleted: true})
	if err != nil {
		t.Fatalf("QueryFasts failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 completed fasts since day 2, got %d", len(results))
	}

	results, err = svc.QueryFasts(ctx, FastFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("QueryFasts failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "f4" {
		t.Errorf("unexpected page: %d results, first %v", len(results), results)
	}
}

// TestFastsOverlapping verifies the window query that feeds day timelines.
func TestFastsOverlapping(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	err := svc.UpsertFasts(ctx, []*Fast{
		{ID: "before", StartTime: t0.Add(-30 * time.Hour), EndTime: ptr(t0.Add(-20 * time.Hour))},
		{ID: "touching-end", StartTime: t0.Add(-10 * time.Hour), EndTime: ptr(t0)},
		{ID: "spanning", StartTime: t0.Add(-2 * time.Hour), EndTime: ptr(t0.Add(30 * time.Hour))},
		{ID: "inside", StartTime: t0.Add(time.Hour), EndTime: ptr(t0.Add(2 * time.Hour))},
		{ID: "open", StartTime: t0.Add(40 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("UpsertFasts failed: %v", err)
	}

	got, err := svc.FastsOverlapping(ctx, t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("FastsOverlapping failed: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	want := []string{"spanning", "inside"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, ids)
	}

	got, err = svc.FastsOverlapping(ctx, t0.Add(48*time.Hour), t0.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("FastsOverlapping failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "open" {
		t.Errorf("expected the ongoing fast, got %v", got)
	}
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, ok, err := svc.GetPreference(ctx, "theme"); err != nil || ok {
		t.Fatalf("expected unset preference, got ok=%v err=%v", ok, err)
	}

	if err := svc.SetPreference(ctx, "theme", "light"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if err := svc.SetPreference(ctx, "theme", "solarized"); err != nil {
		t.Fatalf("SetPreference overwrite failed: %v", err)
	}
	if err := svc.SetPreference(ctx, "default_goal", "18h"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}

	v, ok, err := svc.GetPreference(ctx, "theme")
	if err != nil || !ok || v != "solarized" {
		t.Errorf("expected solarized, got %q ok=%v err=%v", v, ok, err)
	}

	all, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if len(all) != 2 || all["default_goal"] != "18h" {
		t.Errorf("unexpected preferences: %v", all)
	}

	if err := svc.DeletePreference(ctx, "theme"); err != nil {
		t.Fatalf("DeletePreference failed: %v", err)
	}
	if _, ok, _ := svc.GetPreference(ctx, "theme"); ok {
		t.Error("expected preference deleted")
	}
	if err := svc.SetPreference(ctx, "", "x"); err == nil {
		t.Error("expected error for empty key")
	}
}

// BenchmarkUpsertFasts measures the throughput of batch fast insertion.
func BenchmarkUpsertFasts(b *testing.B) {
	ctx := context.Background()
	svc := newTestService(b)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		fasts := make([]*Fast, 1000)
		for i := 0; i < 1000; i++ {
			start := t0.Add(time.Duration(n*1000+i) * time.Hour)
			fasts[i] = &Fast{
				ID:        fmt.Sprintf("bench-%d-%d", n, i),
				StartTime: start,
				EndTime:   ptr(start.Add(30 * time.Minute)),
			}
		}
		if err := svc.UpsertFasts(ctx, fasts); err != nil {
			b.Fatalf("UpsertFasts failed: %v", err)
		}
	}
}

func TestFastProgress(t *testing.T) {
	tests := []struct {
		name         string
		fast         Fast
		now          time.Time
		wantDuration time.Duration
		wantProgress float64
	}{
		{"future start", Fast{StartTime: t0.Add(time.Hour), GoalMinutes: 960}, t0, 0, 0},
		{"quarter", Fast{StartTime: t0, GoalMinutes: 960}, t0.Add(4 * time.Hour), 4 * time.Hour, 0.25},
		{"beyond goal", Fast{StartTime: t0, GoalMinutes: 60}, t0.Add(3 * time.Hour), 3 * time.Hour, 1},
		{"no goal", Fast{StartTime: t0}, t0.Add(3 * time.Hour), 3 * time.Hour, 0},
		{"closed", Fast{StartTime: t0, EndTime: ptr(t0.Add(8 * time.Hour)), GoalMinutes: 960}, t0.Add(20 * time.Hour), 8 * time.Hour, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fast.Duration(tt.now); got != tt.wantDuration {
				t.Errorf("Duration = %s, want %s", got, tt.wantDuration)
			}
			if got := tt.fast.Progress(tt.now); got != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", got, tt.wantProgress)
			}
		})
	}
}

func TestImport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Import(ctx, []*Fast{
		{ID: "a", StartTime: t0, EndTime: ptr(t0.Add(16 * time.Hour))},
	}, map[string]string{"theme": "mono", "default_goal": "18h"})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	prefs, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if len(prefs) != 2 || prefs["theme"] != "mono" {
		t.Errorf("unexpected preferences: %v", prefs)
	}

	err = svc.Import(ctx, []*Fast{
		{ID: "b", StartTime: t0.Add(48 * time.Hour), EndTime: ptr(t0.Add(60 * time.Hour))},
	}, map[string]string{"": "x"})
	if err == nil {
		t.Fatal("expected an error for an empty preference key")
	}
	if _, err := svc.GetFast(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("fast b should not be written, got err=%v", err)
	}
}
