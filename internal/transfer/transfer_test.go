package transfer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *database.DBService {
	t.Helper()
	svc, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)

	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(16 * time.Hour)
	require.NoError(t, src.UpsertFasts(ctx, []*database.Fast{
		{ID: "one", StartTime: start, EndTime: &end, GoalMinutes: 960, Note: "first"},
		{ID: "two", StartTime: end.Add(8 * time.Hour)},
	}))
	require.NoError(t, src.SetPreference(ctx, config.PrefTheme, "light"))

	var buf bytes.Buffer
	doc, err := Export(ctx, src, &buf, end)
	require.NoError(t, err)
	require.Len(t, doc.Fasts, 2)
	assert.Equal(t, "one", doc.Fasts[0].ID, "oldest first")
	assert.Nil(t, doc.Fasts[1].End)
	assert.NotContains(t, strings.SplitN(buf.String(), `"two"`, 2)[1], `"end"`)

	dst := newStore(t)
	res, err := Import(ctx, dst, &buf, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Fasts: 2, Preferences: 1}, res)

	got, err := dst.GetFast(ctx, "one")
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(start))
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
	assert.Equal(t, "first", got.Note)

	active, err := dst.ActiveFast(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "two", active.ID)

	theme, ok, err := dst.GetPreference(ctx, config.PrefTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", theme)
}

func TestImportSkipPreferences(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)

	in := `{"version":1,"exported_at":"2024-06-01T00:00:00Z",
		"fasts":[{"start":"2024-06-01T20:00:00Z","end":"2024-06-02T12:00:00Z"}],
		"preferences":{"theme":"mono"}}`
	res, err := Import(ctx, dst, strings.NewReader(in), ImportOptions{SkipPreferences: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fasts)
	assert.Zero(t, res.Preferences)

	fasts, err := dst.QueryFasts(ctx, database.FastFilter{})
	require.NoError(t, err)
	require.Len(t, fasts, 1)
	assert.NotEmpty(t, fasts[0].ID)

	_, ok, err := dst.GetPreference(ctx, config.PrefTheme)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{
			name: "unknown version",
			in:   `{"version":2,"fasts":[]}`,
			want: ErrUnsupportedVersion,
		},
		{
			name: "reversed fast",
			in:   `{"version":1,"fasts":[{"start":"2024-06-02T00:00:00Z","end":"2024-06-01T00:00:00Z"}]}`,
			want: database.ErrInvalidInterval,
		},
		{
			name: "two ongoing",
			in:   `{"version":1,"fasts":[{"start":"2024-06-01T00:00:00Z"},{"start":"2024-06-02T00:00:00Z"}]}`,
			want: database.ErrFastInProgress,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := Decode(strings.NewReader(`{"version":1,"fasts":[{"id":"x","start":"2024-06-01T00:00:00Z","end":"2024-06-01T01:00:00Z"},{"id":"x","start":"2024-06-02T00:00:00Z","end":"2024-06-02T01:00:00Z"}]}`))
	assert.ErrorContains(t, err, "duplicate id")

	_, err = Decode(strings.NewReader(`{"version":1,"fasts":[{"end":"2024-06-01T01:00:00Z"}]}`))
	assert.ErrorContains(t, err, "missing start")

	_, err = Decode(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestImportLeavesStoreUntouchedOnInvalidDocument(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)

	in := `{"version":1,"fasts":[
		{"id":"ok","start":"2024-06-01T00:00:00Z","end":"2024-06-01T12:00:00Z"},
		{"id":"bad","start":"2024-06-02T00:00:00Z","end":"2024-06-01T00:00:00Z"}]}`
	_, err := Import(ctx, dst, strings.NewReader(in), ImportOptions{})
	require.ErrorIs(t, err, database.ErrInvalidInterval)

	fasts, err := dst.QueryFasts(ctx, database.FastFilter{})
	require.NoError(t, err)
	assert.Empty(t, fasts)
}

func TestImportRejectsInvalidPreferences(t *testing.T) {
	tests := []struct {
		name  string
		prefs string
		want  string
	}{
		{"empty key", `{"":"x"}`, "preference key is empty"},
		{"unknown theme", `{"theme":"neon"}`, "unknown theme"},
		{"bad goal", `{"default_goal":"soon"}`, "invalid default goal"},
		{"bad zone", `{"timezone":"Mars/Olympus"}`, "invalid timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dst := newStore(t)

			in := `{"version":1,"fasts":[{"id":"ok","start":"2024-06-01T00:00:00Z","end":"2024-06-01T12:00:00Z"}],
				"preferences":` + tt.prefs + `}`
			_, err := Import(ctx, dst, strings.NewReader(in), ImportOptions{})
			require.ErrorContains(t, err, tt.want)

			fasts, err := dst.QueryFasts(ctx, database.FastFilter{})
			require.NoError(t, err)
			assert.Empty(t, fasts, "no fast is written when a preference is rejected")
		})
	}
}

func TestApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)
	_, err := dst.StartFast(ctx, time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC), 0, "")
	require.NoError(t, err)

	doc := &Document{
		Version: FormatVersion,
		Fasts: []FastRecord{
			{ID: "closed", Start: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC), End: ptr(time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC))},
			{ID: "open", Start: time.Date(2024, 6, 2, 20, 0, 0, 0, time.UTC)},
		},
		Preferences: map[string]string{config.PrefTheme: "mono"},
	}
	_, err = Apply(ctx, dst, doc, ImportOptions{})
	require.ErrorIs(t, err, database.ErrFastInProgress)

	fasts, err := dst.QueryFasts(ctx, database.FastFilter{})
	require.NoError(t, err)
	assert.Len(t, fasts, 1, "only the fast started before the import")

	_, ok, err := dst.GetPreference(ctx, config.PrefTheme)
	require.NoError(t, err)
	assert.False(t, ok, "preferences roll back with the fasts")
}

func ptr(t time.Time) *time.Time { return &t }
