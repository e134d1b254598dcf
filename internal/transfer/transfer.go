// Package transfer imports and exports Fastline data as JSON.
//
// The export document carries every fast and every preference:
//
//	{
//	  "version": 1,
//	  "exported_at": "2024-06-10T08:00:00Z",
//	  "fasts": [{"id": "...", "start": "...", "end": "...", "goal_minutes": 960}],
//	  "preferences": {"theme": "dark"}
//	}
//
// An ongoing fast has no "end".
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/pkg/jsonutil"
)

// FormatVersion is the document version written by Export.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for documents from an unknown format.
var ErrUnsupportedVersion = errors.New("unsupported export version")

// Document is the on-disk export format.
type Document struct {
	Version     int               `json:"version"`
	ExportedAt  time.Time         `json:"exported_at"`
	Fasts       []FastRecord      `json:"fasts"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// FastRecord is one exported fast.
type FastRecord struct {
	ID          string     `json:"id,omitempty"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	GoalMinutes int        `json:"goal_minutes,omitempty"`
	Note        string     `json:"note,omitempty"`
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// SkipPreferences leaves stored preferences untouched.
	SkipPreferences bool
}

// ImportResult counts what Import wrote.
type ImportResult struct {
	Fasts       int `json:"fasts"`
	Preferences int `json:"preferences"`
}

// Build assembles an export document from the store.
func Build(ctx context.Context, store database.Store, now time.Time) (*Document, error) {
	fasts, err := store.QueryFasts(ctx, database.FastFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading fasts for export: %w", err)
	}
	prefs, err := store.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading preferences for export: %w", err)
	}

	doc := &Document{
		Version:     FormatVersion,
		ExportedAt:  now.UTC(),
		Fasts:       make([]FastRecord, 0, len(fasts)),
		Preferences: prefs,
	}
	// Oldest first reads naturally in a file.
	for i := len(fasts) - 1; i >= 0; i-- {
		f := fasts[i]
		doc.Fasts = append(doc.Fasts, FastRecord{
			ID:          f.ID,
			Start:       f.StartTime.UTC(),
			End:         utcPtr(f.EndTime),
			GoalMinutes: f.GoalMinutes,
			Note:        f.Note,
		})
	}
	return doc, nil
}

// Export writes the store's contents to w as indented JSON.
func Export(ctx context.Context, store database.Store, w io.Writer, now time.Time) (*Document, error) {
	doc, err := Build(ctx, store, now)
	if err != nil {
		return nil, err
	}
	if err := jsonutil.WriteIndented(w, doc); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return doc, nil
}

// Decode reads and validates a document without touching any store.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := jsonutil.DecodeStrict(r, &doc); err != nil {
		return nil, fmt.Errorf("decoding import: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document before anything is written.
func (d *Document) Validate() error {
	if d.Version != FormatVersion {
		return fmt.Errorf("version %d: %w", d.Version, ErrUnsupportedVersion)
	}

	ongoing := 0
	seen := make(map[string]bool, len(d.Fasts))
	for i, rec := range d.Fasts {
		if rec.Start.IsZero() {
			return fmt.Errorf("fast #%d: missing start", i)
		}
		if rec.End != nil && rec.End.Before(rec.Start) {
			return fmt.Errorf("fast #%d (%s): %w", i, rec.ID, database.ErrInvalidInterval)
		}
		if rec.GoalMinutes < 0 {
			return fmt.Errorf("fast #%d (%s): negative goal", i, rec.ID)
		}
		if rec.End == nil {
			ongoing++
		}
		if rec.ID != "" {
			if seen[rec.ID] {
				return fmt.Errorf("fast #%d: duplicate id %s", i, rec.ID)
			}
			seen[rec.ID] = true
		}
	}
	if ongoing > 1 {
		return fmt.Errorf("document has %d ongoing fasts: %w", ongoing, database.ErrFastInProgress)
	}
	for key, value := range d.Preferences {
		if err := config.ValidatePreference(key, value); err != nil {
			return fmt.Errorf("preference %q: %w", key, err)
		}
	}
	return nil
}

// Import applies a document to the store. Fasts are upserted by ID and
// preferences stored in a single transaction; records without an ID get
// a new one.
func Import(ctx context.Context, store database.Store, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, store, doc, opts)
}

// Apply writes an already-decoded document to the store.
func Apply(ctx context.Context, store database.Store, doc *Document, opts ImportOptions) (*ImportResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	fasts := make([]*database.Fast, 0, len(doc.Fasts))
	for _, rec := range doc.Fasts {
		fasts = append(fasts, &database.Fast{
			ID:          rec.ID,
			StartTime:   rec.Start,
			EndTime:     rec.End,
			GoalMinutes: rec.GoalMinutes,
			Note:        rec.Note,
		})
	}
	var prefs map[string]string
	if !opts.SkipPreferences {
		prefs = doc.Preferences
	}
	if err := store.Import(ctx, fasts, prefs); err != nil {
		return nil, fmt.Errorf("importing: %w", err)
	}
	return &ImportResult{Fasts: len(fasts), Preferences: len(prefs)}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
