// Package database provides the storage layer for Fastline.
//
// It implements the Store interface using SQLite with WAL mode and an
// embedded schema. Fasts and key-value preferences live in the same
// database file. The DBService struct is the primary entry point for all
// database operations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrNotFound is returned when a fast ID does not exist.
	ErrNotFound = errors.New("fast not found")
	// ErrFastInProgress is returned when starting a fast while another is open.
	ErrFastInProgress = errors.New("a fast is already in progress")
	// ErrNoActiveFast is returned when stopping with no open fast.
	ErrNoActiveFast = errors.New("no fast in progress")
	// ErrInvalidInterval is returned for a fast that ends before it starts.
	ErrInvalidInterval = errors.New("fast ends before it starts")
)

// Store defines the interface for fast and preference persistence.
type Store interface {
	// StartFast opens a new fast beginning at start.
	StartFast(ctx context.Context, start time.Time, goal time.Duration, note string) (*Fast, error)
	// StopFast closes the open fast at end.
	StopFast(ctx context.Context, end time.Time) (*Fast, error)
	// ActiveFast returns the open fast, or nil if there is none.
	ActiveFast(ctx context.Context) (*Fast, error)

	// GetFast returns a single fast by ID.
	GetFast(ctx context.Context, id string) (*Fast, error)
	// UpdateFast rewrites the times, goal and note of an existing fast.
	UpdateFast(ctx context.Context, fast *Fast) error
	// DeleteFast removes a fast by ID.
	DeleteFast(ctx context.Context, id string) error
	// UpsertFasts inserts or replaces fasts in a single transaction.
	UpsertFasts(ctx context.Context, fasts []*Fast) error
	// Import upserts fasts and stores preferences in a single transaction.
	Import(ctx context.Context, fasts []*Fast, prefs map[string]string) error

	// QueryFasts returns fasts matching the filter, ordered by start_time DESC.
	QueryFasts(ctx context.Context, filter FastFilter) ([]*Fast, error)
	// FastsOverlapping returns every fast touching [from, to), ordered by start_time.
	FastsOverlapping(ctx context.Context, from, to time.Time) ([]*Fast, error)

	// GetPreference returns a preference value and whether it was set.
	GetPreference(ctx context.Context, key string) (string, bool, error)
	// SetPreference stores a preference value.
	SetPreference(ctx context.Context, key, value string) error
	// DeletePreference removes a preference.
	DeletePreference(ctx context.Context, key string) error
	// Preferences returns all stored preferences.
	Preferences(ctx context.Context) (map[string]string, error)

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// Fast is one tracked fasting period. EndTime is nil while it is ongoing.
type Fast struct {
	ID          string     `json:"id"`
	StartTime   time.Time  `json:"start"`
	EndTime     *time.Time `json:"end,omitempty"`
	GoalMinutes int        `json:"goal_minutes"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ongoing reports whether the fast has not ended.
func (f *Fast) Ongoing() bool {
	return f.EndTime == nil
}

// Goal returns the fasting goal as a duration.
func (f *Fast) Goal() time.Duration {
	return time.Duration(f.GoalMinutes) * time.Minute
}

// Duration returns the elapsed time of the fast, using now for an
// ongoing fast. A fast that has not started yet has lasted zero.
func (f *Fast) Duration(now time.Time) time.Duration {
	d := f.Interval().EffectiveEnd(now).Sub(f.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Progress returns the fraction of the goal completed at now, in [0, 1].
// A fast without a goal has no progress.
func (f *Fast) Progress(now time.Time) float64 {
	if f.GoalMinutes <= 0 {
		return 0
	}
	return min(float64(f.Duration(now))/float64(f.Goal()), 1)
}

// GoalReached reports whether the fast has lasted at least its goal.
// A fast without a goal never reaches it.
func (f *Fast) GoalReached(now time.Time) bool {
	return f.GoalMinutes > 0 && f.Duration(now) >= f.Goal()
}

// Interval maps the fast onto the timeline input type.
func (f *Fast) Interval() timeline.Interval {
	if f.EndTime == nil {
		return timeline.Open(f.StartTime)
	}
	return timeline.Closed(f.StartTime, *f.EndTime)
}

// Validate checks the record invariants enforced by the schema.
func (f *Fast) Validate() error {
	if f.EndTime != nil && f.EndTime.Before(f.StartTime) {
		return fmt.Errorf("fast %s: %w", f.ID, ErrInvalidInterval)
	}
	if f.GoalMinutes < 0 {
		return fmt.Errorf("fast %s: negative goal", f.ID)
	}
	return nil
}

// Intervals maps a list of fasts onto timeline intervals.
func Intervals(fasts []*Fast) []timeline.Interval {
	out := make([]timeline.Interval, 0, len(fasts))
	for _, f := range fasts {
		out = append(out, f.Interval())
	}
	return out
}

// FastFilter defines query parameters for fast listing.
type FastFilter struct {
	Since         *time.Time `json:"since,omitempty"` // start_time >= Since
	Until         *time.Time `json:"until,omitempty"` // start_time < Until
	OnlyCompleted bool       `json:"only_completed"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite.
// It manages the connection pool and prepared statements, and
// serializes writers through a read-write mutex.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	// now is swapped out in tests.
	now func() time.Time

	stmtInsertFast    *sql.Stmt
	stmtUpsertFast    *sql.Stmt
	stmtGetFast       *sql.Stmt
	stmtActiveFast    *sql.Stmt
	stmtSetPreference *sql.Stmt
}

// NewDBService opens (or creates) the database at path, initializes the
// schema and prepares frequently-used statements.
//
// Use ":memory:" for an in-memory database (useful for testing).
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// SQLite only supports one writer at a time; a single connection also
	// keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{
		db:   db,
		path: path,
		now:  time.Now,
	}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return svc, nil
}

// Path returns the database location the service was opened with.
func (s *DBService) Path() string {
	return s.path
}

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtInsertFast, err = s.db.Prepare(`
		INSERT INTO fasts (fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertFast: %w", err)
	}

	s.stmtUpsertFast, err = s.db.Prepare(`
		INSERT INTO fasts (fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fast_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			goal_minutes = excluded.goal_minutes,
			note = excluded.note,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing UpsertFast: %w", err)
	}

	s.stmtGetFast, err = s.db.Prepare(`
		SELECT fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at
		FROM fasts WHERE fast_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing GetFast: %w", err)
	}

	s.stmtActiveFast, err = s.db.Prepare(`
		SELECT fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at
		FROM fasts WHERE end_time IS NULL
		ORDER BY start_time DESC LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("preparing ActiveFast: %w", err)
	}

	s.stmtSetPreference, err = s.db.Prepare(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing SetPreference: %w", err)
	}

	return nil
}

// ============================================================
// Fast lifecycle
// ============================================================

// StartFast opens a new fast. It fails with ErrFastInProgress when a fast
// is already open.
func (s *DBService) StartFast(ctx context.Context, start time.Time, goal time.Duration, note string) (*Fast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := scanFast(s.stmtActiveFast.QueryRowContext(ctx))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking for active fast: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("starting fast (open since %s): %w",
			active.StartTime.Format(time.RFC3339), ErrFastInProgress)
	}

	now := s.now()
	fast := &Fast{
		ID:          uuid.NewString(),
		StartTime:   start,
		GoalMinutes: int(goal / time.Minute),
		Note:        note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := fast.Validate(); err != nil {
		return nil, err
	}

	_, err = s.stmtInsertFast.ExecContext(ctx,
		fast.ID, timeutil.ToNano(fast.StartTime), nil,
		fast.GoalMinutes, fast.Note,
		timeutil.ToNano(fast.CreatedAt), timeutil.ToNano(fast.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting fast %s: %w", fast.ID, err)
	}
	return fast, nil
}

// StopFast ends the open fast at end. It fails with ErrNoActiveFast when
// nothing is open and ErrInvalidInterval when end precedes the start.
func (s *DBService) StopFast(ctx context.Context, end time.Time) (*Fast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fast, err := scanFast(s.stmtActiveFast.QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveFast
	}
	if err != nil {
		return nil, fmt.Errorf("loading active fast: %w", err)
	}

	fast.EndTime = &end
	fast.UpdatedAt = s.now()
	if err := fast.Validate(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE fasts SET end_time = ?, updated_at = ? WHERE fast_id = ?`,
		timeutil.ToNano(end), timeutil.ToNano(fast.UpdatedAt), fast.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("stopping fast %s: %w", fast.ID, err)
	}
	return fast, nil
}

// ActiveFast returns the open fast, or nil if there is none.
func (s *DBService) ActiveFast(ctx context.Context) (*Fast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fast, err := scanFast(s.stmtActiveFast.QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active fast: %w", err)
	}
	return fast, nil
}

// ============================================================
// Fast CRUD
// ============================================================

// GetFast returns a single fast by ID.
func (s *DBService) GetFast(ctx context.Context, id string) (*Fast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fast, err := scanFast(s.stmtGetFast.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fast %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying fast %s: %w", id, err)
	}
	return fast, nil
}

// UpdateFast rewrites the times, goal and note of an existing fast.
func (s *DBService) UpdateFast(ctx context.Context, fast *Fast) error {
	if err := fast.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fast.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE fasts SET start_time = ?, end_time = ?, goal_minutes = ?, note = ?, updated_at = ?
		WHERE fast_id = ?
	`, timeutil.ToNano(fast.StartTime), nullableNano(fast.EndTime),
		fast.GoalMinutes, fast.Note, timeutil.ToNano(fast.UpdatedAt), fast.ID)
	if err != nil {
		return fmt.Errorf("updating fast %s: %w", fast.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fast %s: %w", fast.ID, ErrNotFound)
	}
	return nil
}

// DeleteFast removes a fast by ID.
func (s *DBService) DeleteFast(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM fasts WHERE fast_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting fast %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fast %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertFasts inserts or replaces fasts within a single transaction.
// Missing IDs are generated. Opening a second ongoing fast fails with
// ErrFastInProgress and leaves the database untouched.
func (s *DBService) UpsertFasts(ctx context.Context, fasts []*Fast) error {
	return s.Import(ctx, fasts, nil)
}

// Import upserts fasts and stores prefs in one transaction. Either
// everything is written or nothing is.
func (s *DBService) Import(ctx context.Context, fasts []*Fast, prefs map[string]string) error {
	for _, f := range fasts {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for key := range prefs {
		if key == "" {
			return errors.New("preference key is empty")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.now()
	if err := upsertFastsTx(ctx, tx, s.stmtUpsertFast, fasts, now); err != nil {
		return err
	}

	stmt := tx.StmtContext(ctx, s.stmtSetPreference)
	for key, value := range prefs {
		if _, err := stmt.ExecContext(ctx, key, value, timeutil.ToNano(now)); err != nil {
			return fmt.Errorf("writing preference %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import transaction: %w", err)
	}
	return nil
}

func upsertFastsTx(ctx context.Context, tx *sql.Tx, upsert *sql.Stmt, fasts []*Fast, now time.Time) error {
	var openID string
	row := tx.QueryRowContext(ctx, `SELECT fast_id FROM fasts WHERE end_time IS NULL LIMIT 1`)
	if err := row.Scan(&openID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for active fast: %w", err)
	}

	stmt := tx.StmtContext(ctx, upsert)
	for _, f := range fasts {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Ongoing() {
			if openID != "" && openID != f.ID {
				return fmt.Errorf("upserting fast %s: %w", f.ID, ErrFastInProgress)
			}
			openID = f.ID
		} else if openID == f.ID {
			openID = ""
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		f.UpdatedAt = now

		_, err := stmt.ExecContext(ctx,
			f.ID, timeutil.ToNano(f.StartTime), nullableNano(f.EndTime),
			f.GoalMinutes, f.Note,
			timeutil.ToNano(f.CreatedAt), timeutil.ToNano(f.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upserting fast %s: %w", f.ID, err)
		}
	}
	return nil
}

// ============================================================
// Queries
// ============================================================

// QueryFasts returns fasts matching the filter, most recent first.
func (s *DBService) QueryFasts(ctx context.Context, filter FastFilter) ([]*Fast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at FROM fasts WHERE 1=1`
	args := make([]interface{}, 0)

	if filter.Since != nil {
		query += ` AND start_time >= ?`
		args = append(args, timeutil.ToNano(*filter.Since))
	}
	if filter.Until != nil {
		query += ` AND start_time < ?`
		args = append(args, timeutil.ToNano(*filter.Until))
	}
	if filter.OnlyCompleted {
		query += ` AND end_time IS NOT NULL`
	}

	query += ` ORDER BY start_time DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fasts: %w", err)
	}
	defer rows.Close()

	return scanFasts(rows)
}

// FastsOverlapping returns every fast whose span touches [from, to),
// ordered by start time. Ongoing fasts that started before to are always
// included; the caller resolves them against its own notion of now.
func (s *DBService) FastsOverlapping(ctx context.Context, from, to time.Time) ([]*Fast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT fast_id, start_time, end_time, goal_minutes, note, created_at, updated_at
		FROM fasts
		WHERE start_time < ? AND (end_time IS NULL OR end_time > ?)
		ORDER BY start_time ASC
	`, timeutil.ToNano(to), timeutil.ToNano(from))
	if err != nil {
		return nil, fmt.Errorf("querying fasts between %s and %s: %w",
			from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanFasts(rows)
}

// Close gracefully shuts down the database, closing all prepared statements
// and the underlying connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []*sql.Stmt{
		s.stmtInsertFast, s.stmtUpsertFast, s.stmtGetFast,
		s.stmtActiveFast, s.stmtSetPreference,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// ============================================================
// Scan Helpers
// ============================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFast(row rowScanner) (*Fast, error) {
	var (
		f                  Fast
		start, created, up int64
		end                *int64
	)
	if err := row.Scan(&f.ID, &start, &end, &f.GoalMinutes, &f.Note, &created, &up); err != nil {
		return nil, err
	}
	f.StartTime = timeutil.FromNano(start)
	if end != nil {
		t := timeutil.FromNano(*end)
		f.EndTime = &t
	}
	f.CreatedAt = timeutil.FromNano(created)
	f.UpdatedAt = timeutil.FromNano(up)
	return &f, nil
}

func scanFasts(rows *sql.Rows) ([]*Fast, error) {
	var fasts []*Fast
	for rows.Next() {
		f, err := scanFast(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fast row: %w", err)
		}
		fasts = append(fasts, f)
	}
	return fasts, rows.Err()
}

func nullableNano(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ns := timeutil.ToNano(*t)
	return &ns
}
