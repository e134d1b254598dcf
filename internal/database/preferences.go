package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
)

// GetPreference returns the value stored under key and whether it exists.
func (s *DBService) GetPreference(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key, replacing any previous value.
func (s *DBService) SetPreference(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("preference key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stmtSetPreference.ExecContext(ctx, key, value, timeutil.ToNano(s.now())); err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}

// DeletePreference removes key. Deleting a missing key is not an error.
func (s *DBService) DeletePreference(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting preference %s: %w", key, err)
	}
	return nil
}

// Preferences returns every stored preference.
func (s *DBService) Preferences(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}
