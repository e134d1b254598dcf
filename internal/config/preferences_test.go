package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePreference(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{PrefTheme, "light", false},
		{PrefTheme, "neon", true},
		{PrefDefaultGoal, "18h", false},
		{PrefDefaultGoal, "0s", false},
		{PrefDefaultGoal, "-1h", true},
		{PrefDefaultGoal, "soon", true},
		{PrefTimezone, "Asia/Kolkata", false},
		{PrefTimezone, "local", false},
		{PrefTimezone, "Mars/Olympus", true},
		{"custom", "anything", false},
		{"", "value", true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidatePreference(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FASTLINE_STORAGE_PATH", filepath.Join(dir, "f.db"))
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestApplyPreferences(t *testing.T) {
	cfg := loadDefaults(t)

	err := cfg.ApplyPreferences(map[string]string{
		PrefTheme:       "mono",
		PrefDefaultGoal: "20h",
		PrefTimezone:    "Asia/Tokyo",
		"custom":        "kept out of the config",
	})
	require.NoError(t, err)

	assert.Equal(t, "mono", cfg.UI.Theme)
	assert.Equal(t, 20*time.Hour, cfg.Fasting.DefaultGoal)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestApplyPreferencesSkipsInvalid(t *testing.T) {
	cfg := loadDefaults(t)

	err := cfg.ApplyPreferences(map[string]string{
		PrefTheme:       "neon",
		PrefDefaultGoal: "soon",
		PrefTimezone:    "Europe/Berlin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neon")
	assert.Contains(t, err.Error(), "soon")

	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 16*time.Hour, cfg.Fasting.DefaultGoal)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestSettingsApply(t *testing.T) {
	base := Settings{Location: time.FixedZone("base", 3600), DefaultGoal: 16 * time.Hour, Theme: "dark"}

	got, err := base.Apply(nil)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	got, err = base.Apply(map[string]string{PrefTimezone: "UTC", PrefDefaultGoal: "13h"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", got.Location.String())
	assert.Equal(t, 13*time.Hour, got.DefaultGoal)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "base", base.Location.String(), "base is unchanged")
}
