package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Preference keys stored in the database. A stored preference overrides
// the matching file setting.
const (
	PrefTheme       = "theme"
	PrefDefaultGoal = "default_goal"
	PrefTimezone    = "timezone"
)

// ValidatePreference checks a preference before it is stored. Unknown keys
// accept any value.
func ValidatePreference(key, value string) error {
	switch key {
	case "":
		return errors.New("preference key is empty")
	case PrefTheme:
		if !ValidTheme(value) {
			return fmt.Errorf("unknown theme %q (want one of %s)", value, strings.Join(Themes, ", "))
		}
	case PrefDefaultGoal:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid default goal %q: %w", value, err)
		}
		if d < 0 {
			return fmt.Errorf("default goal must not be negative: %s", d)
		}
	case PrefTimezone:
		if _, err := loadLocation(value); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", value, err)
		}
	}
	return nil
}

// Settings are the values a stored preference can override.
type Settings struct {
	Location    *time.Location
	DefaultGoal time.Duration
	Theme       string
}

// Settings returns the configured values before any preference applies.
func (c *Config) Settings() Settings {
	return Settings{
		Location:    c.Location(),
		DefaultGoal: c.Fasting.DefaultGoal,
		Theme:       c.UI.Theme,
	}
}

// Apply returns s with stored preferences overlaid. Invalid values leave
// the base value in place; the returned error lists every one of them.
func (s Settings) Apply(prefs map[string]string) (Settings, error) {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := prefs[key]
		if err := ValidatePreference(key, value); err != nil {
			errs = append(errs, err)
			continue
		}
		switch key {
		case PrefTheme:
			s.Theme = value
		case PrefDefaultGoal:
			s.DefaultGoal, _ = time.ParseDuration(value)
		case PrefTimezone:
			s.Location, _ = loadLocation(value)
		}
	}
	return s, errors.Join(errs...)
}

// ApplyPreferences overlays stored preferences onto c. Every binary calls
// it right after opening the store.
func (c *Config) ApplyPreferences(prefs map[string]string) error {
	s, err := c.Settings().Apply(prefs)
	c.location = s.Location
	c.Timezone = s.Location.String()
	c.Fasting.DefaultGoal = s.DefaultGoal
	c.UI.Theme = s.Theme
	return err
}
