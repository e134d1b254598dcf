package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Storage  StorageConfig `mapstructure:"storage"`
	Timezone string        `mapstructure:"timezone"`
	Fasting  FastingConfig `mapstructure:"fasting"`
	UI       UIConfig      `mapstructure:"ui"`
	Server   ServerConfig  `mapstructure:"server"`
	Logging  LoggingConfig `mapstructure:"logging"`

	location *time.Location
}

// StorageConfig defines where the SQLite database lives
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// FastingConfig defines fasting defaults
type FastingConfig struct {
	DefaultGoal time.Duration `mapstructure:"default_goal"`
}

// UIConfig defines terminal UI settings
type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

// ServerConfig defines the API server address and its day timeline cache
type ServerConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	DayCacheSize int    `mapstructure:"day_cache_size"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Themes lists the accepted ui.theme values, in the order the TUI cycles
// through them.
var Themes = []string{"dark", "light", "solarized", "mono"}

// DefaultDir returns ~/.fastline.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fastline"
	}
	return filepath.Join(home, ".fastline")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load loads configuration from file and environment variables. A missing
// file is not an error; defaults and FASTLINE_* variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FASTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", filepath.Join(DefaultDir(), "fastline.db"))
	v.SetDefault("timezone", "")
	v.SetDefault("fasting.default_goal", "16h")
	v.SetDefault("ui.theme", "dark")
	v.SetDefault("server.listen_addr", "127.0.0.1:9880")
	v.SetDefault("server.day_cache_size", 366)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", filepath.Join(DefaultDir(), "fastline.log"))
}

func validate(cfg *Config) error {
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.Fasting.DefaultGoal < 0 {
		return fmt.Errorf("default goal must not be negative: %s", cfg.Fasting.DefaultGoal)
	}

	if cfg.Server.DayCacheSize < 1 {
		return fmt.Errorf("server.day_cache_size must be at least 1, got %d", cfg.Server.DayCacheSize)
	}

	if !ValidTheme(cfg.UI.Theme) {
		return fmt.Errorf("unknown theme %q (want one of %s)", cfg.UI.Theme, strings.Join(Themes, ", "))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}

	return nil
}

// Location returns the configured time zone, or time.Local when unset.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		loc, err := loadLocation(c.Timezone)
		if err != nil {
			return time.Local
		}
		c.location = loc
	}
	return c.location
}

// ValidTheme reports whether name is a known theme.
func ValidTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
