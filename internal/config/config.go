package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/threadpull/internal/cache"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
	DefaultBackend    = cache.BackendFile
	DefaultCacheDays  = 4
	DefaultTimeout    = 30 * time.Second
	DefaultPause      = 200 * time.Millisecond
	DefaultUserAgent  = "threadpull/1.0"
	DefaultFormat     = "markdown"

	EnvCacheDir  = "THREADPULL_CACHE_DIR"
	EnvUserAgent = "THREADPULL_USER_AGENT"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "200ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Cache  CacheConfig  `yaml:"cache"`
	HTTP   HTTPConfig   `yaml:"http"`
	Output OutputConfig `yaml:"output"`
}

type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"`
	Days    int    `yaml:"days"`
}

type HTTPConfig struct {
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
	Pause     Duration `yaml:"pause"`
}

type OutputConfig struct {
	Format string       `yaml:"format"`
	Redact RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// Load reads config.yaml from dir if present, loads dir/.env into the
// environment without overriding variables already set, then applies
// defaults and env overrides and validates. A missing config file is not
// an error.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	envPath := filepath.Join(dir, DefaultEnvFile)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
	}

	var cfg Config
	data, err := os.ReadFile(filepath.Join(dir, DefaultConfigFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	resolveEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultCacheDir is the per-user cache location, e.g. ~/.cache/threadpull.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("determine cache directory: %w", err)
	}
	return filepath.Join(base, "threadpull"), nil
}

// Threshold returns the staleness cutoff: cached posts created before it
// are trusted without re-fetching.
func (c *Config) Threshold(now time.Time) time.Time {
	return now.Add(-time.Duration(c.Cache.Days) * 24 * time.Hour)
}

func applyDefaults(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return err
		}
		cfg.Cache.Dir = dir
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultBackend
	}
	if cfg.Cache.Days == 0 {
		cfg.Cache.Days = DefaultCacheDays
	}
	if cfg.HTTP.Timeout.Duration == 0 {
		cfg.HTTP.Timeout.Duration = DefaultTimeout
	}
	if cfg.HTTP.Pause.Duration == 0 {
		cfg.HTTP.Pause.Duration = DefaultPause
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultFormat
	}
	return nil
}

func resolveEnv(cfg *Config) {
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		cfg.HTTP.UserAgent = v
	}
}

func validate(cfg *Config) error {
	switch cfg.Cache.Backend {
	case cache.BackendFile, cache.BackendSQLite, cache.BackendBolt:
		// valid
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want file, sqlite, or bolt)", cfg.Cache.Backend)
	}

	if cfg.Cache.Days < 0 {
		return fmt.Errorf("cache.days: must not be negative (got %d)", cfg.Cache.Days)
	}
	if cfg.HTTP.Pause.Duration < 0 {
		return fmt.Errorf("http.pause: must not be negative (got %s)", cfg.HTTP.Pause.Duration)
	}

	switch cfg.Output.Format {
	case "markdown", "json":
		// valid
	default:
		return fmt.Errorf("output.format: unknown format %q (want markdown or json)", cfg.Output.Format)
	}

	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
