package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"calingen/internal/plugin"
)

// NotificationMessages is the only accepted non-empty value for
// MissingProviderNotification.
const NotificationMessages = "messages"

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. The
// password may be given either as plaintext or as a bcrypt hash.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SessionConfig configures the short-lived generation-flow state store.
type SessionConfig struct {
	// Backend selects the store implementation: "memory" (default) or
	// "redis".
	Backend string `yaml:"backend" json:"backend"`

	// RedisURL is the redis connection URL when Backend is "redis", e.g.
	// "redis://127.0.0.1:6379/0".
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// TTLMinutes bounds how long an in-progress generation flow survives
	// between steps.
	TTLMinutes int `yaml:"ttl_minutes" json:"ttl_minutes"`

	// SweepCron is a cron-style schedule for expiring abandoned flows
	// from the in-memory backend.
	SweepCron string `yaml:"sweep" json:"sweep"`
}

// ICSFeedConfig describes one external ICS subscription contributing
// entries through the icsfeed event provider.
type ICSFeedConfig struct {
	// ID is an internal identifier used for the provider ID and logging.
	ID string `yaml:"id" json:"id"`
	// Name is the human-friendly provider title.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// Category applied to the feed's entries; defaults to HOLIDAY.
	Category string `yaml:"category" json:"category"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DatabasePath is the SQLite database file holding events and
	// profiles.
	DatabasePath string `yaml:"database_path" json:"database_path"`

	// CacheDir is used by the icsfeed provider for its HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Compiler maps a layout type to the compiler plugin handling it. The
	// "default" key is mandatory and must name a registered compiler; it
	// is used whenever a layout type has no mapping of its own.
	Compiler map[string]string `yaml:"compiler" json:"compiler"`

	// DisabledProviders hides event providers from listings and lookups
	// without unregistering them (the operator-side toggle).
	DisabledProviders []string `yaml:"disabled_providers" json:"disabled_providers"`

	// MissingProviderNotification controls whether users are told when a
	// previously active provider became unavailable. Accepted values:
	// "" (off) or "messages".
	MissingProviderNotification string `yaml:"missing_provider_notification" json:"missing_provider_notification"`

	// ProviderCacheSize bounds the per-(provider, year) resolution cache.
	ProviderCacheSize int `yaml:"provider_cache_size" json:"provider_cache_size"`

	Session SessionConfig `yaml:"session" json:"session"`

	// ICSFeeds lists external ICS subscriptions registered as event
	// providers at startup.
	ICSFeeds []ICSFeedConfig `yaml:"ics_feeds" json:"ics_feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		LogLevel:     "INFO",
		DatabasePath: "./var/calingen.db",
		CacheDir:     "./var/ics-cache",
		Compiler: map[string]string{
			"default": "compiler.copypaste",
		},
		ProviderCacheSize: 64,
		Session: SessionConfig{
			Backend:    "memory",
			TTLMinutes: 30,
			SweepCron:  "*/5 * * * *",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "./var/calingen.db"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.Compiler == nil {
		c.Compiler = map[string]string{"default": "compiler.copypaste"}
	}
	if c.ProviderCacheSize <= 0 {
		c.ProviderCacheSize = 64
	}
	switch c.Session.Backend {
	case "memory", "redis":
		// ok
	case "":
		c.Session.Backend = "memory"
	default:
		// Unknown value; fall back to memory to avoid surprising
		// failures at request time (Check reports it).
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = 30
	}
	if c.Session.SweepCron == "" {
		c.Session.SweepCron = "*/5 * * * *"
	}
}

// Check performs the startup checking pass. Problems reported here are
// deployment mistakes that must be fixed before serving requests; they are
// deliberately detected proactively instead of surfacing during request
// handling.
//
// Check must run after plugin registration, since it verifies that the
// configured default compiler actually resolves.
func (c *Config) Check() []error {
	var problems []error

	defaultCompiler, ok := c.Compiler["default"]
	if !ok || defaultCompiler == "" {
		problems = append(problems, errors.New(`config: compiler mapping does not provide a "default" compiler`))
	} else if _, err := plugin.Compilers.Get(defaultCompiler); err != nil {
		problems = append(problems, fmt.Errorf("config: default compiler %q is not registered: %w", defaultCompiler, err))
	}

	for layoutType := range c.Compiler {
		if layoutType == "" {
			problems = append(problems, errors.New("config: compiler mapping contains an empty layout type"))
		}
	}

	if c.MissingProviderNotification != "" && c.MissingProviderNotification != NotificationMessages {
		problems = append(problems, fmt.Errorf(
			"config: missing_provider_notification must be empty or %q, got %q",
			NotificationMessages, c.MissingProviderNotification))
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			problems = append(problems, errors.New("config: session backend is redis but redis_url is empty"))
		}
	default:
		problems = append(problems, fmt.Errorf("config: unknown session backend %q", c.Session.Backend))
	}

	seen := make(map[string]bool, len(c.ICSFeeds))
	for _, feed := range c.ICSFeeds {
		if feed.ID == "" || feed.URL == "" {
			problems = append(problems, fmt.Errorf("config: ics feed %+v needs both id and url", feed))
			continue
		}
		if seen[feed.ID] {
			problems = append(problems, fmt.Errorf("config: duplicate ics feed id %q", feed.ID))
		}
		seen[feed.ID] = true
	}

	return problems
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms and return the defaults.
//   - If the file exists: read YAML, unmarshal and normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so the
				// caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path. The write is
// atomic (temp file + rename) and the final file ends up with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calingen-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
