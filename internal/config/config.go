package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultTimezone     = "Europe/Berlin"
	DefaultClockRefresh = "@every 1m"
	DefaultRefreshCron  = "*/15 * * * *"
	DefaultHorizonDays  = 60
	DefaultCacheDir     = "/var/lib/dayschedule/ics-cache"
	DefaultLogLevel     = "info"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and as event SourceID.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the schedule page and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the headless browser snapshot of the schedule page.
type CaptureConfig struct {
	// URL defaults to the local server root when empty.
	URL        string `yaml:"url,omitempty" json:"url,omitempty"`
	OutputPath string `yaml:"output" json:"output"`
	Width      int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height     int    `yaml:"height,omitempty" json:"height,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone all dates are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ClockRefresh is the cron spec on which "now" (today highlight) is
	// re-evaluated.
	ClockRefresh string `yaml:"clock_refresh" json:"clock_refresh"`

	// RefreshCron is the cron spec on which event sources are reloaded.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays bounds recurrence expansion of ICS events.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// EventsFiles are YAML or JSON files holding event lists.
	EventsFiles []string `yaml:"events_files" json:"events_files"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// CacheDir stores ICS bodies and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		ClockRefresh: DefaultClockRefresh,
		RefreshCron:  DefaultRefreshCron,
		HorizonDays:  DefaultHorizonDays,
		EventsFiles:  []string{},
		ICS:          []ICSConfig{},
		CacheDir:     DefaultCacheDir,
		LogLevel:     DefaultLogLevel,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ClockRefresh == "" {
		c.ClockRefresh = DefaultClockRefresh
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.EventsFiles == nil {
		c.EventsFiles = []string{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
//
// Relative EventsFiles are resolved against the config file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
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

	base := filepath.Dir(path)
	for i, f := range cfg.EventsFiles {
		if f != "" && !filepath.IsAbs(f) {
			cfg.EventsFiles[i] = filepath.Join(base, f)
		}
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".dayschedule-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
