// Package config loads crawler configuration, including the contest registry.
//
// Values come from a YAML file (topdog.yaml in the working directory or
// ./config, or an explicit path), environment variables prefixed TOPDOG_, and
// an optional .env file. The contest list and category rules live in the same
// file so a new season is a config edit rather than a rebuild.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/spf13/viper"
)

// Config holds all configuration for the crawler, API and uploader
type Config struct {
	Domain        string               `mapstructure:"domain"`
	UserAgent     string               `mapstructure:"user_agent"`
	Interval      time.Duration        `mapstructure:"interval"`
	FetchTimeout  time.Duration        `mapstructure:"fetch_timeout"`
	Concurrency   int                  `mapstructure:"concurrency"`
	OutputDir     string               `mapstructure:"output_dir"`
	Reconcile     bool                 `mapstructure:"reconcile"`
	LogLevel      string               `mapstructure:"log_level"`
	API           APIConfig            `mapstructure:"api"`
	Upload        UploadConfig         `mapstructure:"upload"`
	Contests      []contest.Contest    `mapstructure:"contests"`
	CategoryRules []contest.RuleConfig `mapstructure:"category_rules"`
}

// APIConfig holds read-only API settings
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// UploadConfig holds object-store upload settings
type UploadConfig struct {
	Bucket     string        `mapstructure:"bucket"`
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	Interval   time.Duration `mapstructure:"interval"`
	DryRun     bool          `mapstructure:"dry_run"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// Registry builds the contest registry described by the config
func (c *Config) Registry() (*contest.Registry, error) {
	return contest.NewRegistry(c.Contests, c.CategoryRules)
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Upload.Interval <= 0 {
		return fmt.Errorf("upload.interval must be positive")
	}
	if c.Upload.MaxRetries < 0 {
		return fmt.Errorf("upload.max_retries must be >= 0")
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("invalid registry: %w", err)
	}
	return nil
}

// Loader reads configuration and can watch it for changes
type Loader struct {
	v *viper.Viper
	// fileContests is set when the loaded file lists its own contests
	fileContests bool
}

// NewLoader creates a loader. An empty path searches for topdog.yaml.
func NewLoader(path string) *Loader {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("topdog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("TOPDOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return &Loader{v: v}
}

// Load reads and validates the configuration. A missing config file is not an
// error when no explicit path was given; defaults and environment apply.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	l.fileContests = l.v.InConfig("contests")
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile returns the file the configuration was read from, if any
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the new configuration whenever the config file
// changes, or onError when the edited file does not load. Requires a prior
// successful Load from a file. An empty file, or one that drops the contest
// list the loaded file had, is reported through onError rather than falling
// back to the default contests.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := l.reload()
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) reload() (*Config, error) {
	file := l.v.ConfigFileUsed()
	info, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("config file %s is empty", file)
	}
	if l.fileContests && !l.v.InConfig("contests") {
		return nil, fmt.Errorf("config file %s no longer lists contests", file)
	}
	return l.decode()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("domain", "https://www.gogophotocontest.com")
	v.SetDefault("user_agent", "topdog-crawler/1.0 (github.com/pfrederiksen/topdog)")
	v.SetDefault("interval", "60s")
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("concurrency", 4)
	v.SetDefault("output_dir", ".")
	v.SetDefault("reconcile", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("upload.bucket", "new-top-dog")
	v.SetDefault("upload.base_url", "https://storage.googleapis.com")
	v.SetDefault("upload.token", "")
	v.SetDefault("upload.interval", "60s")
	v.SetDefault("upload.dry_run", false)
	v.SetDefault("upload.max_retries", 3)
	v.SetDefault("contests", []map[string]interface{}{
		{"display_name": "NEW Top Dog Neenah", "page": "newtopdogneenah2022", "expected_entrants": 10, "bonus_day_baseline": 0},
		{"display_name": "NEW Top Dog Lakeshore", "page": "newtopdoglakeshore2022", "expected_entrants": 10, "bonus_day_baseline": 0},
	})
	v.SetDefault("category_rules", []map[string]interface{}{
		{"fragment": "neenah", "display_name": "NEW Top Dog Neenah", "page": "newtopdogneenah2022"},
		{"fragment": "lakeshore", "display_name": "NEW Top Dog Lakeshore", "page": "newtopdoglakeshore2022"},
	})
}
