package config

import "time"

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for LinkWatch.
type Config struct {
	Crawl       CrawlConfig       `mapstructure:"crawl"       yaml:"crawl"`
	Obtainer    ObtainerConfig    `mapstructure:"obtainer"    yaml:"obtainer"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
}

// CrawlConfig controls the scheduler and lifecycle controller.
type CrawlConfig struct {
	Concurrency   int           `mapstructure:"concurrency"   yaml:"concurrency"`
	MaxDuration   time.Duration `mapstructure:"max_duration"  yaml:"max_duration"`
	UserAgent     string        `mapstructure:"user_agent"    yaml:"user_agent"`
	SitemapPath   string        `mapstructure:"sitemap_path"  yaml:"sitemap_path"`
	KillGrace     time.Duration `mapstructure:"kill_grace"    yaml:"kill_grace"`
	// MaxRetries is the total number of worker attempts per URL, the
	// first attempt included.
	MaxRetries    int           `mapstructure:"max_retries"   yaml:"max_retries"`
	ShutdownDrain time.Duration `mapstructure:"shutdown_drain" yaml:"shutdown_drain"`
}

// ObtainerConfig selects and tunes the pluggable obtainer.
type ObtainerConfig struct {
	Type             string        `mapstructure:"type"              yaml:"type"` // browser, static, xpath
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout" yaml:"execution_timeout"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"      yaml:"http_timeout"`
	TLSInsecure      bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	MaxBodySize      int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
}

// PersistenceConfig selects and configures the Persistence Gateway.
type PersistenceConfig struct {
	Backend        string `mapstructure:"backend"         yaml:"backend"` // sqlite, mongo, multi
	SQLitePath     string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	MongoURI       string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase  string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus-text metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with the defaults named in the CLI
// flag table.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Concurrency:   1,
			MaxDuration:   6 * time.Second,
			UserAgent:     "LinkWatch/" + Version,
			SitemapPath:   "sitemap.xml",
			KillGrace:     5 * time.Second,
			MaxRetries:    3,
			ShutdownDrain: 3 * time.Second,
		},
		Obtainer: ObtainerConfig{
			Type:             "browser",
			ExecutionTimeout: 30 * time.Second,
			HTTPTimeout:      60 * time.Second,
			TLSInsecure:      true,
			MaxBodySize:      20 * 1024 * 1024,
		},
		Persistence: PersistenceConfig{
			Backend:         "sqlite",
			SQLitePath:      "./linkwatch.db",
			MongoDatabase:   "linkwatch",
			MongoCollection: "links",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
