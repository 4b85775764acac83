package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): CLI flag overlay (applied by the
// caller after Load returns) > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("LINKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("linkwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".linkwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env/file overlays
// only need to set what they change.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.concurrency", cfg.Crawl.Concurrency)
	v.SetDefault("crawl.max_duration", cfg.Crawl.MaxDuration)
	v.SetDefault("crawl.user_agent", cfg.Crawl.UserAgent)
	v.SetDefault("crawl.sitemap_path", cfg.Crawl.SitemapPath)
	v.SetDefault("crawl.kill_grace", cfg.Crawl.KillGrace)
	v.SetDefault("crawl.max_retries", cfg.Crawl.MaxRetries)
	v.SetDefault("crawl.shutdown_drain", cfg.Crawl.ShutdownDrain)

	v.SetDefault("obtainer.type", cfg.Obtainer.Type)
	v.SetDefault("obtainer.execution_timeout", cfg.Obtainer.ExecutionTimeout)
	v.SetDefault("obtainer.http_timeout", cfg.Obtainer.HTTPTimeout)
	v.SetDefault("obtainer.tls_insecure", cfg.Obtainer.TLSInsecure)
	v.SetDefault("obtainer.max_body_size", cfg.Obtainer.MaxBodySize)

	v.SetDefault("persistence.backend", cfg.Persistence.Backend)
	v.SetDefault("persistence.sqlite_path", cfg.Persistence.SQLitePath)
	v.SetDefault("persistence.mongo_database", cfg.Persistence.MongoDatabase)
	v.SetDefault("persistence.mongo_collection", cfg.Persistence.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
