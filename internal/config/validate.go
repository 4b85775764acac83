package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be >= 1, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.Concurrency > 1000 {
		return fmt.Errorf("crawl.concurrency must be <= 1000, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.MaxDuration <= 0 {
		return fmt.Errorf("crawl.max_duration must be > 0")
	}
	if cfg.Crawl.MaxRetries < 1 {
		return fmt.Errorf("crawl.max_retries must be >= 1, got %d", cfg.Crawl.MaxRetries)
	}
	if cfg.Crawl.KillGrace <= 0 {
		return fmt.Errorf("crawl.kill_grace must be > 0")
	}

	switch cfg.Obtainer.Type {
	case "browser", "static", "xpath":
	default:
		return fmt.Errorf("obtainer.type must be 'browser', 'static', or 'xpath', got %q", cfg.Obtainer.Type)
	}
	if cfg.Obtainer.ExecutionTimeout <= 0 {
		return fmt.Errorf("obtainer.execution_timeout must be > 0")
	}
	if cfg.Obtainer.HTTPTimeout <= 0 {
		return fmt.Errorf("obtainer.http_timeout must be > 0")
	}
	if cfg.Obtainer.MaxBodySize <= 0 {
		return fmt.Errorf("obtainer.max_body_size must be > 0")
	}

	switch cfg.Persistence.Backend {
	case "sqlite":
		if cfg.Persistence.SQLitePath == "" {
			return fmt.Errorf("persistence.sqlite_path must be set for the sqlite backend")
		}
	case "mongo":
		if cfg.Persistence.MongoURI == "" {
			return fmt.Errorf("persistence.mongo_uri must be set for the mongo backend")
		}
	case "multi":
		if cfg.Persistence.SQLitePath == "" {
			return fmt.Errorf("persistence.sqlite_path must be set for the multi backend")
		}
		if cfg.Persistence.MongoURI == "" {
			return fmt.Errorf("persistence.mongo_uri must be set for the multi backend")
		}
	default:
		return fmt.Errorf("persistence.backend must be 'sqlite', 'mongo', or 'multi', got %q", cfg.Persistence.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid as a crawl start URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
