package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP, optional. Without a URL completions are processed in-process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Onboarding
	LandingPath   string
	AuthHeader    string
	DevUser       string
	CatalogFile   string
	WizardRunTTL  time.Duration
	WizardMaxRuns int

	// Worker
	WorkerConcurrency int

	// Extra CIDRs allowed to set the auth header, comma separated.
	TrustedProxies []string

	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetly.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetly"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "onboarding_completed"),

		LandingPath:   getEnv("LANDING_PATH", "/"),
		AuthHeader:    getEnv("AUTH_HEADER", "X-Forwarded-User"),
		DevUser:       getEnv("DEV_USER", ""),
		CatalogFile:   getEnv("CATALOG_FILE", ""),
		WizardRunTTL:  getEnvDuration("WIZARD_RUN_TTL", 24*time.Hour),
		WizardMaxRuns: getEnvInt("WIZARD_MAX_RUNS", 10000),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !strings.HasPrefix(c.LandingPath, "/") {
		errors = append(errors, fmt.Sprintf("invalid landing path '%s': must start with '/'", c.LandingPath))
	}
	if strings.TrimSpace(c.AuthHeader) == "" {
		errors = append(errors, "auth header cannot be empty")
	}

	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); err != nil {
			errors = append(errors, fmt.Sprintf("catalog file is not readable: %s", c.CatalogFile))
		}
	}

	if c.WizardRunTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid wizard run ttl %v: must be at least 1 minute", c.WizardRunTTL))
	}
	if c.WizardMaxRuns < 1 {
		errors = append(errors, fmt.Sprintf("invalid wizard max runs %d: must be at least 1", c.WizardMaxRuns))
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
