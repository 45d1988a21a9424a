package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultPort         = 3318
	DefaultDatabaseType = "sqlite"
	DefaultHeartbeat    = 25 * time.Second
	DefaultRetryDelay   = time.Second
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	// ChannelURL is a redis URL for the event channel. Empty means an
	// in-process channel, or the store's client when DatabaseType is redis.
	ChannelURL string
	Heartbeat  time.Duration
	RetryDelay time.Duration
	LogLevel   string
}

// LoadDotEnv loads KEY=VALUE files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL (sqlite path, postgres or redis URL)")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or redis)")
	fs.StringVar(&cfg.ChannelURL, "c", "", "Event channel redis URL (empty for in-process)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", 0, "Stream heartbeat interval")
	fs.DurationVar(&cfg.RetryDelay, "retry", 0, "Stream resubscribe delay")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DefaultDatabaseType
		}
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "redis":
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.ChannelURL == "" {
		cfg.ChannelURL = os.Getenv("CHANNEL_URL")
	}

	var err error
	if cfg.Heartbeat, err = durationFallback(cfg.Heartbeat, "STREAM_HEARTBEAT", DefaultHeartbeat); err != nil {
		return Config{}, err
	}
	if cfg.RetryDelay, err = durationFallback(cfg.RetryDelay, "STREAM_RETRY_DELAY", DefaultRetryDelay); err != nil {
		return Config{}, err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func durationFallback(v time.Duration, env string, def time.Duration) (time.Duration, error) {
	if v > 0 {
		return v, nil
	}
	if raw := os.Getenv(env); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("invalid %s env variable", env)
		}
		return d, nil
	}
	return def, nil
}
