package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config aggregates all runtime settings required by the client.
type Config struct {
	AppName     string
	Environment string
	API         APIConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Preview     PreviewConfig
	Watchdog    WatchdogConfig
	Monitor     MonitorConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	MaxConns int
}

type StorageConfig struct {
	Driver string
	Path   string
	Bucket string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string
}

type PreviewConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WatchdogConfig struct {
	Interval time.Duration
}

type MonitorConfig struct {
	Interval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults suitable for a local development backend.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "blogclient"),
		Environment: getString("APP_ENV", "development"),
		API: APIConfig{
			BaseURL:  strings.TrimRight(getString("BLOG_API_BASE", "http://localhost:8080/api"), "/"),
			Timeout:  getDuration("BLOG_API_TIMEOUT", 15*time.Second),
			MaxConns: getInt("BLOG_API_MAX_CONNS", 64),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getString("STORAGE_DRIVER", StorageBolt)),
			Path:   getString("STORAGE_PATH", "./data/session.db"),
			Bucket: getString("STORAGE_BUCKET", "session"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getString("REDIS_PREFIX", "blogclient:"),
		},
		Preview: PreviewConfig{
			Host:         getString("PREVIEW_HOST", "127.0.0.1"),
			Port:         getString("PREVIEW_PORT", "3000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Watchdog: WatchdogConfig{
			Interval: getDuration("WATCHDOG_INTERVAL", 30*time.Second),
		},
		Monitor: MonitorConfig{
			Interval: getDuration("MONITOR_INTERVAL", 10*time.Second),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 20*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "console"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Overrides carries command line values that take precedence over the
// environment. Empty fields are ignored.
type Overrides struct {
	APIBase       string
	StorageDriver string
	LogLevel      string
}

// Apply merges o into the configuration and validates the result.
func (c *Config) Apply(o Overrides) error {
	if o.APIBase != "" {
		c.API.BaseURL = strings.TrimRight(o.APIBase, "/")
	}
	if o.StorageDriver != "" {
		c.Storage.Driver = strings.ToLower(o.StorageDriver)
	}
	if o.LogLevel != "" {
		c.Logger.Level = o.LogLevel
	}
	return c.validate()
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageBolt, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("BLOG_API_BASE must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	return nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the listen address of the preview server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Preview.Host, c.Preview.Port)
}
