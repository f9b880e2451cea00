package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration
type Config struct {
	SleepIQ         SleepIQConfig     `yaml:"sleepiq"`
	Poll            PollConfig        `yaml:"poll"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	InfluxDB        InfluxDBConfig    `yaml:"influxdb"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Script          string            `yaml:"script"`           // Optional Lua automation script
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // Graceful stop budget
}

// SleepIQConfig contains cloud account settings
type SleepIQConfig struct {
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	BaseURL         string   `yaml:"base_url"`
	Timeout         Duration `yaml:"timeout"`
	ConcurrentFetch bool     `yaml:"concurrent_fetch"` // Fetch family status and sleepers in parallel
	Extras          bool     `yaml:"extras"`           // Also fetch responsive air, privacy mode, foot warming
}

// PollConfig contains poller settings
type PollConfig struct {
	Interval   Duration `yaml:"interval"`
	MinRefresh Duration `yaml:"min_refresh"` // Minimum gap between a command refresh and the previous poll
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// MQTTConfig contains Home Assistant bridge settings
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	ClientID        string `yaml:"client_id"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// InfluxDBConfig contains telemetry sink settings
type InfluxDBConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	Org           string   `yaml:"org"`
	Bucket        string   `yaml:"bucket"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads the configuration file, expands environment variables and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./sleepiqd.sqlite"
	}

	if cfg.SleepIQ.Timeout == 0 {
		cfg.SleepIQ.Timeout = Duration(30 * time.Second)
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = Duration(60 * time.Second)
	}
	if cfg.Poll.MinRefresh == 0 {
		cfg.Poll.MinRefresh = Duration(5 * time.Second)
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "sleepiqd"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "sleepiq"
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = "homeassistant"
	}

	// InfluxDB defaults
	if cfg.InfluxDB.BatchSize == 0 {
		cfg.InfluxDB.BatchSize = 100
	}
	if cfg.InfluxDB.FlushInterval == 0 {
		cfg.InfluxDB.FlushInterval = Duration(10 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate reports configuration that cannot work
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.SleepIQ.Username == "" || cfg.SleepIQ.Password == "" {
		errs = append(errs, errors.New("sleepiq.username and sleepiq.password are required"))
	}
	if cfg.Poll.Interval.Duration() < time.Second {
		errs = append(errs, fmt.Errorf("poll.interval must be at least 1s (got %s)", cfg.Poll.Interval.Duration()))
	}
	if cfg.Poll.MinRefresh < 0 {
		errs = append(errs, fmt.Errorf("poll.min_refresh must not be negative (got %s)", cfg.Poll.MinRefresh.Duration()))
	}
	if cfg.Ledger.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("ledger.cleanup_interval must be positive (got %s)", cfg.Ledger.CleanupInterval.Duration()))
	}
	if cfg.Ledger.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("ledger.retention_days must be positive (got %d)", cfg.Ledger.RetentionDays))
	}
	if cfg.InfluxDB.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("influxdb.flush_interval must be positive (got %s)", cfg.InfluxDB.FlushInterval.Duration()))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive (got %s)", cfg.ShutdownTimeout.Duration()))
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if cfg.InfluxDB.Enabled && (cfg.InfluxDB.URL == "" || cfg.InfluxDB.Bucket == "") {
		errs = append(errs, errors.New("influxdb.url and influxdb.bucket are required when influxdb is enabled"))
	}
	return errors.Join(errs...)
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
