package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Status backends.
const (
	BackendFile = "file"
	BackendSQL  = "sql"
	BackendBin  = "bin"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Door       DoorConfig       `yaml:"door" toml:"door"`
	Schedule   ScheduleConfig   `yaml:"schedule" toml:"schedule"`
	Status     StatusConfig     `yaml:"status" toml:"status"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Push       PushConfig       `yaml:"push" toml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" toml:"worker_pool"`
	MQTT       MQTTConfig       `yaml:"mqtt" toml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" toml:"port"`
	AccessKey       string   `yaml:"access_key" toml:"access_key"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" toml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// DoorConfig drives the reconciliation loop.
type DoorConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds" toml:"interval_seconds"`
	Interval        time.Duration `yaml:"-" toml:"-"`
	HourOffset      int           `yaml:"hour_offset" toml:"hour_offset"`
	GraceSeconds    int           `yaml:"grace_seconds" toml:"grace_seconds"`
}

// ScheduleConfig locates the sunrise/sunset schedule.
type ScheduleConfig struct {
	File string `yaml:"file" toml:"file"`
}

// StatusConfig selects and tunes the door status backend.
type StatusConfig struct {
	Backend         string        `yaml:"backend" toml:"backend"`
	File            string        `yaml:"file" toml:"file"`
	TimeoutSeconds  int           `yaml:"timeout_seconds" toml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-" toml:"-"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	Bin             BinConfig     `yaml:"bin" toml:"bin"`
}

// BinConfig describes a remote JSON key-value bin.
type BinConfig struct {
	URL       string `yaml:"url" toml:"url"`
	MasterKey string `yaml:"master_key" toml:"master_key"`
	HTTPProxy string `yaml:"http_proxy" toml:"http_proxy"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" toml:"driver"`
	DSN                    string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" toml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" toml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key" toml:"vapid_private_key"`
	Subject    string `yaml:"subject" toml:"subject"`
	TTL        int    `yaml:"ttl" toml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" toml:"size"`
}

// MQTTConfig holds the broker connection used to publish door events.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Host        string `yaml:"host" toml:"host"`
	Port        int    `yaml:"port" toml:"port"`
	ClientID    string `yaml:"client_id" toml:"client_id"`
	TLS         bool   `yaml:"tls" toml:"tls"`
	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`
	QoS         int    `yaml:"qos" toml:"qos"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// Load reads the configuration from the given path. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Door.IntervalSeconds <= 0 {
		cfg.Door.IntervalSeconds = 60
	}
	cfg.Door.Interval = time.Duration(cfg.Door.IntervalSeconds) * time.Second

	if cfg.Door.GraceSeconds <= 0 {
		cfg.Door.GraceSeconds = 1800
	}

	if cfg.Status.Backend == "" {
		cfg.Status.Backend = BackendFile
	}
	if cfg.Status.TimeoutSeconds <= 0 {
		cfg.Status.TimeoutSeconds = 5
	}
	cfg.Status.Timeout = time.Duration(cfg.Status.TimeoutSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.MQTT.Port <= 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "coopd"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "coop/door"
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		cfg.MQTT.QoS = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the settings the service cannot start without.
func (cfg *Config) Validate() error {
	var errs []error

	if cfg.Server.AccessKey == "" {
		errs = append(errs, errors.New("server.access_key must be set"))
	}
	if cfg.Schedule.File == "" {
		errs = append(errs, errors.New("schedule.file must be set"))
	}
	if cfg.Door.HourOffset < -24 || cfg.Door.HourOffset > 24 {
		errs = append(errs, fmt.Errorf("door.hour_offset %d out of range -24..24", cfg.Door.HourOffset))
	}

	switch cfg.Status.Backend {
	case BackendFile:
		if cfg.Status.File == "" {
			errs = append(errs, errors.New("status.file must be set for the file backend"))
		}
	case BackendSQL:
		if cfg.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn must be set for the sql backend"))
		}
	case BackendBin:
		if cfg.Status.Bin.URL == "" {
			errs = append(errs, errors.New("status.bin.url must be set for the bin backend"))
		}
		if p := cfg.Status.Bin.HTTPProxy; p != "" {
			if u, err := url.Parse(p); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("status.bin.http_proxy %q is not a valid URL", p))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown status.backend %q", cfg.Status.Backend))
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", cfg.Database.Driver))
	}

	if cfg.Push.Enabled() && cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn must be set to store push subscriptions"))
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Host == "" {
		errs = append(errs, errors.New("mqtt.host must be set when mqtt is enabled"))
	}

	return errors.Join(errs...)
}

// NeedsDatabase reports whether any enabled component uses the SQL database.
func (cfg *Config) NeedsDatabase() bool {
	return cfg.Status.Backend == BackendSQL || cfg.Push.Enabled()
}
