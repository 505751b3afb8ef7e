// Package config defines the configuration structures of the gibbs engine.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

// Storage drivers accepted by database.driver.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds the transform-cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TransformTTL time.Duration `mapstructure:"transform_ttl"`
	NegativeTTL  time.Duration `mapstructure:"negative_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`

	// Row-store lock. The watchdog keeps the lock alive while a long save
	// runs past LockTTL.
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay"`
	LockRetryCount int           `mapstructure:"lock_retry_count"`
	LockWatchdog   bool          `mapstructure:"lock_watchdog"`
}

// DatabaseConfig selects the row store and carries the cache settings.
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "none" | "sqlite" | "postgres"
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// KafkaConfig holds the event publisher and request consumer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	MaxAttempts  int           `mapstructure:"max_attempts"`

	// Consumer side, used by the worker command only.
	RequestTopic    string `mapstructure:"request_topic"`
	GroupID         string `mapstructure:"group_id"`
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// MessagingConfig groups the messaging backends.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// MinIOConfig holds object-storage parameters for CSV inputs and exports.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// StorageConfig groups the object stores.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// ThermoConfig holds the default aqueous condition and registry behaviour.
type ThermoConfig struct {
	thermo.Conditions `mapstructure:",squash"`

	// CreateIfMissing lets lookups of unknown compounds consult the estimator.
	CreateIfMissing bool `mapstructure:"create_if_missing"`

	// Workers bounds the concurrency of batch reverse transforms.
	Workers int `mapstructure:"workers"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// MonitoringConfig groups logging and metrics.
type MonitoringConfig struct {
	Log     logging.LogConfig `mapstructure:"log"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Messaging  MessagingConfig  `mapstructure:"messaging"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Thermo     ThermoConfig     `mapstructure:"thermo"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Database.Driver {
	case DriverNone:
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("config: database.sqlite.path is required")
		}
	case DriverPostgres:
		pg := c.Database.Postgres
		if pg.Host == "" {
			return fmt.Errorf("config: database.postgres.host is required")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("config: database.postgres.port %d is out of range [1, 65535]", pg.Port)
		}
		if pg.User == "" {
			return fmt.Errorf("config: database.postgres.user is required")
		}
		if pg.DBName == "" {
			return fmt.Errorf("config: database.postgres.db_name is required")
		}
	default:
		return fmt.Errorf("config: database.driver %q is invalid; expected none|sqlite|postgres", c.Database.Driver)
	}

	if c.Database.Redis.Enabled {
		if c.Database.Redis.Addr == "" {
			return fmt.Errorf("config: database.redis.addr is required")
		}
		if c.Database.Redis.DB < 0 {
			return fmt.Errorf("config: database.redis.db must be >= 0, got %d", c.Database.Redis.DB)
		}
	}

	if c.Messaging.Kafka.Enabled {
		if len(c.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: messaging.kafka.brokers must contain at least one broker address")
		}
		if c.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("config: messaging.kafka.topic is required")
		}
	}

	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required")
		}
		if c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("config: storage.minio.bucket is required")
		}
	}

	if err := c.Thermo.Conditions.Validate(); err != nil {
		return fmt.Errorf("config: thermo: %w", err)
	}
	if c.Thermo.Workers < 1 {
		return fmt.Errorf("config: thermo.workers must be >= 1, got %d", c.Thermo.Workers)
	}

	switch c.Monitoring.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: monitoring.log.level %q is invalid; expected debug|info|warn|error", c.Monitoring.Log.Level)
	}
	switch c.Monitoring.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: monitoring.log.format %q is invalid; expected json|console", c.Monitoring.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
