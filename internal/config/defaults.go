package config

import (
	"time"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDriver     = DriverSQLite
	DefaultSQLitePath = "gibbs.db"

	DefaultPostgresHost   = "localhost"
	DefaultPostgresPort   = 5432
	DefaultPostgresDBName = "gibbs"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "gibbs:"
	DefaultTransformTTL   = 24 * time.Hour
	DefaultNegativeTTL    = 10 * time.Minute
	DefaultLockTTL        = 30 * time.Second
	DefaultLockRetryDelay = 200 * time.Millisecond
	DefaultLockRetryCount = 50

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "gibbs.reverse-transform.completed"

	DefaultKafkaRequestTopic    = "gibbs.reverse-transform.requested"
	DefaultKafkaGroupID         = "gibbs-worker"
	DefaultKafkaDeadLetterTopic = "gibbs.reverse-transform.dlq"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "gibbs"

	DefaultWorkers = 4

	DefaultMetricsNamespace = "gibbs"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// defaultValues seeds viper so that every key is known before unmarshalling.
// Keys that accept a meaningful zero (pH, ionic strength, pMg) are only
// defaulted here, never in ApplyDefaults.
var defaultValues = map[string]interface{}{
	"server.host":                  DefaultServerHost,
	"server.port":                  DefaultServerPort,
	"server.mode":                  DefaultServerMode,
	"database.driver":              DefaultDriver,
	"database.sqlite.path":         DefaultSQLitePath,
	"database.postgres.host":       DefaultPostgresHost,
	"database.postgres.port":       DefaultPostgresPort,
	"database.postgres.db_name":    DefaultPostgresDBName,
	"database.postgres.user":       "",
	"database.postgres.password":   "",
	"database.redis.enabled":       false,
	"database.redis.addr":          DefaultRedisAddr,
	"database.redis.lock_watchdog": true,
	"messaging.kafka.enabled":      false,
	"messaging.kafka.brokers":      []string{DefaultKafkaBroker},
	"messaging.kafka.topic":        DefaultKafkaTopic,
	"storage.minio.enabled":        false,
	"storage.minio.endpoint":       DefaultMinIOEndpoint,
	"storage.minio.bucket":         DefaultMinIOBucket,
	"storage.minio.access_key":     "",
	"storage.minio.secret_key":     "",
	"thermo.ph":                    thermo.DefaultPH,
	"thermo.ionic_strength":        thermo.DefaultI,
	"thermo.pmg":                   thermo.DefaultPMg,
	"thermo.temperature":           thermo.DefaultT,
	"thermo.create_if_missing":     true,
	"thermo.workers":               DefaultWorkers,
	"monitoring.log.level":         DefaultLogLevel,
	"monitoring.log.format":        DefaultLogFormat,
	"monitoring.metrics.enabled":   true,
}

// Default returns a fully defaulted Config, equivalent to loading an empty file.
func Default() *Config {
	cfg := &Config{
		Thermo: ThermoConfig{
			Conditions:      thermo.DefaultConditions(),
			CreateIfMissing: true,
		},
	}
	cfg.Database.Redis.LockWatchdog = true
	cfg.Monitoring.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged so that explicit configuration wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 8 << 20
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDriver
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = DefaultSQLitePath
	}
	pg := &cfg.Database.Postgres
	if pg.Host == "" {
		pg.Host = DefaultPostgresHost
	}
	if pg.Port == 0 {
		pg.Port = DefaultPostgresPort
	}
	if pg.DBName == "" {
		pg.DBName = DefaultPostgresDBName
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}
	if pg.MaxOpenConns == 0 {
		pg.MaxOpenConns = 25
	}
	if pg.MaxIdleConns == 0 {
		pg.MaxIdleConns = 10
	}
	if pg.ConnMaxLifetime == 0 {
		pg.ConnMaxLifetime = 30 * time.Minute
	}
	// An empty MigrationPath selects the migrations embedded in the binary.

	// ── Redis ─────────────────────────────────────────────────────────────────
	rc := &cfg.Database.Redis
	if rc.Addr == "" {
		rc.Addr = DefaultRedisAddr
	}
	if rc.KeyPrefix == "" {
		rc.KeyPrefix = DefaultRedisKeyPrefix
	}
	if rc.TransformTTL == 0 {
		rc.TransformTTL = DefaultTransformTTL
	}
	if rc.NegativeTTL == 0 {
		rc.NegativeTTL = DefaultNegativeTTL
	}
	if rc.LockTTL == 0 {
		rc.LockTTL = DefaultLockTTL
	}
	if rc.LockRetryDelay == 0 {
		rc.LockRetryDelay = DefaultLockRetryDelay
	}
	if rc.LockRetryCount == 0 {
		rc.LockRetryCount = DefaultLockRetryCount
	}
	// DB 0 is both the default and a valid explicit value.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	kc := &cfg.Messaging.Kafka
	if len(kc.Brokers) == 0 {
		kc.Brokers = []string{DefaultKafkaBroker}
	}
	if kc.Topic == "" {
		kc.Topic = DefaultKafkaTopic
	}
	if kc.ClientID == "" {
		kc.ClientID = "gibbs"
	}
	if kc.BatchSize == 0 {
		kc.BatchSize = 100
	}
	if kc.BatchTimeout == 0 {
		kc.BatchTimeout = time.Second
	}
	if kc.RequiredAcks == 0 {
		kc.RequiredAcks = -1
	}
	if kc.MaxAttempts == 0 {
		kc.MaxAttempts = 3
	}
	if kc.RequestTopic == "" {
		kc.RequestTopic = DefaultKafkaRequestTopic
	}
	if kc.GroupID == "" {
		kc.GroupID = DefaultKafkaGroupID
	}
	if kc.DeadLetterTopic == "" {
		kc.DeadLetterTopic = DefaultKafkaDeadLetterTopic
	}
	if kc.MaxRetries == 0 {
		kc.MaxRetries = 3
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.Storage.MinIO.Endpoint == "" {
		cfg.Storage.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Thermo ────────────────────────────────────────────────────────────────
	// A zero temperature is never valid; pH, I and pMg may legitimately be zero.
	if cfg.Thermo.Conditions.T == 0 {
		cfg.Thermo.Conditions.T = thermo.DefaultT
	}
	if cfg.Thermo.Workers == 0 {
		cfg.Thermo.Workers = DefaultWorkers
	}

	// ── Monitoring ────────────────────────────────────────────────────────────
	if cfg.Monitoring.Log.Level == "" {
		cfg.Monitoring.Log.Level = DefaultLogLevel
	}
	if cfg.Monitoring.Log.Format == "" {
		cfg.Monitoring.Log.Format = DefaultLogFormat
	}
	if cfg.Monitoring.Metrics.Namespace == "" {
		cfg.Monitoring.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
}

//Personal.AI order the ending
