package config

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Config struct {
	AppName                       string        `env:"APP_NAME" env-default:"clover"`
	Port                          int           `env:"PORT" env-default:"3010"`
	LogLevel                      string        `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool          `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int           `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int           `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int           `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	ReadHeaderTimeoutSeconds      int           `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int           `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string      `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string      `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	ShutdownTimeout               time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
	StartupMaxAttempts            int           `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (olms_multiyear)
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"olms_multiyear"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrateOnStart      bool          `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Kafka Producer (match events)
	KafkaEnabled      bool          `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string        `env:"KAFKA_OUTPUT_TOPIC" env-default:"match-events"`
	KafkaBatchSize    int           `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"100ms"`
	KafkaRequiredAcks int           `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string        `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Redis (reference cache)
	RedisEnabled       bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisAddr          string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB            int           `env:"REDIS_DB" env-default:"0"`
	RedisPoolSize      int           `env:"REDIS_POOL_SIZE" env-default:"10"`
	ReferenceCacheTTL  time.Duration `env:"REFERENCE_CACHE_TTL" env-default:"1h"`
	ReferenceCacheSize int           `env:"REFERENCE_CACHE_SIZE" env-default:"16"`

	// Tracing
	TracingExporter string        `env:"TRACING_EXPORTER" env-default:"none"`
	TracingProtocol string        `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingEndpoint string        `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingInsecure bool          `env:"TRACING_INSECURE" env-default:"true"`
	TracingTimeout  time.Duration `env:"TRACING_TIMEOUT" env-default:"10s"`

	// Matching
	TokenWeight             float64 `env:"MATCH_TOKEN_WEIGHT" env-default:"0.7"`
	PhoneticWeight          float64 `env:"MATCH_PHONETIC_WEIGHT" env-default:"0.3"`
	SubsetBonus             float64 `env:"MATCH_SUBSET_BONUS" env-default:"0.5"`
	DesignatorVeto          bool    `env:"MATCH_DESIGNATOR_VETO" env-default:"true"`
	EmployerAutoAccept      float64 `env:"MATCH_EMPLOYER_AUTO_ACCEPT" env-default:"0.90"`
	EmployerReviewThreshold float64 `env:"MATCH_EMPLOYER_REVIEW" env-default:"0.60"`
	UnionAutoAccept         float64 `env:"MATCH_UNION_AUTO_ACCEPT" env-default:"0.90"`
	UnionReviewThreshold    float64 `env:"MATCH_UNION_REVIEW" env-default:"0.60"`
	TablesOverridePath      string  `env:"MATCH_TABLES_OVERRIDE_PATH" env-default:""`

	// Batch
	BatchWorkerCount int    `env:"BATCH_WORKER_COUNT" env-default:"4"`
	BatchWriteSize   int    `env:"BATCH_WRITE_SIZE" env-default:"500"`
	PassesPath       string `env:"BATCH_PASSES_PATH" env-default:"passes.yaml"`
}

// Load reads an optional .env file and binds the environment onto a Config
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// a missing .env is normal outside local development
		_ = godotenv.Load(file)
	}

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Database() database.Config {
	return database.Config{
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) Migration() database.MigrationConfig {
	version := c.DatabaseMigrationVersion
	if version < 0 {
		version = 0
	}
	return database.MigrationConfig{
		FolderPath: c.DatabaseMigrationFolderPath,
		Version:    uint(version),
		Force:      c.DatabaseMigrationForce,
	}
}

func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName: c.AppName,
		Exporter:    c.TracingExporter,
		Protocol:    c.TracingProtocol,
		Endpoint:    c.TracingEndpoint,
		Insecure:    c.TracingInsecure,
		Timeout:     c.TracingTimeout,
	}
}

func (c *Config) Redis() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}

func (c *Config) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokers,
		Topic:        c.KafkaOutputTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: c.KafkaBatchTimeout,
		RequiredAcks: c.KafkaRequiredAcks,
		Compression:  c.KafkaCompression,
	}
}

func (c *Config) Weights() similarity.Weights {
	return similarity.Weights{Token: c.TokenWeight, Phonetic: c.PhoneticWeight}
}

func (c *Config) ScorerOptions() similarity.Options {
	return similarity.Options{SubsetBonus: c.SubsetBonus, DesignatorVeto: c.DesignatorVeto}
}

// Thresholds returns the configured decision thresholds for an entity kind
func (c *Config) Thresholds(kind normalizers.Kind) matching.Thresholds {
	if kind == normalizers.KindUnion {
		return matching.Thresholds{AutoAccept: c.UnionAutoAccept, Review: c.UnionReviewThreshold}
	}
	return matching.Thresholds{AutoAccept: c.EmployerAutoAccept, Review: c.EmployerReviewThreshold}
}
