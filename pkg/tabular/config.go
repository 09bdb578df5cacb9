package tabular

import (
	"time"
)

// Config represents the root configuration for a tabular client.
type Config struct {
	// Database contains configuration for the PostgreSQL connection pool.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// KVStore contains configuration for the key-value store behind the result cache.
	KVStore KVStoreConfig `yaml:"kvstore" json:"kvstore"`

	// Cache controls the read-through result cache.
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// WriteBack contains asynchronous insert configuration.
	WriteBack WriteBackConfig `yaml:"writeback" json:"writeback"`

	// Tables contains table-specific configuration overrides.
	// If a table is not specified here, default settings will be used.
	Tables map[string]TableConfig `yaml:"tables,omitempty" json:"tables,omitempty"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" json:"log"`
}

// DatabaseConfig contains configuration for the database.
type DatabaseConfig struct {
	// Type is "postgres", or "memory" for the in-process database.
	Type string `yaml:"type" json:"type"`

	// Host is the database host address.
	Host string `yaml:"host" json:"host"`

	// Port is the database port number.
	Port int `yaml:"port" json:"port"`

	// Database is the database name.
	Database string `yaml:"database" json:"database"`

	// Username is the database username.
	Username string `yaml:"username" json:"username"`

	// Password is the database password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// SSLMode is the PostgreSQL sslmode (e.g., "require", "disable", "verify-full").
	SSLMode string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`

	// MaxConns is the maximum size of the connection pool.
	MaxConns int `yaml:"max_conns,omitempty" json:"max_conns,omitempty"`

	// MinConns is the number of connections the pool keeps open.
	MinConns int `yaml:"min_conns,omitempty" json:"min_conns,omitempty"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time,omitempty" json:"conn_max_idle_time,omitempty"`

	// ConnectionTimeout bounds connecting and the initial ping.
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
}

// KVStoreConfig contains configuration for the key-value store.
type KVStoreConfig struct {
	// Type is "redis", "dynamodb" or "memory".
	Type string `yaml:"type" json:"type"`

	// RedisConfig is used when Type is "redis".
	RedisConfig RedisConfig `yaml:"redis_config,omitempty" json:"redis_config,omitempty"`

	// DynamoDBConfig is used when Type is "dynamodb".
	DynamoDBConfig DynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`

	// MaxRetries is the maximum number of retries for failed operations.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// DialTimeout is the timeout for establishing connections.
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	// Endpoints lists Redis addresses; the first one is used.
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	// Password is the authentication password for Redis.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the Redis database number (0-15).
	DB int `yaml:"db" json:"db"`

	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// MinIdleConns is the minimum number of idle connections in the pool.
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// DynamoDBConfig contains DynamoDB-specific configuration.
type DynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"` // LocalStack
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	// Enabled routes every model's reads through the cache unless a table overrides it.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace prefixes every cache key.
	Namespace string `yaml:"namespace" json:"namespace"`

	// TTL is how long a cached result lives.
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// CompressThreshold is the encoded size in bytes from which results are
	// zstd-compressed. Zero disables compression.
	CompressThreshold int `yaml:"compress_threshold" json:"compress_threshold"`
}

// TableConfig contains table-specific configuration overrides.
type TableConfig struct {
	// AutoCreate creates the table, if missing, when the model is built.
	AutoCreate bool `yaml:"auto_create" json:"auto_create"`

	// Cache overrides Cache.Enabled for this table.
	Cache *bool `yaml:"cache,omitempty" json:"cache,omitempty"`

	// Namespace overrides Cache.Namespace for this table.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// WriteBackConfig contains asynchronous insert configuration.
type WriteBackConfig struct {
	// Enabled turns on Model.InsertAsync and the drainer.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// QueueType specifies the queue implementation type.
	// Options: "memory", "redis", "kafka" (default: "memory").
	QueueType string `yaml:"queue_type" json:"queue_type"`

	// BatchSize is how many operations a drain worker dequeues at once.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// DrainRate is the maximum number of operations per second written to the database.
	DrainRate int `yaml:"drain_rate" json:"drain_rate"`

	// Workers is the number of drain goroutines sharing DrainRate.
	Workers int `yaml:"workers" json:"workers"`

	// MaxRetries is the maximum number of retries for failed write-back operations.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryBackoffBase is the base duration for exponential backoff retries.
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base" json:"retry_backoff_base"`

	// RetryBackoffMax is the maximum duration for exponential backoff retries.
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max" json:"retry_backoff_max"`

	// PollInterval is how long an idle worker waits before polling again.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// QueueBufferSize is the buffer size for the in-memory queue.
	QueueBufferSize int `yaml:"queue_buffer_size" json:"queue_buffer_size"`

	// RedisQueueKey is the list key used when QueueType is "redis".
	RedisQueueKey string `yaml:"redis_queue_key" json:"redis_queue_key"`

	// KafkaConfig contains Kafka-specific configuration.
	// Only used when QueueType is "kafka".
	KafkaConfig KafkaConfig `yaml:"kafka_config" json:"kafka_config"`
}

// KafkaConfig contains configuration for Kafka queue.
type KafkaConfig struct {
	// Brokers is a list of Kafka broker addresses (e.g., ["localhost:9092"]).
	Brokers []string `yaml:"brokers" json:"brokers"`

	// Topic is the Kafka topic name for write-back operations.
	Topic string `yaml:"topic" json:"topic"`

	// GroupID is the consumer group ID for reading from Kafka.
	GroupID string `yaml:"group_id" json:"group_id"`

	// BatchSize is the batch size for Kafka producer.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// BatchTimeout is the timeout for batching messages.
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`

	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// ReadTimeout bounds the wait for the first message of a batch.
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// RequiredAcks is the number of acknowledgments required (0, 1, or -1 for all).
	RequiredAcks int `yaml:"required_acks" json:"required_acks"`

	// MaxMessageBytes is the maximum message size in bytes.
	MaxMessageBytes int `yaml:"max_message_bytes" json:"max_message_bytes"`

	// MinBytes is the minimum number of bytes to fetch.
	MinBytes int `yaml:"min_bytes" json:"min_bytes"`

	// MaxBytes is the maximum number of bytes to fetch.
	MaxBytes int `yaml:"max_bytes" json:"max_bytes"`

	// MaxWait is the maximum time to wait for data.
	MaxWait time.Duration `yaml:"max_wait" json:"max_wait"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Development bool     `yaml:"development" json:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding"` // json or console
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults: the
// in-process database, no cache and no write-back.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:              "memory",
			Host:              "localhost",
			Port:              5432,
			SSLMode:           "disable",
			MaxConns:          10,
			ConnMaxLifetime:   time.Hour,
			ConnMaxIdleTime:   30 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		KVStore: KVStoreConfig{
			Type: "memory",
			RedisConfig: RedisConfig{
				Endpoints:    []string{"localhost:6379"},
				PoolSize:     10,
				MinIdleConns: 2,
			},
			DynamoDBConfig: DynamoDBConfig{
				Region:    "us-east-1",
				TableName: "tabular-cache",
			},
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Namespace:         "tabular",
			TTL:               5 * time.Minute,
			CompressThreshold: 4096,
		},
		WriteBack: WriteBackConfig{
			QueueType:        "memory",
			BatchSize:        100,
			DrainRate:        50,
			Workers:          1,
			MaxRetries:       5,
			RetryBackoffBase: time.Second,
			RetryBackoffMax:  30 * time.Second,
			PollInterval:     100 * time.Millisecond,
			QueueBufferSize:  10000,
			RedisQueueKey:    "tabular:writeback",
			KafkaConfig: KafkaConfig{
				Brokers:         []string{"localhost:9092"},
				Topic:           "tabular-writeback",
				GroupID:         "tabular-writeback",
				BatchSize:       100,
				BatchTimeout:    10 * time.Millisecond,
				WriteTimeout:    10 * time.Second,
				ReadTimeout:     10 * time.Second,
				RequiredAcks:    -1, // all replicas
				MaxMessageBytes: 1000000,
				MinBytes:        1,
				MaxBytes:        10 * 1024 * 1024,
				MaxWait:         100 * time.Millisecond,
			},
		},
		Tables: make(map[string]TableConfig),
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}
