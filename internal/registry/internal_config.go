package registry

import (
	"time"
)

// InternalConfig represents the internal configuration structure.
// This is a copy of the public Config type to avoid import cycles.
type InternalConfig struct {
	Database  InternalDatabaseConfig         `yaml:"database" json:"database"`
	KVStore   InternalKVStoreConfig          `yaml:"kvstore" json:"kvstore"`
	Cache     InternalCacheConfig            `yaml:"cache" json:"cache"`
	WriteBack InternalWriteBackConfig        `yaml:"writeback" json:"writeback"`
	Tables    map[string]InternalTableConfig `yaml:"tables" json:"tables"`
	Log       InternalLogConfig              `yaml:"log" json:"log"`
}

// InternalDatabaseConfig contains configuration for the PostgreSQL pool.
type InternalDatabaseConfig struct {
	Type              string        `yaml:"type" json:"type"` // postgres or memory
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	Database          string        `yaml:"database" json:"database"`
	Username          string        `yaml:"username" json:"username"`
	Password          string        `yaml:"password" json:"password"`
	SSLMode           string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxConns          int           `yaml:"max_conns" json:"max_conns"`
	MinConns          int           `yaml:"min_conns" json:"min_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// InternalKVStoreConfig contains configuration for the key-value store.
type InternalKVStoreConfig struct {
	Type           string                 `yaml:"type" json:"type"`
	RedisConfig    InternalRedisConfig    `yaml:"redis_config,omitempty" json:"redis_config,omitempty"`
	DynamoDBConfig InternalDynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`
	MaxRetries     int                    `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	DialTimeout    time.Duration          `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout    time.Duration          `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout   time.Duration          `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// InternalRedisConfig contains Redis-specific configuration.
type InternalRedisConfig struct {
	Endpoints    []string `yaml:"endpoints" json:"endpoints"`
	Password     string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int      `yaml:"db" json:"db"`
	PoolSize     int      `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int      `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// InternalDynamoDBConfig contains DynamoDB-specific configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// InternalCacheConfig controls the read-through result cache.
type InternalCacheConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	Namespace         string        `yaml:"namespace" json:"namespace"`
	TTL               time.Duration `yaml:"ttl" json:"ttl"`
	CompressThreshold int           `yaml:"compress_threshold" json:"compress_threshold"` // bytes; 0 disables compression
}

// InternalTableConfig contains table-specific configuration overrides.
type InternalTableConfig struct {
	AutoCreate bool   `yaml:"auto_create" json:"auto_create"`
	Cache      *bool  `yaml:"cache,omitempty" json:"cache,omitempty"` // nil inherits cache.enabled
	Namespace  string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// CacheEnabled reports whether reads of the table go through the result cache.
func (t InternalTableConfig) CacheEnabled() bool {
	return t.Cache != nil && *t.Cache
}

// InternalWriteBackConfig contains asynchronous insert configuration.
type InternalWriteBackConfig struct {
	Enabled          bool                `yaml:"enabled" json:"enabled"`
	QueueType        string              `yaml:"queue_type" json:"queue_type"`
	BatchSize        int                 `yaml:"batch_size" json:"batch_size"`
	DrainRate        int                 `yaml:"drain_rate" json:"drain_rate"` // operations per second
	Workers          int                 `yaml:"workers" json:"workers"`
	MaxRetries       int                 `yaml:"max_retries" json:"max_retries"`
	RetryBackoffBase time.Duration       `yaml:"retry_backoff_base" json:"retry_backoff_base"`
	RetryBackoffMax  time.Duration       `yaml:"retry_backoff_max" json:"retry_backoff_max"`
	PollInterval     time.Duration       `yaml:"poll_interval" json:"poll_interval"`
	QueueBufferSize  int                 `yaml:"queue_buffer_size" json:"queue_buffer_size"`
	RedisQueueKey    string              `yaml:"redis_queue_key" json:"redis_queue_key"`
	KafkaConfig      InternalKafkaConfig `yaml:"kafka_config" json:"kafka_config"`
}

// InternalKafkaConfig contains Kafka-specific configuration.
type InternalKafkaConfig struct {
	Brokers         []string      `yaml:"brokers" json:"brokers"`
	Topic           string        `yaml:"topic" json:"topic"`
	GroupID         string        `yaml:"group_id" json:"group_id"`
	BatchSize       int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout    time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	RequiredAcks    int           `yaml:"required_acks" json:"required_acks"`
	MaxMessageBytes int           `yaml:"max_message_bytes" json:"max_message_bytes"`
	MinBytes        int           `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes        int           `yaml:"max_bytes" json:"max_bytes"`
	MaxWait         time.Duration `yaml:"max_wait" json:"max_wait"`
}

// InternalLogConfig configures the zap logger.
type InternalLogConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Development bool     `yaml:"development" json:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`
}
