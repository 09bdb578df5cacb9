package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/tabular/internal/schema"
)

// EnvPrefix prefixes every environment variable LoadFromEnv reads.
const EnvPrefix = "TABULAR_"

// ConfigValidator is the Strategy interface for validating configuration.
// Each KV backend (Redis, DynamoDB, memory) provides its own validator for
// its section of the configuration.
type ConfigValidator interface {
	// Validate validates the KV store section of the internal configuration.
	Validate(config *InternalConfig) error

	// Type returns the type identifier for this validator (e.g., "redis", "dynamodb").
	Type() string
}

var (
	// validatorRegistry stores all registered config validators.
	validatorRegistry = make(map[string]ConfigValidator)

	// validatorRegistryMutex protects the validator registry from concurrent access.
	validatorRegistryMutex sync.RWMutex
)

// ValidationStrategyRegistry provides methods to register and retrieve config validators.
type ValidationStrategyRegistry struct{}

// Register registers a config validator.
// Panics if validator is nil, type is empty, or type is already registered.
func (r *ValidationStrategyRegistry) Register(validator ConfigValidator) {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("validator type cannot be empty")
	}

	validatorRegistryMutex.Lock()
	defer validatorRegistryMutex.Unlock()

	if _, exists := validatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("validator for type %q is already registered", validator.Type()))
	}

	validatorRegistry[validator.Type()] = validator
}

// Get retrieves a validator by type.
func (r *ValidationStrategyRegistry) Get(validatorType string) (ConfigValidator, bool) {
	validatorRegistryMutex.RLock()
	defer validatorRegistryMutex.RUnlock()

	validator, exists := validatorRegistry[validatorType]
	return validator, exists
}

// RegisterValidator registers a validator with the default registry.
// This is the preferred way to register validators from init() functions.
func RegisterValidator(validator ConfigValidator) {
	defaultValidationRegistry.Register(validator)
}

// GetValidator retrieves a validator by type from the default registry.
func GetValidator(validatorType string) (ConfigValidator, bool) {
	return defaultValidationRegistry.Get(validatorType)
}

var defaultValidationRegistry = &ValidationStrategyRegistry{}

// ConfigManager handles loading and managing configuration from various sources.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager creates a new configuration manager with default configuration.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: DefaultInternalConfig(),
	}
}

// DefaultInternalConfig returns a configuration with sensible defaults: an
// in-process database, no cache and no write-back.
func DefaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		Database: InternalDatabaseConfig{
			Type:              "memory",
			Host:              "localhost",
			Port:              5432,
			SSLMode:           "disable",
			MaxConns:          10,
			MinConns:          0,
			ConnMaxLifetime:   time.Hour,
			ConnMaxIdleTime:   30 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		KVStore: InternalKVStoreConfig{
			Type: "memory",
			RedisConfig: InternalRedisConfig{
				Endpoints:    []string{"localhost:6379"},
				DB:           0,
				PoolSize:     10,
				MinIdleConns: 2,
			},
			DynamoDBConfig: InternalDynamoDBConfig{
				Region:    "us-east-1",
				TableName: "tabular-cache",
			},
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: InternalCacheConfig{
			Enabled:           false,
			Namespace:         "tabular",
			TTL:               5 * time.Minute,
			CompressThreshold: 4096,
		},
		WriteBack: InternalWriteBackConfig{
			Enabled:          false,
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
			KafkaConfig: InternalKafkaConfig{
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
		Tables: make(map[string]InternalTableConfig),
		Log: InternalLogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
// The file format is determined by the file extension (.yaml, .yml, or .json).
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data layered over the defaults.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return cm.apply(config)
}

// LoadFromJSON loads configuration from JSON data layered over the defaults.
// Durations are given in nanoseconds.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	return cm.apply(config)
}

// LoadFromEnv loads configuration from environment variables layered over the
// defaults. Variables follow the pattern TABULAR_<SECTION>_<KEY>, for example:
//   - TABULAR_DATABASE_TYPE=postgres
//   - TABULAR_DATABASE_HOST=localhost
//   - TABULAR_KVSTORE_TYPE=redis
//   - TABULAR_KVSTORE_ENDPOINTS=localhost:6379,localhost:6380
//   - TABULAR_CACHE_ENABLED=true
//   - TABULAR_WRITEBACK_QUEUE_TYPE=kafka
//   - TABULAR_LOG_LEVEL=debug
func (cm *ConfigManager) LoadFromEnv() error {
	config := DefaultInternalConfig()
	if err := applyEnv(config); err != nil {
		return err
	}
	return cm.apply(config)
}

func (cm *ConfigManager) apply(config *InternalConfig) error {
	if config.Tables == nil {
		config.Tables = make(map[string]InternalTableConfig)
	}
	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = config
	return nil
}

type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + key)
	return val, ok && val != ""
}

func (e *envReader) str(key string, dst *string) {
	if val, ok := e.lookup(key); ok {
		*dst = val
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if val, ok := e.lookup(key); ok {
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func (e *envReader) integer(key string, dst *int) {
	if val, ok := e.lookup(key); ok && e.err == nil {
		n, err := strconv.Atoi(val)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if val, ok := e.lookup(key); ok && e.err == nil {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if val, ok := e.lookup(key); ok && e.err == nil {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = d
	}
}

func applyEnv(c *InternalConfig) error {
	e := &envReader{}

	e.str("DATABASE_TYPE", &c.Database.Type)
	e.str("DATABASE_HOST", &c.Database.Host)
	e.integer("DATABASE_PORT", &c.Database.Port)
	e.str("DATABASE_DATABASE", &c.Database.Database)
	e.str("DATABASE_USERNAME", &c.Database.Username)
	e.str("DATABASE_PASSWORD", &c.Database.Password)
	e.str("DATABASE_SSL_MODE", &c.Database.SSLMode)
	e.integer("DATABASE_MAX_CONNS", &c.Database.MaxConns)
	e.integer("DATABASE_MIN_CONNS", &c.Database.MinConns)
	e.duration("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime)
	e.duration("DATABASE_CONN_MAX_IDLE_TIME", &c.Database.ConnMaxIdleTime)
	e.duration("DATABASE_CONNECTION_TIMEOUT", &c.Database.ConnectionTimeout)

	e.str("KVSTORE_TYPE", &c.KVStore.Type)
	e.list("KVSTORE_ENDPOINTS", &c.KVStore.RedisConfig.Endpoints)
	e.str("KVSTORE_PASSWORD", &c.KVStore.RedisConfig.Password)
	e.integer("KVSTORE_DB", &c.KVStore.RedisConfig.DB)
	e.integer("KVSTORE_POOL_SIZE", &c.KVStore.RedisConfig.PoolSize)
	e.integer("KVSTORE_MIN_IDLE_CONNS", &c.KVStore.RedisConfig.MinIdleConns)
	e.str("KVSTORE_DYNAMODB_REGION", &c.KVStore.DynamoDBConfig.Region)
	e.str("KVSTORE_DYNAMODB_TABLE_NAME", &c.KVStore.DynamoDBConfig.TableName)
	e.str("KVSTORE_DYNAMODB_ENDPOINT", &c.KVStore.DynamoDBConfig.Endpoint)
	e.integer("KVSTORE_MAX_RETRIES", &c.KVStore.MaxRetries)
	e.duration("KVSTORE_DIAL_TIMEOUT", &c.KVStore.DialTimeout)
	e.duration("KVSTORE_READ_TIMEOUT", &c.KVStore.ReadTimeout)
	e.duration("KVSTORE_WRITE_TIMEOUT", &c.KVStore.WriteTimeout)

	e.boolean("CACHE_ENABLED", &c.Cache.Enabled)
	e.str("CACHE_NAMESPACE", &c.Cache.Namespace)
	e.duration("CACHE_TTL", &c.Cache.TTL)
	e.integer("CACHE_COMPRESS_THRESHOLD", &c.Cache.CompressThreshold)

	e.boolean("WRITEBACK_ENABLED", &c.WriteBack.Enabled)
	e.str("WRITEBACK_QUEUE_TYPE", &c.WriteBack.QueueType)
	e.integer("WRITEBACK_BATCH_SIZE", &c.WriteBack.BatchSize)
	e.integer("WRITEBACK_DRAIN_RATE", &c.WriteBack.DrainRate)
	e.integer("WRITEBACK_WORKERS", &c.WriteBack.Workers)
	e.integer("WRITEBACK_MAX_RETRIES", &c.WriteBack.MaxRetries)
	e.duration("WRITEBACK_RETRY_BACKOFF_BASE", &c.WriteBack.RetryBackoffBase)
	e.duration("WRITEBACK_RETRY_BACKOFF_MAX", &c.WriteBack.RetryBackoffMax)
	e.integer("WRITEBACK_QUEUE_BUFFER_SIZE", &c.WriteBack.QueueBufferSize)
	e.list("WRITEBACK_KAFKA_BROKERS", &c.WriteBack.KafkaConfig.Brokers)
	e.str("WRITEBACK_KAFKA_TOPIC", &c.WriteBack.KafkaConfig.Topic)
	e.str("WRITEBACK_KAFKA_GROUP_ID", &c.WriteBack.KafkaConfig.GroupID)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.boolean("LOG_DEVELOPMENT", &c.Log.Development)
	e.str("LOG_ENCODING", &c.Log.Encoding)
	e.list("LOG_OUTPUT_PATHS", &c.Log.OutputPaths)

	return e.err
}

// GetConfig returns the current internal configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// GetTableConfig returns the configuration for a specific table merged with
// the global cache settings.
func (cm *ConfigManager) GetTableConfig(tableName string) InternalTableConfig {
	tableConfig := cm.config.Tables[tableName]
	if tableConfig.Cache == nil {
		enabled := cm.config.Cache.Enabled
		tableConfig.Cache = &enabled
	}
	if tableConfig.Namespace == "" {
		tableConfig.Namespace = cm.config.Cache.Namespace
	}
	return tableConfig
}

// NeedsKVStore reports whether any configured component talks to the KV store.
func (c *InternalConfig) NeedsKVStore() bool {
	if c.Cache.Enabled {
		return true
	}
	for _, t := range c.Tables {
		if t.CacheEnabled() {
			return true
		}
	}
	return c.WriteBack.Enabled && c.WriteBack.QueueType == "redis"
}

// validateConfig validates the configuration and returns an error if invalid.
// KV store validation is dispatched to the validator registered for the type.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	if err := validateDatabase(config.Database); err != nil {
		return err
	}

	if config.NeedsKVStore() {
		if config.KVStore.Type == "" {
			return fmt.Errorf("kvstore.type is required")
		}
		validator, exists := GetValidator(config.KVStore.Type)
		if !exists {
			return fmt.Errorf("unsupported KV store type: %s", config.KVStore.Type)
		}
		if err := validator.Validate(config); err != nil {
			return fmt.Errorf("kvstore validation failed: %w", err)
		}
	}

	if config.NeedsKVStore() {
		if config.Cache.Namespace == "" {
			return fmt.Errorf("cache.namespace is required")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be greater than 0")
		}
		if config.Cache.CompressThreshold < 0 {
			return fmt.Errorf("cache.compress_threshold must be non-negative")
		}
	}

	if config.WriteBack.Enabled {
		if err := validateWriteBack(config); err != nil {
			return err
		}
	}

	for name := range config.Tables {
		if err := schema.ValidateIdentifier(name); err != nil {
			return fmt.Errorf("tables: %w", err)
		}
	}

	if _, err := zapcore.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if config.Log.Encoding != "" && config.Log.Encoding != "json" && config.Log.Encoding != "console" {
		return fmt.Errorf("log.encoding must be 'json' or 'console'")
	}

	return nil
}

func validateDatabase(db InternalDatabaseConfig) error {
	switch db.Type {
	case "":
		return fmt.Errorf("database.type is required")
	case "memory":
		return nil
	case "postgres", "postgresql":
	default:
		return fmt.Errorf("database.type must be 'postgres' or 'memory'")
	}
	if db.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if db.Port <= 0 || db.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if db.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if db.Username == "" {
		return fmt.Errorf("database.username is required")
	}
	if db.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be greater than 0")
	}
	if db.MinConns < 0 || db.MinConns > db.MaxConns {
		return fmt.Errorf("database.min_conns must be between 0 and max_conns")
	}
	return nil
}

func validateWriteBack(config *InternalConfig) error {
	wb := config.WriteBack
	if wb.BatchSize <= 0 {
		return fmt.Errorf("writeback.batch_size must be greater than 0")
	}
	if wb.DrainRate <= 0 {
		return fmt.Errorf("writeback.drain_rate must be greater than 0")
	}
	if wb.Workers <= 0 {
		return fmt.Errorf("writeback.workers must be greater than 0")
	}
	if wb.MaxRetries < 0 {
		return fmt.Errorf("writeback.max_retries must be non-negative")
	}
	if wb.RetryBackoffBase <= 0 || wb.RetryBackoffMax < wb.RetryBackoffBase {
		return fmt.Errorf("writeback.retry_backoff_max must be >= retry_backoff_base > 0")
	}
	switch wb.QueueType {
	case "memory":
		if wb.QueueBufferSize <= 0 {
			return fmt.Errorf("writeback.queue_buffer_size must be greater than 0")
		}
	case "redis":
		if config.KVStore.Type != "redis" {
			return fmt.Errorf("writeback.queue_type 'redis' requires kvstore.type 'redis'")
		}
		if wb.RedisQueueKey == "" {
			return fmt.Errorf("writeback.redis_queue_key is required when queue_type is 'redis'")
		}
	case "kafka":
		if len(wb.KafkaConfig.Brokers) == 0 {
			return fmt.Errorf("kafka_config.brokers is required when queue_type is 'kafka'")
		}
		if wb.KafkaConfig.Topic == "" {
			return fmt.Errorf("kafka_config.topic is required when queue_type is 'kafka'")
		}
	default:
		return fmt.Errorf("writeback.queue_type must be 'memory', 'redis', or 'kafka'")
	}
	return nil
}
