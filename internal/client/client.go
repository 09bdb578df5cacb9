// Package client wires configuration, connections, caching and write-back
// into one handle that builds models.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/cache"
	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/kvstore"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/model"
	"github.com/rzpsarthak13/tabular/internal/registry"
	"github.com/rzpsarthak13/tabular/internal/schema"
	"github.com/rzpsarthak13/tabular/internal/writeback"
)

// ConfigProvider is an interface to provide configuration as YAML without importing the public package.
type ConfigProvider interface {
	GetYAML() ([]byte, error)
}

// drainTarget is the model the drainer inserts through. It is separate from
// the caller's model so queued inserts never race the caller's builder.
type drainTarget struct {
	mu     sync.Mutex
	writer *model.Model
}

// ClientImpl is the default client implementation.
type ClientImpl struct {
	mu        sync.RWMutex
	configMgr *registry.ConfigManager
	logger    *zap.Logger
	database  core.Database
	kvStore   core.KVStore
	queue     core.WriteBackQueue
	drainer   *writeback.Drainer
	registry  *registry.ModelRegistry
	caches    map[string]*cache.ResultCache // by namespace
	targets   map[string]*drainTarget
	closed    bool
}

// NewClientImpl loads the configuration from the provider and opens every
// configured connection.
func NewClientImpl(ctx context.Context, configProvider ConfigProvider) (*ClientImpl, error) {
	if configProvider == nil {
		return nil, fmt.Errorf("config provider cannot be nil")
	}

	configMgr := registry.NewConfigManager()
	yamlData, err := configProvider.GetYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to get config YAML: %w", err)
	}
	if err := configMgr.LoadFromYAML(yamlData); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewFromConfigManager(ctx, configMgr)
}

// NewFromConfigManager builds a client from an already loaded configuration.
func NewFromConfigManager(ctx context.Context, configMgr *registry.ConfigManager) (*ClientImpl, error) {
	config := configMgr.GetConfig()

	if err := logging.Init(logging.Config{
		Level:       config.Log.Level,
		Development: config.Log.Development,
		Encoding:    config.Log.Encoding,
		OutputPaths: config.Log.OutputPaths,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	lifecycle := registry.NewLifecycleManager()
	lifecycle.RegisterHook(registry.AutoCreateHook())

	c := &ClientImpl{
		configMgr: configMgr,
		logger:    logging.Named("client"),
		registry:  registry.NewModelRegistry(configMgr, lifecycle),
		caches:    make(map[string]*cache.ResultCache),
		targets:   make(map[string]*drainTarget),
	}

	if err := c.initializeConnections(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize connections: %w", err), c.closeConnections())
	}
	c.logger.Debug("client initialized",
		zap.String("database", config.Database.Type),
		zap.Int("lifecycle_hooks", lifecycle.HookCount()))
	return c, nil
}

func (c *ClientImpl) initializeConnections(ctx context.Context) error {
	config := c.configMgr.GetConfig()

	switch config.Database.Type {
	case "postgres", "postgresql":
		db, err := database.NewPostgresDatabase(ctx, database.PostgresOptions{
			Host:              config.Database.Host,
			Port:              config.Database.Port,
			Database:          config.Database.Database,
			Username:          config.Database.Username,
			Password:          config.Database.Password,
			SSLMode:           config.Database.SSLMode,
			MaxConns:          config.Database.MaxConns,
			MinConns:          config.Database.MinConns,
			ConnMaxLifetime:   config.Database.ConnMaxLifetime,
			ConnMaxIdleTime:   config.Database.ConnMaxIdleTime,
			ConnectionTimeout: config.Database.ConnectionTimeout,
			Logger:            logging.Named("postgres"),
		})
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		c.database = db
	case "memory":
		c.database = database.NewMemoryDatabase(logging.Named("memorydb"))
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.NeedsKVStore() {
		kv, err := kvstore.Create(ctx, kvstore.ConfigFromInternal(config.KVStore, logging.Named(config.KVStore.Type)))
		if err != nil {
			return fmt.Errorf("failed to create KV store: %w", err)
		}
		c.kvStore = kv
	}

	if config.WriteBack.Enabled {
		queue, err := writeback.NewQueue(config.WriteBack, c.kvStore, logging.Named(config.WriteBack.QueueType))
		if err != nil {
			return fmt.Errorf("failed to create write-back queue: %w", err)
		}
		c.queue = queue
		c.drainer = writeback.NewDrainer(queue, c, writeback.DrainerConfigFrom(config.WriteBack), logging.Named("drainer"))
	}

	c.logger.Info("client initialized",
		zap.String("database", config.Database.Type),
		zap.Bool("kvstore", c.kvStore != nil),
		zap.Bool("writeback", c.queue != nil),
	)
	return nil
}

// cacheFor returns the shared result cache for a namespace. Must be called with c.mu held.
func (c *ClientImpl) cacheFor(namespace string) *cache.ResultCache {
	if rc, ok := c.caches[namespace]; ok {
		return rc
	}
	cfg := c.configMgr.GetConfig().Cache
	rc := cache.New(c.kvStore, cache.Options{
		Namespace:         namespace,
		TTL:               cfg.TTL,
		CompressThreshold: cfg.CompressThreshold,
		Logger:            logging.Named("cache"),
	})
	c.caches[namespace] = rc
	return rc
}

// NewModel builds a model bound to the client's connections and registers it.
// Tables configured with auto_create are created if missing.
func (c *ClientImpl) NewModel(ctx context.Context, table string, attrs ...schema.Attribute) (*model.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: client is closed", core.ErrInvalidState)
	}

	opts := []model.Option{model.WithLogger(logging.Get())}
	if tc := c.configMgr.GetTableConfig(table); tc.CacheEnabled() && c.kvStore != nil {
		opts = append(opts, model.WithCache(c.cacheFor(tc.Namespace)))
	}
	writerOpts := append([]model.Option(nil), opts...)
	if c.queue != nil {
		opts = append(opts, model.WithQueue(c.queue))
	}

	m, err := model.New(table, c.database, attrs, opts...)
	if err != nil {
		return nil, err
	}
	writer, err := model.New(table, c.database, attrs, writerOpts...)
	if err != nil {
		return nil, err
	}

	if err := c.registry.Register(ctx, m); err != nil {
		return nil, err
	}
	c.targets[table] = &drainTarget{writer: writer}

	c.logger.Info("model registered", zap.String("table", table), zap.Int("attributes", len(attrs)))
	return m, nil
}

// Model returns the registered model for table.
func (c *ClientImpl) Model(table string) (*model.Model, error) {
	t, err := c.registry.Get(table)
	if err != nil {
		return nil, err
	}
	m, ok := t.(*model.Model)
	if !ok {
		return nil, fmt.Errorf("table %q is registered with %T", table, t)
	}
	return m, nil
}

// Tables returns the registered table names in sorted order.
func (c *ClientImpl) Tables() []string {
	return c.registry.List()
}

// ExecuteWriteOperation inserts a drained operation through the table's writer model.
func (c *ClientImpl) ExecuteWriteOperation(ctx context.Context, operation *core.WriteOperation) error {
	c.mu.RLock()
	target, ok := c.targets[operation.Table]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no model registered for table %q", core.ErrInvalidState, operation.Table)
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	return target.writer.Insert(ctx, operation.Rows)
}

// Start starts draining the write-back queue. It is a no-op without write-back.
func (c *ClientImpl) Start(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("%w: client is closed", core.ErrInvalidState)
	}
	if c.drainer == nil {
		return nil
	}
	return c.drainer.Start(ctx)
}

// Stop stops the drainer and waits for in-flight operations.
func (c *ClientImpl) Stop() error {
	if c.drainer == nil {
		return nil
	}
	return c.drainer.Stop()
}

// IsRunning reports whether the drainer is running.
func (c *ClientImpl) IsRunning() bool {
	return c.drainer != nil && c.drainer.IsRunning()
}

// QueueSize returns the number of queued inserts, or 0 without write-back.
func (c *ClientImpl) QueueSize() int {
	if c.queue == nil {
		return 0
	}
	return c.queue.Size()
}

// Database returns the database connection.
func (c *ClientImpl) Database() core.Database {
	return c.database
}

// KVStore returns the KV store, or nil when nothing needs one.
func (c *ClientImpl) KVStore() core.KVStore {
	return c.kvStore
}

// Close stops the drainer, clears the registry and closes every connection.
func (c *ClientImpl) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if err := c.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop drainer: %w", err))
	}
	if err := c.registry.Clear(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("clear registry: %w", err))
	}
	c.registry.GetLifecycleManager().ClearHooks()
	errs = append(errs, c.closeConnections())

	c.logger.Info("client closed")
	_ = logging.Sync()
	return errors.Join(errs...)
}

func (c *ClientImpl) closeConnections() error {
	var errs []error
	if c.queue != nil {
		if err := c.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue: %w", err))
		}
	}
	if c.kvStore != nil {
		if err := c.kvStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kvstore: %w", err))
		}
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
