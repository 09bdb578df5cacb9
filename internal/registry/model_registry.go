package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// ModelMetadata contains metadata about a registered model.
type ModelMetadata struct {
	// TableName is the name of the table.
	TableName string

	// Table is the model instance.
	Table core.Table

	// Config contains the table-specific configuration.
	Config InternalTableConfig

	// CreatedAt is the timestamp when the model was registered.
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the metadata was last updated.
	UpdatedAt time.Time
}

// ModelRegistry tracks the models a client has built, keyed by table name.
// It is safe for concurrent use.
type ModelRegistry struct {
	mu        sync.RWMutex
	models    map[string]*ModelMetadata
	configMgr *ConfigManager
	lifecycle *LifecycleManager
}

// NewModelRegistry creates a registry bound to a configuration manager and lifecycle manager.
func NewModelRegistry(configMgr *ConfigManager, lifecycle *LifecycleManager) *ModelRegistry {
	if configMgr == nil {
		configMgr = NewConfigManager()
	}
	if lifecycle == nil {
		lifecycle = NewLifecycleManager()
	}
	return &ModelRegistry{
		models:    make(map[string]*ModelMetadata),
		configMgr: configMgr,
		lifecycle: lifecycle,
	}
}

// Register runs the register hooks and stores the model. Registering a
// table again replaces the previous model and keeps its creation time.
func (r *ModelRegistry) Register(ctx context.Context, table core.Table) error {
	if table == nil {
		return fmt.Errorf("table cannot be nil")
	}
	name := table.Tablename()
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	config := r.configMgr.GetTableConfig(name)
	if err := r.lifecycle.ExecuteRegisterHooks(ctx, table, config); err != nil {
		return fmt.Errorf("register hook failed for table %q: %w", name, err)
	}

	now := time.Now()
	metadata := &ModelMetadata{
		TableName: name,
		Table:     table,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, exists := r.models[name]; exists {
		metadata.CreatedAt = existing.CreatedAt
	}
	r.models[name] = metadata
	return nil
}

// Get retrieves a model by table name.
func (r *ModelRegistry) Get(tableName string) (core.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, exists := r.models[tableName]
	if !exists {
		return nil, fmt.Errorf("table %q is not registered", tableName)
	}
	return metadata.Table, nil
}

// GetMetadata returns a copy of a model's metadata.
func (r *ModelRegistry) GetMetadata(tableName string) (*ModelMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, exists := r.models[tableName]
	if !exists {
		return nil, fmt.Errorf("table %q is not registered", tableName)
	}
	copied := *metadata
	return &copied, nil
}

// Unregister runs the unregister hooks and removes the model.
func (r *ModelRegistry) Unregister(ctx context.Context, tableName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metadata, exists := r.models[tableName]
	if !exists {
		return fmt.Errorf("table %q is not registered", tableName)
	}
	if err := r.lifecycle.ExecuteUnregisterHooks(ctx, metadata.Table, metadata.Config); err != nil {
		return fmt.Errorf("unregister hook failed for table %q: %w", tableName, err)
	}
	delete(r.models, tableName)
	return nil
}

// List returns the registered table names in sorted order.
func (r *ModelRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefreshConfig re-reads every model's table configuration.
func (r *ModelRegistry) RefreshConfig() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, metadata := range r.models {
		metadata.Config = r.configMgr.GetTableConfig(metadata.TableName)
		metadata.UpdatedAt = now
	}
}

// GetLifecycleManager returns the lifecycle manager associated with this registry.
func (r *ModelRegistry) GetLifecycleManager() *LifecycleManager {
	return r.lifecycle
}

// Count returns the number of registered models.
func (r *ModelRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Clear runs the unregister hooks of every model and empties the registry.
// Models whose hooks fail stay registered.
func (r *ModelRegistry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, metadata := range r.models {
		if err := r.lifecycle.ExecuteUnregisterHooks(ctx, metadata.Table, metadata.Config); err != nil {
			return fmt.Errorf("unregister hook failed during clear for table %q: %w", name, err)
		}
		delete(r.models, name)
	}
	return nil
}
