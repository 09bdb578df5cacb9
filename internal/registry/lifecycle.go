package registry

import (
	"context"
	"sync"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// LifecycleHook defines a hook that runs when a model is registered or
// unregistered. Hooks are called synchronously.
type LifecycleHook interface {
	// OnRegister is called before a model is added to the registry.
	// If this hook returns an error, the registration fails.
	OnRegister(ctx context.Context, table core.Table, config InternalTableConfig) error

	// OnUnregister is called before a model is removed from the registry.
	// If this hook returns an error, the model stays registered.
	OnUnregister(ctx context.Context, table core.Table, config InternalTableConfig) error
}

// LifecycleHookFunc adapts plain functions to LifecycleHook. Register it by
// pointer so it can later be passed to UnregisterHook.
type LifecycleHookFunc struct {
	OnRegisterFunc   func(ctx context.Context, table core.Table, config InternalTableConfig) error
	OnUnregisterFunc func(ctx context.Context, table core.Table, config InternalTableConfig) error
}

// OnRegister calls OnRegisterFunc if it's not nil.
func (f *LifecycleHookFunc) OnRegister(ctx context.Context, table core.Table, config InternalTableConfig) error {
	if f.OnRegisterFunc != nil {
		return f.OnRegisterFunc(ctx, table, config)
	}
	return nil
}

// OnUnregister calls OnUnregisterFunc if it's not nil.
func (f *LifecycleHookFunc) OnUnregister(ctx context.Context, table core.Table, config InternalTableConfig) error {
	if f.OnUnregisterFunc != nil {
		return f.OnUnregisterFunc(ctx, table, config)
	}
	return nil
}

// AutoCreateHook creates the table of every model registered with
// auto_create set.
func AutoCreateHook() LifecycleHook {
	return &LifecycleHookFunc{
		OnRegisterFunc: func(ctx context.Context, table core.Table, config InternalTableConfig) error {
			if !config.AutoCreate {
				return nil
			}
			return table.CreateIfNotExists(ctx)
		},
	}
}

// LifecycleManager manages lifecycle hooks for models.
type LifecycleManager struct {
	mu    sync.RWMutex
	hooks []LifecycleHook
}

// NewLifecycleManager creates a new lifecycle manager.
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		hooks: make([]LifecycleHook, 0),
	}
}

// RegisterHook registers a hook. Hooks are executed in registration order.
func (lm *LifecycleManager) RegisterHook(hook LifecycleHook) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = append(lm.hooks, hook)
}

// UnregisterHook removes a hook from the manager.
func (lm *LifecycleManager) UnregisterHook(hook LifecycleHook) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for i, h := range lm.hooks {
		if h == hook {
			lm.hooks = append(lm.hooks[:i], lm.hooks[i+1:]...)
			return
		}
	}
}

func (lm *LifecycleManager) snapshot() []LifecycleHook {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	hooks := make([]LifecycleHook, len(lm.hooks))
	copy(hooks, lm.hooks)
	return hooks
}

// ExecuteRegisterHooks executes all register hooks in order, stopping at the
// first error.
func (lm *LifecycleManager) ExecuteRegisterHooks(ctx context.Context, table core.Table, config InternalTableConfig) error {
	for _, hook := range lm.snapshot() {
		if err := hook.OnRegister(ctx, table, config); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteUnregisterHooks executes all unregister hooks in order, stopping at
// the first error.
func (lm *LifecycleManager) ExecuteUnregisterHooks(ctx context.Context, table core.Table, config InternalTableConfig) error {
	for _, hook := range lm.snapshot() {
		if err := hook.OnUnregister(ctx, table, config); err != nil {
			return err
		}
	}
	return nil
}

// ClearHooks removes all registered hooks.
func (lm *LifecycleManager) ClearHooks() {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = make([]LifecycleHook, 0)
}

// HookCount returns the number of registered hooks.
func (lm *LifecycleManager) HookCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.hooks)
}
