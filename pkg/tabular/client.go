// Package tabular maps caller-owned column storage onto PostgreSQL tables.
//
// Typical usage:
//
//	client, _ := tabular.NewClient(tabular.DefaultConfig())
//	defer client.Close()
//
//	var names tabular.StringColumn
//	var ages tabular.IntColumn
//	people, _ := client.NewModel(ctx, "people",
//		tabular.Attr("name", tabular.String, &names),
//		tabular.Attr("age", tabular.Integer, &ages),
//	)
//	people.Create(ctx)
//	people.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}})
//	people.BuildQuery().Select().WhereGreaterEq("age", 30).Run(ctx)
package tabular

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/tabular/internal/client"
)

// Client owns the connections shared by its models.
type Client interface {
	// NewModel builds a model bound to the client's database, cache and
	// write-back queue, and registers it. Tables configured with
	// auto_create are created if missing.
	NewModel(ctx context.Context, table string, attrs ...Attribute) (*Model, error)

	// Model returns a model previously built with NewModel.
	Model(table string) (*Model, error)

	// Tables lists the registered tables.
	Tables() []string

	// Start starts draining queued inserts. It is a no-op without write-back.
	Start(ctx context.Context) error

	// Stop stops the drainer and waits for in-flight writes.
	Stop() error

	// IsRunning returns whether the drainer is running.
	IsRunning() bool

	// QueueSize returns the number of queued inserts.
	QueueSize() int

	// Database returns the underlying connection.
	Database() Database

	// Close stops the drainer and closes every connection.
	Close() error
}

// configProvider implements client.ConfigProvider to provide config as YAML without import cycles.
type configProvider struct {
	config *Config
}

func (cp *configProvider) GetYAML() ([]byte, error) {
	return yaml.Marshal(cp.config)
}

// NewClient creates a client with the provided configuration, connecting to
// every configured backend.
func NewClient(config *Config) (Client, error) {
	return NewClientContext(context.Background(), config)
}

// NewClientContext is NewClient with a context bounding connection setup.
func NewClientContext(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	impl, err := client.NewClientImpl(ctx, &configProvider{config: config})
	if err != nil {
		return nil, err
	}
	return &clientWrapper{ClientImpl: impl}, nil
}

// clientWrapper narrows the internal client to the public interface.
type clientWrapper struct {
	*client.ClientImpl
}
