package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	kind string
	err  error
}

func (v stubValidator) Type() string                   { return v.kind }
func (v stubValidator) Validate(*InternalConfig) error { return v.err }

func init() {
	RegisterValidator(stubValidator{kind: "stub"})
}

func TestDefaultsAreValid(t *testing.T) {
	cm := NewConfigManager()
	assert.NoError(t, cm.validateConfig(cm.GetConfig()))
	assert.Equal(t, "memory", cm.GetConfig().Database.Type)
	assert.False(t, cm.GetConfig().NeedsKVStore())
}

func TestLoadFromYAML(t *testing.T) {
	cm := NewConfigManager()
	err := cm.LoadFromYAML([]byte(`
database:
  type: postgres
  host: db
  port: 5433
  database: orm
  username: app
  max_conns: 4
kvstore:
  type: stub
cache:
  enabled: true
  ttl: 90s
tables:
  person:
    auto_create: true
  audit:
    cache: false
log:
  level: debug
`))
	require.NoError(t, err)

	cfg := cm.GetConfig()
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "tabular", cfg.Cache.Namespace)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectionTimeout)

	person := cm.GetTableConfig("person")
	assert.True(t, person.AutoCreate)
	assert.True(t, person.CacheEnabled())
	assert.Equal(t, "tabular", person.Namespace)

	assert.False(t, cm.GetTableConfig("audit").CacheEnabled())
	assert.True(t, cm.GetTableConfig("unknown").CacheEnabled())
}

func TestLoadFromJSON(t *testing.T) {
	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromJSON([]byte(`{"writeback":{"enabled":true,"workers":3},"log":{"level":"warn"}}`)))
	assert.Equal(t, 3, cm.GetConfig().WriteBack.Workers)
	assert.True(t, cm.GetConfig().WriteBack.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabular.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromFile(path))
	assert.Equal(t, "error", cm.GetConfig().Log.Level)

	assert.Error(t, cm.LoadFromFile(filepath.Join(dir, "tabular.toml")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TABULAR_DATABASE_TYPE", "postgres")
	t.Setenv("TABULAR_DATABASE_DATABASE", "orm")
	t.Setenv("TABULAR_DATABASE_USERNAME", "app")
	t.Setenv("TABULAR_DATABASE_PORT", "6543")
	t.Setenv("TABULAR_WRITEBACK_ENABLED", "true")
	t.Setenv("TABULAR_WRITEBACK_QUEUE_TYPE", "kafka")
	t.Setenv("TABULAR_WRITEBACK_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("TABULAR_WRITEBACK_RETRY_BACKOFF_MAX", "1m")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromEnv())
	cfg := cm.GetConfig()
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.WriteBack.KafkaConfig.Brokers)
	assert.Equal(t, time.Minute, cfg.WriteBack.RetryBackoffMax)
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("TABULAR_DATABASE_PORT", "five")
	assert.Error(t, NewConfigManager().LoadFromEnv())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown database", "database:\n  type: mysql\n"},
		{"postgres without user", "database:\n  type: postgres\n  database: orm\n"},
		{"unknown kvstore", "cache:\n  enabled: true\nkvstore:\n  type: cassandra\n"},
		{"redis queue without redis", "writeback:\n  enabled: true\n  queue_type: redis\nkvstore:\n  type: stub\n"},
		{"unknown queue", "writeback:\n  enabled: true\n  queue_type: sqs\n"},
		{"zero workers", "writeback:\n  enabled: true\n  workers: 0\n"},
		{"bad table name", "tables:\n  \"bad-name\":\n    auto_create: true\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewConfigManager()
			assert.Error(t, cm.LoadFromYAML([]byte(tt.yaml)))
			assert.Equal(t, "memory", cm.GetConfig().Database.Type, "failed load must not replace config")
		})
	}
}

func TestValidatorRegistryRejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() { RegisterValidator(stubValidator{kind: "stub"}) })
	assert.Panics(t, func() { RegisterValidator(stubValidator{}) })

	v, ok := GetValidator("stub")
	require.True(t, ok)
	assert.Equal(t, "stub", v.Type())
}
