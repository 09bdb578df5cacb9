package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/model"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tabular v"+version)
}

func TestStatement(t *testing.T) {
	out, err := run(t, "--table", "people", "--schema", "name:string,age:integer",
		"statement", "--where", "age >= 30", "--where", "name = 'Bob'")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name,age FROM people WHERE age >= 30 AND name = 'Bob';\n", out)

	out, err = run(t, "--table", "people", "--schema", "name:string,age:integer",
		"statement", "--columns", "age", "--where", "age < 5", "--where", "age > 60", "--any")
	require.NoError(t, err)
	assert.Equal(t, "SELECT age FROM people WHERE age < 5 OR age > 60;\n", out)
}

func TestStatementErrors(t *testing.T) {
	_, err := run(t, "--schema", "name:string", "statement")
	assert.Error(t, err)

	_, err = run(t, "--table", "people", "--schema", "name:string", "statement", "--where", "name ~ 'x'")
	assert.Error(t, err)

	_, err = run(t, "--table", "people", "--schema", "name:string", "statement", "--columns", "age")
	assert.Error(t, err)
}

func TestCreateOnMemoryDriver(t *testing.T) {
	_, err := run(t, "--driver", "memory", "--log-level", "error",
		"--table", "people", "--schema", "name:string,age:integer", "create", "--if-not-exists")
	require.NoError(t, err)
}

func TestInsertRequiresRows(t *testing.T) {
	_, err := run(t, "--driver", "memory", "--log-level", "error",
		"--table", "people", "--schema", "name:string", "insert")
	assert.Error(t, err)
}

func TestUnknownDriver(t *testing.T) {
	_, err := run(t, "--driver", "oracle", "--log-level", "error",
		"--table", "people", "--schema", "name:string", "drop")
	assert.Error(t, err)
}

func TestPrintRows(t *testing.T) {
	catalog := schema.DefaultCatalog()
	name, err := catalog.NewColumn(schema.String)
	require.NoError(t, err)
	age, err := catalog.NewColumn(schema.Integer)
	require.NoError(t, err)

	db := database.NewMemoryDatabase(nil)
	m, err := model.New("people", db, []schema.Attribute{
		schema.Attr("name", schema.String, name),
		schema.Attr("age", schema.Integer, age),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Create(ctx))
	require.NoError(t, m.Insert(ctx, [][]any{{"Alice", 30}, {"Bob", 25}}))
	require.NoError(t, m.BuildQuery().Select("name", "age").Run(ctx))

	var out bytes.Buffer
	require.NoError(t, printRows(&out, m.Schema()))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Alice")
	assert.Contains(t, out.String(), "(2 rows)")
	assert.Equal(t, 2, m.Len())

	_, err = m.Column("height")
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}
