package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/schema"
)

func personSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("person", nil, schema.Attr("name", schema.String, nil), schema.Attr("age", schema.Integer, nil))
	require.NoError(t, err)
	return s
}

func TestCreateTable(t *testing.T) {
	s := personSchema(t)

	stmt := CreateTable(s, false)
	assert.Equal(t, KindExec, stmt.Kind)
	assert.Equal(t, "CREATE TABLE person (id SERIAL PRIMARY KEY, name VARCHAR(255), age int);", stmt.Text)
	assert.Empty(t, stmt.Args)

	stmt = CreateTable(s, true)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS person (id SERIAL PRIMARY KEY, name VARCHAR(255), age int);", stmt.Text)
}

func TestCreateTableArrays(t *testing.T) {
	s, err := schema.New("samples", nil, schema.Attr("ids", schema.IntegerArray, nil), schema.Attr("weights", schema.FloatArray, nil))
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE samples (id SERIAL PRIMARY KEY, ids int[], weights float[]);", CreateTable(s, false).Text)
}

func TestDropTable(t *testing.T) {
	assert.Equal(t, "DROP TABLE IF EXISTS person;", DropTable("person").Text)
}

func TestInsertRendersOneMultiRowStatement(t *testing.T) {
	s := personSchema(t)

	stmt := Insert(s, [][]any{{"Alice", 30}, {"Bob", 25}})
	assert.Equal(t, KindExec, stmt.Kind)
	assert.Equal(t, "INSERT INTO person (name,age) VALUES ($1,$2),($3,$4);", stmt.Text)
	assert.Equal(t, []any{"Alice", 30, "Bob", 25}, stmt.Args)
	assert.Equal(t, "INSERT INTO person (name,age) VALUES ('Alice',30),('Bob',25);", stmt.Inline())
}

func TestInlineLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "O'Brien", "'O''Brien'"},
		{"int", 42, "42"},
		{"int32", int32(-7), "-7"},
		{"float", 1.5, "1.5"},
		{"bool", true, "TRUE"},
		{"int array", []int{1, 2}, "ARRAY[1,2]"},
		{"float array", []float64{0.5, 2}, "ARRAY[0.5,2]"},
		{"empty array", []int{}, "'{}'"},
		{"string array", []string{"a'b"}, "ARRAY['a''b']"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}

func TestInlineMultiDigitPlaceholders(t *testing.T) {
	args := make([]any, 11)
	for i := range args {
		args[i] = i + 1
	}
	stmt := Statement{Text: "SELECT $1,$10,$11,$12;", Args: args}
	assert.Equal(t, "SELECT 1,10,11,$12;", stmt.Inline())
}
