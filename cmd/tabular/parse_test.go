package main

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

func TestParseSchema(t *testing.T) {
	fields, err := parseSchema("name:string, age:int ,scores:float[]")
	require.NoError(t, err)
	assert.Equal(t, []field{
		{Name: "name", Type: schema.String},
		{Name: "age", Type: schema.Integer},
		{Name: "scores", Type: schema.FloatArray},
	}, fields)

	_, err = parseSchema("")
	assert.Error(t, err)

	_, err = parseSchema("name")
	assert.Error(t, err)

	_, err = parseSchema("blob:bytea")
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestProject(t *testing.T) {
	fields := []field{{"name", schema.String}, {"age", schema.Integer}}

	all, err := project(fields, nil)
	require.NoError(t, err)
	assert.Equal(t, fields, all)

	sub, err := project(fields, []string{"age"})
	require.NoError(t, err)
	assert.Equal(t, []field{{"age", schema.Integer}}, sub)

	_, err = project(fields, []string{"height"})
	assert.Error(t, err)
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		expr string
		want predicate
	}{
		{"age >= 30", predicate{"age", ">=", 30}},
		{"age<30", predicate{"age", "<", 30}},
		{"score > 1.5", predicate{"score", ">", 1.5}},
		{"name = 'O''Brien'", predicate{"name", "=", "O'Brien"}},
		{"name like 'A%'", predicate{"name", "like", "A%"}},
		{"name != Bob", predicate{"name", "!=", "Bob"}},
		{"code = '42'", predicate{"code", "=", "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseWhere(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseWhere("age")
	assert.Error(t, err)
	_, err = parseWhere("1age = 3")
	assert.Error(t, err)
}

func TestParseRow(t *testing.T) {
	row, err := parseRow(`["Alice", 30, [1.5, 2]]`)
	require.NoError(t, err)
	require.Len(t, row, 3)
	assert.Equal(t, "Alice", row[0])
	assert.Equal(t, json.Number("30"), row[1])
	assert.Equal(t, []any{json.Number("1.5"), json.Number("2")}, row[2])

	_, err = parseRow(`{"name":"Alice"}`)
	assert.Error(t, err)
}
