package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rzpsarthak13/tabular/internal/schema"
)

// field is one name:type entry of the --schema flag.
type field struct {
	Name string
	Type schema.TypeTag
}

// parseSchema parses "name:string,age:integer,scores:int[]".
func parseSchema(s string) ([]field, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("--schema is required, e.g. name:string,age:integer")
	}

	var fields []field
	for _, part := range strings.Split(s, ",") {
		name, typ, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("schema entry %q must be name:type", part)
		}
		tag, err := schema.ParseTypeTag(typ)
		if err != nil {
			return nil, fmt.Errorf("schema entry %q: %w", part, err)
		}
		fields = append(fields, field{Name: strings.TrimSpace(name), Type: tag})
	}
	return fields, nil
}

// project keeps the fields named in cols, in cols order.
func project(fields []field, cols []string) ([]field, error) {
	if len(cols) == 0 {
		return fields, nil
	}
	out := make([]field, 0, len(cols))
	for _, c := range cols {
		found := false
		for _, f := range fields {
			if f.Name == c {
				out = append(out, f)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("column %q is not in --schema", c)
		}
	}
	return out, nil
}

// predicate is one parsed --where expression.
type predicate struct {
	Column   string
	Operator string
	Value    any
}

var wherePattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(<=|>=|<>|!=|=|<|>|(?i:like))\s*(.+?)\s*$`)

// parseWhere parses "age >= 30" or "name = 'O''Brien'". Quoted operands
// are strings; bare operands are integers, then floats, then strings.
func parseWhere(expr string) (predicate, error) {
	m := wherePattern.FindStringSubmatch(expr)
	if m == nil {
		return predicate{}, fmt.Errorf("cannot parse predicate %q; want <column> <op> <value>", expr)
	}
	return predicate{Column: m[1], Operator: m[2], Value: parseOperand(m[3])}, nil
}

func parseOperand(s string) any {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parseRow decodes a JSON array such as ["Alice",30,[1,2]].
func parseRow(s string) ([]any, error) {
	var row []any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("row %s is not a JSON array: %w", s, err)
	}
	return row, nil
}
