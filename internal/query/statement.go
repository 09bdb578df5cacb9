package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rzpsarthak13/tabular/internal/schema"
)

// Kind tells the executor whether a statement returns rows.
type Kind int

const (
	// KindExec statements return no rows (DDL, INSERT).
	KindExec Kind = iota
	// KindQuery statements return rows that are materialized into the model.
	KindQuery
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	if k == KindQuery {
		return "query"
	}
	return "exec"
}

// Statement is SQL text with $n placeholders and the values bound to them.
type Statement struct {
	Kind Kind
	Text string
	Args []any
}

// IsZero reports whether the statement carries no text.
func (s Statement) IsZero() bool { return s.Text == "" }

// Inline renders the statement with every placeholder replaced by an escaped
// literal. The result is meant for logs and the CLI, never for execution.
func (s Statement) Inline() string {
	if len(s.Args) == 0 {
		return s.Text
	}
	var b strings.Builder
	b.Grow(len(s.Text) + 8*len(s.Args))
	text := s.Text
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(text[i+1 : j])
		if err != nil || n < 1 || n > len(s.Args) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(Literal(s.Args[n-1]))
		i = j - 1
	}
	return b.String()
}

// Literal renders a single value as a PostgreSQL literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []int:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = strconv.Itoa(e)
		}
		return arrayLiteral(parts)
	case []float64:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = strconv.FormatFloat(e, 'g', -1, 64)
		}
		return arrayLiteral(parts)
	case []string:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = quote(e)
		}
		return arrayLiteral(parts)
	default:
		return quote(fmt.Sprint(x))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func arrayLiteral(parts []string) string {
	if len(parts) == 0 {
		return "'{}'"
	}
	return "ARRAY[" + strings.Join(parts, ",") + "]"
}

// CreateTable renders the DDL for s: a SERIAL surrogate key followed by every
// attribute in registration order.
func CreateTable(s *schema.Schema, ifNotExists bool) Statement {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(s.Table())
	b.WriteString(" (")
	b.WriteString(schema.SurrogateKey)
	b.WriteString(" SERIAL PRIMARY KEY")
	for i, name := range s.Names() {
		b.WriteString(", ")
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(s.Keyword(i))
	}
	b.WriteString(");")
	return Statement{Kind: KindExec, Text: b.String()}
}

// DropTable renders DROP TABLE IF EXISTS for table.
func DropTable(table string) Statement {
	return Statement{Kind: KindExec, Text: "DROP TABLE IF EXISTS " + table + ";"}
}

// Insert renders one multi-row INSERT for rows, which must already be
// converted and arity-checked against s.
func Insert(s *schema.Schema, rows [][]any) Statement {
	width := s.NumAttributes()
	args := make([]any, 0, width*len(rows))

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.Table())
	b.WriteString(" (")
	b.WriteString(strings.Join(s.Names(), ","))
	b.WriteString(") VALUES ")
	for r, row := range rows {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			args = append(args, row[c])
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(args)))
		}
		b.WriteByte(')')
	}
	b.WriteByte(';')
	return Statement{Kind: KindExec, Text: b.String(), Args: args}
}
