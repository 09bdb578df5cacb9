package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rzpsarthak13/tabular/internal/core"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokParam
	tokSymbol
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a statement into identifiers, numbers, string literals,
// $n parameters and punctuation.
func tokenize(sql string) ([]token, error) {
	var out []token
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(sql) && isIdentPart(sql[j]) {
				j++
			}
			out = append(out, token{tokIdent, sql[i:j]})
			i = j
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			j := i + 1
			for j < len(sql) && (sql[j] >= '0' && sql[j] <= '9' || sql[j] == '.' || sql[j] == 'e' || sql[j] == 'E') {
				j++
			}
			out = append(out, token{tokNumber, sql[i:j]})
			i = j
		case c == '$':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("%w: bare $ at offset %d", core.ErrStatement, i)
			}
			out = append(out, token{tokParam, sql[i+1 : j]})
			i = j
		case c == '\'':
			var b strings.Builder
			j := i + 1
			for {
				if j >= len(sql) {
					return nil, fmt.Errorf("%w: unterminated string literal", core.ErrStatement)
				}
				if sql[j] == '\'' {
					if j+1 < len(sql) && sql[j+1] == '\'' {
						b.WriteByte('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteByte(sql[j])
				j++
			}
			out = append(out, token{tokString, b.String()})
			i = j + 1
		case c == '<' || c == '>' || c == '!':
			if i+1 < len(sql) && (sql[i+1] == '=' || c == '<' && sql[i+1] == '>') {
				out = append(out, token{tokSymbol, sql[i : i+2]})
				i += 2
				continue
			}
			if c == '!' {
				return nil, fmt.Errorf("%w: unexpected '!'", core.ErrStatement)
			}
			out = append(out, token{tokSymbol, string(c)})
			i++
		case strings.IndexByte("(),;*=[]", c) >= 0:
			out = append(out, token{tokSymbol, string(c)})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", core.ErrStatement, c)
		}
	}
	return append(out, token{kind: tokEOF}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

type parser struct {
	toks []token
	pos  int
	args []any
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) symbol(s string) bool {
	t := p.peek()
	if t.kind == tokSymbol && t.text == s {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(word string) error {
	if !p.keyword(word) {
		return p.unexpected(word)
	}
	return nil
}

func (p *parser) expectSymbol(s string) error {
	if !p.symbol(s) {
		return p.unexpected(s)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.unexpected("identifier")
	}
	p.pos++
	return strings.ToLower(t.text), nil
}

func (p *parser) end() error {
	p.symbol(";")
	if p.peek().kind != tokEOF {
		return p.unexpected("end of statement")
	}
	return nil
}

func (p *parser) unexpected(want string) error {
	t := p.peek()
	if t.kind == tokEOF {
		return fmt.Errorf("%w: syntax error: expected %s at end of input", core.ErrStatement, want)
	}
	return fmt.Errorf("%w: syntax error at or near %q: expected %s", core.ErrStatement, t.text, want)
}

// value reads a $n parameter or an inline literal.
func (p *parser) value() (any, error) {
	t := p.next()
	switch t.kind {
	case tokParam:
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 1 || n > len(p.args) {
			return nil, fmt.Errorf("%w: there is no parameter $%s", core.ErrStatement, t.text)
		}
		return p.args[n-1], nil
	case tokString:
		return t.text, nil
	case tokNumber:
		if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", core.ErrStatement, t.text)
		}
		return f, nil
	case tokIdent:
		if strings.EqualFold(t.text, "NULL") {
			return nil, nil
		}
	}
	p.pos--
	return nil, p.unexpected("value")
}

type createStmt struct {
	table       string
	ifNotExists bool
	columns     []memColumn
}

type dropStmt struct {
	table    string
	ifExists bool
}

type insertStmt struct {
	table   string
	columns []string
	rows    [][]any
}

type comparison struct {
	column string
	op     string
	value  any
}

type selectStmt struct {
	table   string
	columns []string // nil means *
	// where is a disjunction of conjunctions.
	where [][]comparison
}

func parse(sql string, args []any) (any, error) {
	toks, err := tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, args: args}
	switch {
	case p.keyword("CREATE"):
		return p.parseCreate()
	case p.keyword("DROP"):
		return p.parseDrop()
	case p.keyword("INSERT"):
		return p.parseInsert()
	case p.keyword("SELECT"):
		return p.parseSelect()
	default:
		return nil, p.unexpected("CREATE, DROP, INSERT or SELECT")
	}
}

func (p *parser) parseCreate() (*createStmt, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	st := &createStmt{}
	if p.keyword("IF") {
		if err := p.expectKeyword("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		st.ifNotExists = true
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	st.table = table
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		st.columns = append(st.columns, col)
		if p.symbol(")") {
			break
		}
		if err := p.expectSymbol(","); err != nil {
			return nil, err
		}
	}
	return st, p.end()
}

// parseColumnDef reads "name type [modifiers]" up to the next top-level
// comma or closing parenthesis.
func (p *parser) parseColumnDef() (memColumn, error) {
	name, err := p.ident()
	if err != nil {
		return memColumn{}, err
	}
	typeName, err := p.ident()
	if err != nil {
		return memColumn{}, err
	}
	col := memColumn{name: name}
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return memColumn{}, p.unexpected(")")
		}
		if t.kind == tokSymbol && depth == 0 && (t.text == "," || t.text == ")") {
			break
		}
		switch {
		case t.kind == tokSymbol && t.text == "(":
			depth++
		case t.kind == tokSymbol && t.text == ")":
			depth--
		case t.kind == tokSymbol && t.text == "[":
			col.array = true
		case t.kind == tokIdent && strings.EqualFold(t.text, "PRIMARY"):
			col.primaryKey = true
		}
		p.pos++
	}

	switch typeName {
	case "serial":
		col.kind = kindSerial
	case "int", "integer", "int4", "int8", "bigint", "smallint":
		col.kind = kindInt
	case "float", "float8", "double", "real":
		col.kind = kindFloat
	case "varchar", "text", "char":
		col.kind = kindString
	default:
		return memColumn{}, fmt.Errorf("%w: type %q does not exist", core.ErrStatement, typeName)
	}
	if col.array && col.kind == kindString || col.array && col.kind == kindSerial {
		return memColumn{}, fmt.Errorf("%w: unsupported array type %s[]", core.ErrStatement, typeName)
	}
	return col, nil
}

func (p *parser) parseDrop() (*dropStmt, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	st := &dropStmt{}
	if p.keyword("IF") {
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		st.ifExists = true
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	st.table = table
	return st, p.end()
}

func (p *parser) parseInsert() (*insertStmt, error) {
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	st := &insertStmt{table: table}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		st.columns = append(st.columns, col)
		if p.symbol(")") {
			break
		}
		if err := p.expectSymbol(","); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var row []any
		for {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			row = append(row, v)
			if p.symbol(")") {
				break
			}
			if err := p.expectSymbol(","); err != nil {
				return nil, err
			}
		}
		if len(row) != len(st.columns) {
			return nil, fmt.Errorf("%w: INSERT has %d target columns but %d expressions", core.ErrStatement, len(st.columns), len(row))
		}
		st.rows = append(st.rows, row)
		if !p.symbol(",") {
			break
		}
	}
	return st, p.end()
}

func (p *parser) parseSelect() (*selectStmt, error) {
	st := &selectStmt{}
	if !p.symbol("*") {
		for {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			st.columns = append(st.columns, col)
			if !p.symbol(",") {
				break
			}
		}
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	st.table = table

	if p.keyword("WHERE") {
		group := []comparison{}
		for {
			cmp, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			group = append(group, cmp)
			if p.keyword("AND") {
				continue
			}
			if p.keyword("OR") {
				st.where = append(st.where, group)
				group = []comparison{}
				continue
			}
			break
		}
		st.where = append(st.where, group)
	}
	return st, p.end()
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (comparison, error) {
	col, err := p.ident()
	if err != nil {
		return comparison{}, err
	}
	var op string
	t := p.peek()
	switch {
	case t.kind == tokSymbol && comparisonOps[t.text]:
		op = t.text
		p.pos++
	case t.kind == tokIdent && strings.EqualFold(t.text, "LIKE"):
		op = "LIKE"
		p.pos++
	default:
		return comparison{}, p.unexpected("comparison operator")
	}
	v, err := p.value()
	if err != nil {
		return comparison{}, err
	}
	return comparison{column: col, op: op, value: v}, nil
}
