package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// SurrogateKey is the column every generated table carries as its primary key.
const SurrogateKey = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

var operators = map[string]string{
	"=":    "=",
	"!=":   "!=",
	"<>":   "<>",
	"<":    "<",
	"<=":   "<=",
	">":    ">",
	">=":   ">=",
	"LIKE": "LIKE",
}

// ValidateIdentifier checks that name can be spliced into a statement as a
// bare table or column name.
func ValidateIdentifier(name string) error {
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: %q exceeds %d characters", core.ErrInvalidIdentifier, name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", core.ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateColumnRef accepts an identifier or the "*" wildcard.
func ValidateColumnRef(name string) error {
	if name == "*" {
		return nil
	}
	return ValidateIdentifier(name)
}

// NormalizeOperator returns the canonical spelling of a comparison operator.
func NormalizeOperator(op string) (string, error) {
	canonical, ok := operators[strings.ToUpper(strings.TrimSpace(op))]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidOperator, op)
	}
	return canonical, nil
}

// validateAttributes checks names and tags of a registration list against the catalog.
func validateAttributes(catalog *Catalog, attrs []Attribute) error {
	seen := make(map[string]struct{}, len(attrs))
	columns := make(map[Column]string, len(attrs))
	for i, a := range attrs {
		if err := ValidateIdentifier(a.Name); err != nil {
			return fmt.Errorf("attribute %d: %w", i, err)
		}
		if strings.EqualFold(a.Name, SurrogateKey) {
			return fmt.Errorf("attribute %d: %w: %q is reserved for the surrogate key", i, core.ErrInvalidIdentifier, a.Name)
		}
		key := strings.ToLower(a.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("attribute %d: %w: duplicate name %q", i, core.ErrInvalidIdentifier, a.Name)
		}
		seen[key] = struct{}{}

		if _, err := catalog.Keyword(a.Type); err != nil {
			return fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		if a.Column != nil && a.Column.Type() != a.Type {
			return fmt.Errorf("attribute %q: %w: %s storage supplied for %s", a.Name, core.ErrUnsupportedType, a.Column.Type(), a.Type)
		}
		if a.Column != nil {
			if other, shared := columns[a.Column]; shared {
				return fmt.Errorf("attribute %q: storage already bound to %q", a.Name, other)
			}
			columns[a.Column] = a.Name
		}
	}
	return nil
}
