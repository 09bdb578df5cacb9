package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// TypeTag is the abstract column type of an attribute.
type TypeTag int

const (
	// Integer maps to int storage.
	Integer TypeTag = iota
	// Float maps to float64 storage.
	Float
	// String maps to string storage.
	String
	// IntegerArray maps to []int storage.
	IntegerArray
	// FloatArray maps to []float64 storage.
	FloatArray
)

var tagNames = map[TypeTag]string{
	Integer:      "integer",
	Float:        "float",
	String:       "string",
	IntegerArray: "integer[]",
	FloatArray:   "float[]",
}

// String returns the tag's canonical name.
func (t TypeTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

// ParseTypeTag parses a tag name as written in schema flags and config files.
func ParseTypeTag(s string) (TypeTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return Integer, nil
	case "float", "double":
		return Float, nil
	case "string", "text", "varchar":
		return String, nil
	case "integer[]", "int[]":
		return IntegerArray, nil
	case "float[]", "double[]":
		return FloatArray, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedType, s)
	}
}

// Converter turns a generic value (Go native, driver-decoded or JSON-decoded)
// into a tag's canonical storage type.
type Converter func(value any) (any, error)

type catalogEntry struct {
	keyword   string
	convert   Converter
	newColumn func() Column
}

// Catalog maps type tags to the dialect's column keyword, a value converter
// and a storage constructor.
type Catalog struct {
	entries map[TypeTag]catalogEntry
}

// PostgresCatalog returns the catalog for the PostgreSQL dialect.
func PostgresCatalog() *Catalog {
	return &Catalog{
		entries: map[TypeTag]catalogEntry{
			Integer: {
				keyword:   "int",
				convert:   toInt4,
				newColumn: func() Column { return &IntColumn{} },
			},
			Float: {
				keyword:   "float",
				convert:   func(v any) (any, error) { return toFloat64(v) },
				newColumn: func() Column { return &FloatColumn{} },
			},
			String: {
				keyword:   "VARCHAR(255)",
				convert:   func(v any) (any, error) { return toString(v) },
				newColumn: func() Column { return &StringColumn{} },
			},
			IntegerArray: {
				keyword:   "int[]",
				convert:   toInt4Slice,
				newColumn: func() Column { return &IntArrayColumn{} },
			},
			FloatArray: {
				keyword:   "float[]",
				convert:   func(v any) (any, error) { return toFloat64Slice(v) },
				newColumn: func() Column { return &FloatArrayColumn{} },
			},
		},
	}
}

var defaultCatalog = PostgresCatalog()

// DefaultCatalog returns the shared PostgreSQL catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Keyword returns the column type keyword for tag.
func (c *Catalog) Keyword(tag TypeTag) (string, error) {
	e, ok := c.entries[tag]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedType, tag)
	}
	return e.keyword, nil
}

// Converter returns the value converter for tag.
func (c *Catalog) Converter(tag TypeTag) (Converter, error) {
	e, ok := c.entries[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, tag)
	}
	return e.convert, nil
}

// NewColumn allocates empty storage of the kind tag requires.
func (c *Catalog) NewColumn(tag TypeTag) (Column, error) {
	e, ok := c.entries[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, tag)
	}
	return e.newColumn(), nil
}

// numberLike matches json.Number from both encoding/json and goccy/go-json.
type numberLike interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func conversionError(value any, target string) error {
	return fmt.Errorf("%w: cannot convert %T to %s", core.ErrConversion, value, target)
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint:
		if uint64(v) > math.MaxInt {
			return 0, fmt.Errorf("%w: %d overflows int", core.ErrConversion, v)
		}
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, fmt.Errorf("%w: %d overflows int", core.ErrConversion, v)
		}
		return int(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: cannot convert string to int: %v", core.ErrConversion, err)
		}
		return i, nil
	case []byte:
		return toInt(string(v))
	case numberLike:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: cannot convert number %s to int", core.ErrConversion, v.String())
		}
		return floatToInt(f)
	default:
		return 0, conversionError(value, "int")
	}
}

// floatToInt rejects 2^63 itself: float64(math.MaxInt64) rounds up to it.
func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v is not an integral value", core.ErrConversion, f)
	}
	return int(f), nil
}

// toInt4 converts for the Integer tag, whose keyword is PostgreSQL's
// four-byte int.
func toInt4(value any) (any, error) {
	n, err := toInt(value)
	if err != nil {
		return nil, err
	}
	if err := checkInt4(n); err != nil {
		return nil, err
	}
	return n, nil
}

func toInt4Slice(value any) (any, error) {
	out, err := toIntSlice(value)
	if err != nil {
		return nil, err
	}
	for i, n := range out {
		if err := checkInt4(n); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func checkInt4(n int) error {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return fmt.Errorf("%w: %d is out of range for type integer", core.ErrConversion, n)
	}
	return nil
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot convert string to float64: %v", core.ErrConversion, err)
		}
		return f, nil
	case []byte:
		return toFloat64(string(v))
	case numberLike:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: cannot convert number %s to float64", core.ErrConversion, v.String())
		}
		return f, nil
	default:
		return 0, conversionError(value, "float64")
	}
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", conversionError(value, "string")
	}
}

func toIntSlice(value any) ([]int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, nil
	case []int32:
		out := make([]int, len(v))
		for i, e := range v {
			out[i] = int(e)
		}
		return out, nil
	case []int64:
		out := make([]int, len(v))
		for i, e := range v {
			out[i] = int(e)
		}
		return out, nil
	case []float64:
		out := make([]int, len(v))
		for i, e := range v {
			n, err := floatToInt(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case []any:
		out := make([]int, len(v))
		for i, e := range v {
			if e == nil {
				return nil, fmt.Errorf("%w: element %d is NULL", core.ErrConversion, i)
			}
			n, err := toInt(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case string:
		elems, err := splitArrayLiteral(v)
		if err != nil {
			return nil, err
		}
		out := make([]int, len(elems))
		for i, e := range elems {
			n, err := toInt(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, conversionError(value, "[]int")
	}
}

func toFloat64Slice(value any) ([]float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out, nil
	case []float32:
		out := make([]float64, len(v))
		for i, e := range v {
			out[i] = float64(e)
		}
		return out, nil
	case []int:
		out := make([]float64, len(v))
		for i, e := range v {
			out[i] = float64(e)
		}
		return out, nil
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			if e == nil {
				return nil, fmt.Errorf("%w: element %d is NULL", core.ErrConversion, i)
			}
			f, err := toFloat64(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	case string:
		elems, err := splitArrayLiteral(v)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(elems))
		for i, e := range elems {
			f, err := toFloat64(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, conversionError(value, "[]float64")
	}
}

// splitArrayLiteral splits a one-dimensional PostgreSQL array literal such as "{1,2,3}".
func splitArrayLiteral(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("%w: %q is not an array literal", core.ErrConversion, s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []string{}, nil
	}
	parts := strings.Split(body, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if strings.EqualFold(p, "NULL") {
			return nil, fmt.Errorf("%w: element %d is NULL", core.ErrConversion, i)
		}
		parts[i] = p
	}
	return parts, nil
}
