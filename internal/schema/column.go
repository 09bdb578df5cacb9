package schema

// Column is column-oriented storage for one attribute. The set of
// implementations is closed: IntColumn, FloatColumn, StringColumn,
// IntArrayColumn and FloatArrayColumn.
type Column interface {
	// Type returns the tag whose converter produces this column's element type.
	Type() TypeTag

	// Len returns the number of stored rows.
	Len() int

	// Value returns element i as a generic value.
	Value(i int) any

	appendValue(v any)
	truncate(n int)
}

// IntColumn stores integer attributes.
type IntColumn struct {
	values []int
}

// Type implements Column.
func (c *IntColumn) Type() TypeTag { return Integer }

// Len implements Column.
func (c *IntColumn) Len() int { return len(c.values) }

// Value implements Column.
func (c *IntColumn) Value(i int) any { return c.values[i] }

// Values returns the stored values. The slice must not be modified.
func (c *IntColumn) Values() []int { return c.values }

func (c *IntColumn) appendValue(v any) { c.values = append(c.values, v.(int)) }
func (c *IntColumn) truncate(n int)    { c.values = c.values[:n] }

// FloatColumn stores floating-point attributes.
type FloatColumn struct {
	values []float64
}

// Type implements Column.
func (c *FloatColumn) Type() TypeTag { return Float }

// Len implements Column.
func (c *FloatColumn) Len() int { return len(c.values) }

// Value implements Column.
func (c *FloatColumn) Value(i int) any { return c.values[i] }

// Values returns the stored values. The slice must not be modified.
func (c *FloatColumn) Values() []float64 { return c.values }

func (c *FloatColumn) appendValue(v any) { c.values = append(c.values, v.(float64)) }
func (c *FloatColumn) truncate(n int)    { c.values = c.values[:n] }

// StringColumn stores string attributes.
type StringColumn struct {
	values []string
}

// Type implements Column.
func (c *StringColumn) Type() TypeTag { return String }

// Len implements Column.
func (c *StringColumn) Len() int { return len(c.values) }

// Value implements Column.
func (c *StringColumn) Value(i int) any { return c.values[i] }

// Values returns the stored values. The slice must not be modified.
func (c *StringColumn) Values() []string { return c.values }

func (c *StringColumn) appendValue(v any) { c.values = append(c.values, v.(string)) }
func (c *StringColumn) truncate(n int)    { c.values = c.values[:n] }

// IntArrayColumn stores integer-array attributes.
type IntArrayColumn struct {
	values [][]int
}

// Type implements Column.
func (c *IntArrayColumn) Type() TypeTag { return IntegerArray }

// Len implements Column.
func (c *IntArrayColumn) Len() int { return len(c.values) }

// Value implements Column.
func (c *IntArrayColumn) Value(i int) any { return c.values[i] }

// Values returns the stored values. The slices must not be modified.
func (c *IntArrayColumn) Values() [][]int { return c.values }

func (c *IntArrayColumn) appendValue(v any) { c.values = append(c.values, v.([]int)) }
func (c *IntArrayColumn) truncate(n int)    { c.values = c.values[:n] }

// FloatArrayColumn stores float-array attributes.
type FloatArrayColumn struct {
	values [][]float64
}

// Type implements Column.
func (c *FloatArrayColumn) Type() TypeTag { return FloatArray }

// Len implements Column.
func (c *FloatArrayColumn) Len() int { return len(c.values) }

// Value implements Column.
func (c *FloatArrayColumn) Value(i int) any { return c.values[i] }

// Values returns the stored values. The slices must not be modified.
func (c *FloatArrayColumn) Values() [][]float64 { return c.values }

func (c *FloatArrayColumn) appendValue(v any) { c.values = append(c.values, v.([]float64)) }
func (c *FloatArrayColumn) truncate(n int)    { c.values = c.values[:n] }
