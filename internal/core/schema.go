package core

// TableInfo describes a table as the database reports it.
type TableInfo struct {
	// Name is the table name.
	Name string

	// Columns are listed in ordinal position order.
	Columns []ColumnInfo
}

// ColumnInfo is one column of a TableInfo.
type ColumnInfo struct {
	// Name is the column name.
	Name string

	// DataType is the database type name (e.g., "int4", "varchar", "_float8").
	DataType string

	// Nullable indicates whether the column accepts NULL.
	Nullable bool

	// PrimaryKey is set for the surrogate key column.
	PrimaryKey bool
}

// Column returns the named column, or false if the table has none.
func (t *TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}
