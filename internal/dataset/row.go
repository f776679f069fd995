package dataset

import "fmt"

// Column is a single (name, value) pair within a row.
type Column struct {
	Name  string
	Value Value
}

// Col builds a Column. Shorthand for row construction:
//
//	dataset.NewRow(
//	    dataset.Col("title", dataset.Lit("Dune")),
//	    dataset.Col("author_id", dataset.RefTo("AuthorData", "frank", "id")),
//	)
func Col(name string, v Value) Column {
	return Column{Name: name, Value: v}
}

// Row is an ordered column-to-value mapping for one record.
//
// Column order is the declaration order and is preserved through loading
// so that storage media see columns deterministically. Rows are immutable
// once built; the loader never mutates a definition row, it derives
// resolved copies instead.
type Row struct {
	cols  []Column
	index map[string]int
}

// NewRow builds a row from columns in declaration order.
// Duplicate column names panic - a definition with two values for one
// column is a programming error, not a runtime condition.
func NewRow(cols ...Column) *Row {
	r := &Row{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if _, dup := r.index[c.Name]; dup {
			panic(fmt.Sprintf("dataset: duplicate column %q in row", c.Name))
		}
		r.index[c.Name] = len(r.cols)
		r.cols = append(r.cols, c)
	}
	return r
}

// Columns returns the column names in declaration order.
func (r *Row) Columns() []string {
	names := make([]string, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
	}
	return names
}

// Get returns the value for a column name.
func (r *Row) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.cols[i].Value, true
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.cols)
}

// Each calls fn for every column in declaration order.
func (r *Row) Each(fn func(name string, v Value)) {
	for _, c := range r.cols {
		fn(c.Name, c.Value)
	}
}

// Refs returns the deferred references contained in this row, in column order.
func (r *Row) Refs() []Ref {
	var refs []Ref
	for _, c := range r.cols {
		if ref, ok := c.Value.(Ref); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
