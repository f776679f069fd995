package dataset

import "fmt"

// RowEntry pairs a row key with its row, preserving declaration order.
type RowEntry struct {
	Key string
	Row *Row
}

// Dataset is a named, ordered collection of rows plus a declared list of
// dependency datasets.
//
// Identity is the declared name. A dataset may be shared by any number of
// parents - the dependency graph is a DAG, not necessarily a tree, and
// diamond shapes are expected. The definition itself is read-only during
// loading; session state (attached storage medium, persisted objects) is
// owned by the loader, keyed by dataset instance.
type Dataset struct {
	name         string
	storableName string // optional explicit override for style-derived lookup
	rows         []RowEntry
	rowIndex     map[string]int
	deps         []*Dataset
	depSeen      map[*Dataset]bool
}

// New creates an empty dataset with the given name.
func New(name string) *Dataset {
	return &Dataset{
		name:     name,
		rowIndex: make(map[string]int),
		depSeen:  make(map[*Dataset]bool),
	}
}

// Name returns the dataset's declared name.
func (d *Dataset) Name() string {
	return d.name
}

// StorableName returns the explicit storable target name, or "" if the
// loader should derive one through its style.
func (d *Dataset) StorableName() string {
	return d.storableName
}

// SetStorableName pins the storable target name, bypassing style derivation.
func (d *Dataset) SetStorableName(name string) *Dataset {
	d.storableName = name
	return d
}

// AddRow appends a row under the given key.
// Duplicate keys panic - two rows with one key is a definition error.
func (d *Dataset) AddRow(key string, row *Row) *Dataset {
	if _, dup := d.rowIndex[key]; dup {
		panic(fmt.Sprintf("dataset %s: duplicate row key %q", d.name, key))
	}
	d.rowIndex[key] = len(d.rows)
	d.rows = append(d.rows, RowEntry{Key: key, Row: row})
	return d
}

// DependsOn declares dependency datasets. Dependencies are loaded before
// this dataset's rows and unloaded after them. Repeated declarations of
// the same instance are collapsed.
func (d *Dataset) DependsOn(deps ...*Dataset) *Dataset {
	for _, dep := range deps {
		if dep == nil || d.depSeen[dep] {
			continue
		}
		d.depSeen[dep] = true
		d.deps = append(d.deps, dep)
	}
	return d
}

// Rows returns the rows in declaration order.
// The returned slice must not be mutated.
func (d *Dataset) Rows() []RowEntry {
	return d.rows
}

// Row returns the row for a key.
func (d *Dataset) Row(key string) (*Row, bool) {
	i, ok := d.rowIndex[key]
	if !ok {
		return nil, false
	}
	return d.rows[i].Row, true
}

// Deps returns the declared dependencies in declaration order.
// The returned slice must not be mutated.
func (d *Dataset) Deps() []*Dataset {
	return d.deps
}

// String returns the dataset name for log and error formatting.
func (d *Dataset) String() string {
	return d.name
}
