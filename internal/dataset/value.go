package dataset

import "fmt"

// Value is a sealed interface for column values.
// Only Literal and Ref implement it.
//
// A Literal carries a concrete scalar known at definition time. A Ref is a
// deferred pointer to another dataset's row/column; it carries no value of
// its own and is substituted with the persisted value of its target during
// loading, after the target dataset has been saved.
type Value interface {
	value() // Sealed - only these types implement it
}

// Literal is a concrete column value.
type Literal struct {
	V any
}

func (Literal) value() {}

// String returns the literal's value formatted with %v.
func (l Literal) String() string {
	return fmt.Sprintf("%v", l.V)
}

// Ref is a deferred reference to a column of another dataset's row.
//
// INVARIANT: a Ref is resolvable only after its target dataset has
// completed loading in the current session. Resolution yields the
// persisted value of the column, not the pre-persistence literal.
type Ref struct {
	Dataset string // target dataset name
	Key     string // target row key
	Column  string // target column
}

func (Ref) value() {}

// String returns the reference in dataset.key.column form.
func (r Ref) String() string {
	return r.Dataset + "." + r.Key + "." + r.Column
}

// Lit wraps a scalar into a Literal value.
func Lit(v any) Literal {
	return Literal{V: v}
}

// RefTo builds a Ref to the given dataset, row key, and column.
func RefTo(ds, key, column string) Ref {
	return Ref{Dataset: ds, Key: key, Column: column}
}
