// Package dataset defines the static data model for seedbed fixtures:
// named datasets holding ordered rows of column values, with declared
// dependencies on other datasets forming a DAG.
//
// Values are two-phase: a column holds either a Literal, known at
// definition time, or a Ref, a deferred pointer to another dataset's
// row/column that is resolved only after the referenced dataset has been
// persisted. Definitions are immutable once built; all per-load state
// (storage media, persisted objects) lives with the loader session, not
// here.
//
// Datasets can be built programmatically with New/AddRow/DependsOn or
// parsed from YAML definition files (see Load and Parse).
package dataset
