// Package compiler loads dataset definitions written in CUE.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// A definition file declares a "datasets" struct; each entry names a
// dataset and carries an optional storable override, optional explicit
// dependencies, and the keyed rows:
//
//	datasets: {
//		AuthorData: {
//			storable: "authors"
//			depends: ["CategoryData"]
//			rows: frank: {
//				first_name:  "Frank"
//				category_id: {"$ref": "CategoryData.scifi.id"}
//			}
//		}
//	}
//
// A "$ref" column value points at Dataset.rowkey.column of a persisted
// row and implies a dependency on the referenced dataset.
package compiler

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/seedbed/internal/dataset"
)

// CompileFile reads and compiles one CUE definition file.
func CompileFile(path string) ([]*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileBytes(path, data)
}

// CompileBytes compiles CUE source into dataset definitions. The
// filename is only used for error positions.
func CompileBytes(filename string, data []byte) ([]*dataset.Dataset, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return Compile(v)
}

// pending holds one parsed dataset with its dependency names still
// unresolved. Linking happens after the whole file is parsed so
// definitions may reference datasets declared later.
type pending struct {
	ds      *dataset.Dataset
	depends []string
}

// Compile parses a CUE value holding a "datasets" struct into dataset
// definitions, in declaration order, with the dependency graph linked
// and checked for cycles.
func Compile(v cue.Value) ([]*dataset.Dataset, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("datasets"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "datasets",
			Message: "datasets struct is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var order []string
	parsed := make(map[string]*pending)
	for iter.Next() {
		name := iter.Label()
		p, err := parseDataset(name, iter.Value())
		if err != nil {
			return nil, err
		}
		order = append(order, name)
		parsed[name] = p
	}

	sets := make([]*dataset.Dataset, 0, len(order))
	for _, name := range order {
		p := parsed[name]
		for _, dep := range p.depends {
			target, ok := parsed[dep]
			if !ok {
				return nil, &CompileError{
					Field:   name,
					Message: fmt.Sprintf("depends on unknown dataset %q", dep),
					Pos:     token.NoPos,
				}
			}
			p.ds.DependsOn(target.ds)
		}
		sets = append(sets, p.ds)
	}

	if err := dataset.ValidateGraph(sets...); err != nil {
		return nil, err
	}
	return sets, nil
}

func parseDataset(name string, v cue.Value) (*pending, error) {
	p := &pending{ds: dataset.New(name)}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	sawRows := false
	for iter.Next() {
		fv := iter.Value()
		switch label := iter.Label(); label {
		case "storable":
			storable, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			p.ds.SetStorableName(storable)
		case "depends":
			depIter, err := fv.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for depIter.Next() {
				dep, err := depIter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				p.depends = append(p.depends, dep)
			}
		case "rows":
			sawRows = true
			if err := parseRows(name, fv, p); err != nil {
				return nil, err
			}
		default:
			return nil, &CompileError{
				Field:   name,
				Message: fmt.Sprintf("unknown field %q (want storable, depends, rows)", label),
				Pos:     fv.Pos(),
			}
		}
	}

	if !sawRows {
		return nil, &CompileError{
			Field:   name,
			Message: "rows struct is required",
			Pos:     v.Pos(),
		}
	}
	return p, nil
}

func parseRows(name string, v cue.Value, p *pending) error {
	rowIter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for rowIter.Next() {
		key := rowIter.Label()
		colIter, err := rowIter.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}

		var cols []dataset.Column
		for colIter.Next() {
			val, dep, err := columnValue(name, key, colIter.Label(), colIter.Value())
			if err != nil {
				return err
			}
			if dep != "" {
				p.depends = append(p.depends, dep)
			}
			cols = append(cols, dataset.Col(colIter.Label(), val))
		}
		p.ds.AddRow(key, dataset.NewRow(cols...))
	}
	return nil
}

// columnValue parses one column: either a scalar literal or a "$ref"
// struct. Returns the implied dependency name for references.
func columnValue(ds, key, col string, v cue.Value) (dataset.Value, string, error) {
	field := fmt.Sprintf("%s.rows.%s.%s", ds, key, col)

	if v.Kind() == cue.StructKind {
		refVal := v.LookupPath(cue.MakePath(cue.Str("$ref")))
		if !refVal.Exists() {
			return nil, "", &CompileError{
				Field:   field,
				Message: "struct column values must be a $ref",
				Pos:     v.Pos(),
			}
		}
		ref, err := refVal.String()
		if err != nil {
			return nil, "", formatCUEError(err)
		}
		parts := strings.SplitN(ref, ".", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, "", &CompileError{
				Field:   field,
				Message: fmt.Sprintf("malformed reference %q (want Dataset.rowkey.column)", ref),
				Pos:     refVal.Pos(),
			}
		}
		return dataset.RefTo(parts[0], parts[1], parts[2]), parts[0], nil
	}

	lit, err := scalarValue(field, v)
	if err != nil {
		return nil, "", err
	}
	return dataset.Lit(lit), "", nil
}

func scalarValue(field string, v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.BoolKind:
		return v.Bool()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.NullKind:
		return nil, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported column value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
