package loader

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/seedbed/internal/dataset"
)

// Medium is the storage medium adapter for one dataset: the sole
// persistence boundary of the engine. A backend supplies one medium per
// (dataset, storable target) pair.
type Medium interface {
	// Save persists one fully resolved row (all references already
	// substituted with literal values). The returned object is the
	// persisted handle: references read column values off it, and unload
	// passes it back to Clear.
	Save(ctx context.Context, row *dataset.Row) (any, error)

	// Clear removes exactly one previously persisted object.
	Clear(ctx context.Context, obj any) error

	// VisitLoader is called once per dataset, before its first row is
	// saved, giving the medium a chance to read engine-level context such
	// as the active transaction.
	VisitLoader(e *Engine)
}

// Transaction is the backend transaction handle owned by one session.
// CreateTransaction is responsible for beginning the transaction before
// returning it.
type Transaction interface {
	Commit() error
	Rollback() error
}

// Backend creates transactions and storage media. It is the capability a
// concrete persistence layer (sqlstore, testutil's memory backend) plugs
// into the engine.
type Backend interface {
	// CreateTransaction opens and begins a new backend transaction.
	CreateTransaction(ctx context.Context) (Transaction, error)

	// NewMedium adapts a resolved storable target for one dataset.
	NewMedium(storable any, ds *dataset.Dataset) (Medium, error)
}

// Finalizer is an optional Backend extension. ThenFinally runs exactly once
// per load or unload call, on both success and failure paths, after commit
// or rollback - the place to release backend resources.
type Finalizer interface {
	ThenFinally(unloading bool)
}

// ColumnReader lets a stored object expose column values for reference
// resolution without reflection.
type ColumnReader interface {
	Column(name string) (any, bool)
}

// columnValue reads a named column off a persisted object. Stored objects
// may implement ColumnReader, be plain maps, or be structs whose exported
// fields are matched by name (exact first, then case-insensitive, so a
// "first_name" column finds a FirstName field).
func columnValue(obj any, column string) (any, error) {
	switch o := obj.(type) {
	case ColumnReader:
		if v, ok := o.Column(column); ok {
			return v, nil
		}
		return nil, fmt.Errorf("stored object has no column %q", column)

	case map[string]any:
		if v, ok := o[column]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("stored object has no column %q", column)
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("stored object is nil, cannot read column %q", column)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot read column %q off stored %T", column, obj)
	}

	if f := rv.FieldByName(column); f.IsValid() && f.CanInterface() {
		return f.Interface(), nil
	}

	// Case-insensitive fallback, ignoring underscores: first_name -> FirstName.
	want := normalizeField(column)
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if normalizeField(t.Field(i).Name) == want {
			f := rv.Field(i)
			if f.CanInterface() {
				return f.Interface(), nil
			}
		}
	}

	return nil, fmt.Errorf("stored %T has no field for column %q", obj, column)
}

func normalizeField(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
