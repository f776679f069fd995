package loader

import (
	"fmt"
	"reflect"
)

// Environment is a read-only name-to-storable lookup consulted during
// storable target resolution. Two variants exist behind this interface:
// keyed lookup over a map (MapEnv) and attribute-style lookup over a
// struct's exported fields (FieldEnv). Describe feeds error messages when
// a lookup fails.
type Environment interface {
	Lookup(name string) (any, bool)
	Describe() string
}

// MapEnv is a keyed environment: dataset target names map directly to
// storable objects.
//
//	loader.MapEnv{"Author": authorTable, "Book": bookTable}
type MapEnv map[string]any

// Lookup returns the storable registered under name.
func (m MapEnv) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Describe identifies the environment for lookup errors.
func (m MapEnv) Describe() string {
	return fmt.Sprintf("map environment (%d entries)", len(m))
}

// FieldEnv is an attribute-style environment: storables are the exported
// fields of a struct, looked up by field name. The Go analog of handing
// the loader a module namespace.
type FieldEnv struct {
	v    reflect.Value
	desc string
}

// Fields wraps a struct (or pointer to struct) as an environment.
// Passing anything else panics - the environment shape is a programming
// decision, not runtime input.
func Fields(v any) *FieldEnv {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		panic(fmt.Sprintf("loader: Fields requires a struct, got %T", v))
	}
	return &FieldEnv{v: rv, desc: fmt.Sprintf("fields of %T", v)}
}

// Lookup returns the exported field with the given name.
func (e *FieldEnv) Lookup(name string) (any, bool) {
	f := e.v.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}

// Describe identifies the environment for lookup errors.
func (e *FieldEnv) Describe() string {
	return e.desc
}
