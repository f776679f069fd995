package loader

import (
	"errors"
	"fmt"
)

// LoadError reports a failure while persisting a specific row.
// It carries the dataset identity and row key so a failing fixture can be
// located without digging through backend errors.
type LoadError struct {
	// Dataset is the name of the dataset being loaded.
	Dataset string

	// Key is the row key that failed to persist.
	Key string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (row %q): %v", e.Dataset, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// UnloadError reports a failure while clearing a previously persisted
// object. The first clear failure for a dataset aborts its remaining
// clears; there is no partial-continue.
type UnloadError struct {
	// Dataset is the name of the dataset being unloaded.
	Dataset string

	// Object is the stored object that failed to clear.
	Object any

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *UnloadError) Error() string {
	return fmt.Sprintf("unload %s (object %v): %v", e.Dataset, e.Object, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UnloadError) Unwrap() error {
	return e.Err
}

// StorableNotFoundError reports that storable target resolution found no
// match for the expected name in the environment searched.
type StorableNotFoundError struct {
	// Dataset is the dataset whose target was being resolved.
	Dataset string

	// Expected is the name that was looked up (explicit or style-derived).
	Expected string

	// Env describes the environment that was searched.
	Env string
}

// Error implements the error interface.
func (e *StorableNotFoundError) Error() string {
	return fmt.Sprintf("could not find storable %q for dataset %s in %s",
		e.Expected, e.Dataset, e.Env)
}

// ConfigError reports a fixture misconfiguration, such as a dataset
// resolving to itself as its own storage target - almost always a style
// mapping mistake.
type ConfigError struct {
	Dataset string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("dataset %s: %s", e.Dataset, e.Message)
}

// IsLoadError returns true if err is or wraps a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsUnloadError returns true if err is or wraps an UnloadError.
func IsUnloadError(err error) bool {
	var ue *UnloadError
	return errors.As(err, &ue)
}
