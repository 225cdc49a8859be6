// Package sentinel defines sentinel errors shared by all store implementations.
//
// Error Contract:
// All store methods follow this pattern:
//   - Return ErrNotFound when the requested entity does not exist
//   - Return ErrConflict when a uniqueness constraint is violated
//   - Return nil for successful operations
//   - Return wrapped errors with context for infrastructure failures
package sentinel

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
