package store

import "fmt"

// StoreUnavailableError means the engine could not be reached or refused the credentials.
type StoreUnavailableError struct {
	Driver string
	Err    error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store is unavailable: %s", e.Driver, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// SchemaStatementError is a statement of the schema script that the engine rejected.
// These are collected rather than returned, since a schema script commonly contains
// statements that fail harmlessly on a fresh store.
type SchemaStatementError struct {
	Index     int // 1-based position in the script
	Statement string
	Err       error
}

func (e *SchemaStatementError) Error() string {
	return fmt.Sprintf("schema statement %d failed: %s", e.Index, e.Err)
}

func (e *SchemaStatementError) Unwrap() error {
	return e.Err
}
