package mmgdb

import "fmt"

// Error kinds per spec §7. Each wraps enough context to build a useful
// log line or HTTP response without the caller needing to know the
// internal representation.

type NotFoundError struct {
	Kind string // "collection" | "variable"
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.Name) }

type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("invalid schema: %s", e.Reason) }

type DocumentError struct {
	Reason string
}

func (e *DocumentError) Error() string { return fmt.Sprintf("invalid document: %s", e.Reason) }

type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unique conflict on %s=%q", e.Field, e.Value)
}
