package store

import "fmt"

// NotFoundError means the resource does not exist, or the caller lacks
// enough access to see that it does — the two are deliberately
// indistinguishable from the outside.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError means the request itself is malformed independent of any
// stored state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// ConflictError means the request is well-formed but contradicts existing
// state (a unique-constraint violation, a transfer already pending, and the
// like). Details carries machine-readable context for the caller.
type ConflictError struct {
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ForbiddenError means the caller is known but lacks the access level the
// operation requires.
type ForbiddenError struct{}

func (e *ForbiddenError) Error() string {
	return "forbidden"
}

// UnavailableError means a dependency the operation needs (the memory
// entries cache, the vector store, a spooling medium) is not reachable right
// now. Operations that can proceed without the dependency degrade instead of
// returning this; it is reserved for callers that have no fallback.
type UnavailableError struct {
	Dependency string
	Message    string
}

func (e *UnavailableError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s unavailable: %s", e.Dependency, e.Message)
	}
	return fmt.Sprintf("%s unavailable", e.Dependency)
}
