package records

import "fmt"

// Op names the remote operation a StoreError came from.
type Op string

const (
	OpQuery Op = "query"
	OpWrite Op = "write"
)

// StoreError is a failed remote document store call. It never blocks the
// in-memory operation it accompanies.
type StoreError struct {
	Op  Op
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("document store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError is returned for ids missing from the local collection.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}
