package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyID is returned when a record without an identifier is appended.
var ErrEmptyID = errors.New("record id required")

// ErrUnknownColumn is returned when a filter or sort references a column the
// catalog does not define.
var ErrUnknownColumn = errors.New("unknown column")

// DuplicateIDError is returned when a record is appended with an id that is
// already present in the store.
type DuplicateIDError struct {
	ID string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("record %s already exists", e.ID)
}

// NotFoundWarning describes a delete of an id that is not in the store. It is
// recorded in the audit trail only; callers see the delete as a successful
// no-op.
type NotFoundWarning struct {
	ID string
}

func (w NotFoundWarning) Error() string {
	return fmt.Sprintf("record %s not found", w.ID)
}

// IsDuplicateID reports whether err carries a DuplicateIDError.
func IsDuplicateID(err error) bool {
	var dup DuplicateIDError
	return errors.As(err, &dup)
}
