package scan

import (
	"errors"
	"fmt"
)

// ErrPersistence matches every PersistenceError via errors.Is.
var ErrPersistence = errors.New("persistence failed")

// PersistenceError aborts a scan: the store could not be written.
type PersistenceError struct {
	Op    string
	File  string
	Chunk string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s (%s): %v", e.Op, e.File, e.Chunk, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
