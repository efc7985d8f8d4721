package configstore

import (
	"fmt"
	"strings"
)

// PathNotFoundError reports a delete target absent from both the running
// and the candidate configuration. Recoverable; no state changes.
type PathNotFoundError struct {
	Path []string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path %s does not exist in either configuration",
		strings.Join(e.Path, " "))
}

// PersistenceError reports a save/load I/O failure. The session continues;
// only the explicit save/load operation failed.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
