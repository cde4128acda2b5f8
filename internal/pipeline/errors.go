package pipeline

import (
	"fmt"
)

// filesystem failure while writing an artifact
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// failure of one input file, tagged with its batch position
type FileError struct {
	Index int
	Name  string
	Stage string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %s: %v", e.Index+1, e.Name, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
