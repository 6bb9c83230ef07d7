package core

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped in *NodeError) by namespace operations.
// Use errors.Is to test for them.
var (
	ErrNotWritable       = errors.New("not writable")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrLoopedDirectory   = errors.New("directory loop")
	ErrNameNotAvailable  = errors.New("name not available")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrArgumentNotFound  = errors.New("argument not found")
	ErrReferenceDeleted  = errors.New("reference deleted")
	ErrNotFound          = errors.New("no such entry")
)

// NodeError records a failed operation and the node path it was applied to.
type NodeError struct {
	Op   string
	Path string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func opError(op string, n Node, err error) error {
	path := ""
	if n != nil {
		path = n.AbsolutePath()
	}
	return &NodeError{Op: op, Path: path, Err: err}
}
