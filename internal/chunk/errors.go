package chunk

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrColumnNotFound is returned when the designated column is not in the
	// source header.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidBudget is returned for a chunk budget below one character.
	ErrInvalidBudget = errors.New("max chunk chars must be at least 1")

	// ErrInvalidUTF8 is returned when a cell holds bytes that are not UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// NotFoundError reports a missing source table or input directory.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist", e.Path)
}

// Unwrap returns the underlying file system error, so errors.Is with
// fs.ErrNotExist keeps working.
func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound turns a "does not exist" error for path into a *NotFoundError.
// Any other error is returned unchanged.
func NotFound(path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{Path: path, Err: err}
	}
	return err
}
