package docex

import "fmt"

// ErrPathEscape is returned when a requested path resolves outside the
// configured document root.
type ErrPathEscape struct {
	Path string
}

func (e *ErrPathEscape) Error() string {
	return fmt.Sprintf("path escapes document root: %s", e.Path)
}

// ErrNotFound is returned when a requested document does not exist.
type ErrNotFound struct {
	Path string
	Root string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("pdf not found: %s (looked in %s)", e.Path, e.Root)
}

// ErrCorruptDocument is returned when the text engine cannot open a document.
type ErrCorruptDocument struct {
	Path string
	Err  error
}

func (e *ErrCorruptDocument) Error() string {
	return fmt.Sprintf("cannot open pdf %s: %v", e.Path, e.Err)
}

func (e *ErrCorruptDocument) Unwrap() error { return e.Err }
