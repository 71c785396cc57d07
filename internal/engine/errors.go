package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownItem is returned for a path the item store does not hold.
	ErrUnknownItem = errors.New("unknown item")
	// ErrDisposed is returned by mutations on a disposed engine.
	ErrDisposed = errors.New("engine disposed")
)

// ItemRenderError records a failure to draw one item during a pass.
// The item is skipped and retried on the next pass if it is still visible.
type ItemRenderError struct {
	Path string
	Op   string // "acquire", "bind", "content" or "bounds"
	Err  error
}

func (e *ItemRenderError) Error() string {
	return fmt.Sprintf("render %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *ItemRenderError) Unwrap() error {
	return e.Err
}

// guard runs one element call, turning a panic into an ItemRenderError.
func guard(op, path string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ItemRenderError{Path: path, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &ItemRenderError{Path: path, Op: op, Err: err}
	}
	return nil
}
