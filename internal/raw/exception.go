package raw

import (
	"errors"
	"fmt"
)

// SDK failures. They travel as panics inside the SDK and leave it through
// Catch.
var (
	ErrMemoryFull = errors.New("raw: allocation exceeds limit")
	ErrBadFormat  = errors.New("raw: unsupported or damaged image")
	ErrProgram    = errors.New("raw: internal error")
)

// Exception is the panic value the SDK throws.
type Exception struct {
	Err error
}

func (e *Exception) Error() string { return e.Err.Error() }

func (e *Exception) Unwrap() error { return e.Err }

// Throw aborts the current SDK operation with err.
func Throw(err error) {
	panic(&Exception{Err: err})
}

// Catch runs fn and converts any panic it raises into an error. An
// Exception yields its own error; anything else wraps ErrProgram.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var ex *Exception
		switch v := r.(type) {
		case *Exception:
			ex = v
		case error:
			if !errors.As(v, &ex) {
				err = fmt.Errorf("%w: %w", ErrProgram, v)
				return
			}
		default:
			err = fmt.Errorf("%w: %v", ErrProgram, v)
			return
		}
		err = ex.Err
	}()
	fn()
	return nil
}
