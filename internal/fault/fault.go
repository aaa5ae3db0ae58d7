package fault

import "errors"

// Error marks data that is transiently unavailable for one tick.
// Params: wrapped root cause.
// Returns: typed unavailable error marker.
type Error struct {
	Err error
}

// Error returns wrapped error message.
// Params: none.
// Returns: string representation.
func (e Error) Error() string {
	if e.Err == nil {
		return "data unavailable"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
// Params: none.
// Returns: wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Unavailable marks error as "no warning this tick".
// Params: none.
// Returns: true.
func (Error) Unavailable() bool {
	return true
}

// Mark wraps error with unavailable marker.
// Params: source error.
// Returns: wrapped error or nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return Error{Err: err}
}

// Is reports whether error has unavailable marker.
// Params: candidate error.
// Returns: true when error must be swallowed silently.
func Is(err error) bool {
	if err == nil {
		return false
	}
	type marker interface {
		Unavailable() bool
	}
	var tagged marker
	if !errors.As(err, &tagged) {
		return false
	}
	return tagged.Unavailable()
}
