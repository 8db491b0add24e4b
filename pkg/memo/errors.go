package memo

import "errors"

var (
	// ErrUnsupportedArgType means an argument cannot be canonically encoded
	// into a cache key.
	ErrUnsupportedArgType = errors.New("unsupported argument type")
	// ErrFailureCached wraps the stored error text when failure caching is
	// on and a recorded failure is served instead of a recompute.
	ErrFailureCached = errors.New("invocation previously failed")
)
