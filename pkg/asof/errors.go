package asof

import "errors"

var (
	// ErrSchemaMismatch batch schema differs from the one the joiner was built for
	ErrSchemaMismatch = errors.New("batch schema does not match joiner schema")
	// ErrInvalidTimestamp timestamp value cannot be placed on the time axis
	ErrInvalidTimestamp = errors.New("timestamp value cannot be ordered")
	// ErrTimeKindMismatch self and other timestamp fields carry different kinds
	ErrTimeKindMismatch = errors.New("self and other timestamp kinds differ")
)
