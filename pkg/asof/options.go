package asof

import (
	"fmt"
)

type options struct {
	// name labels the joiner in logs and metrics
	name string
	// direction of the timestamp lookup
	direction Direction
	// mode decides which rows are retained
	mode Mode
	// equalityKeys scope candidate rows to equal key fields, empty means one global scope
	equalityKeys []string
	// defaults overrides the zero fill values for unmatched sides, keyed by field name
	defaults map[string]interface{}
	// parallelism is the number of workers for index build and probe
	parallelism int
	// lenient drops rows with unusable timestamps instead of failing the join
	lenient bool
}

type Option func(options *options) error

func DefaultOptions() *options {
	return &options{
		name:        "asof",
		direction:   DirectionBackward,
		mode:        ModeLeft,
		parallelism: 1,
	}
}

// WithName sets the joiner name used in logs and metrics
func WithName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return fmt.Errorf("joiner name must not be empty")
		}
		o.name = name
		return nil
	}
}

// WithDirection sets the lookup direction
func WithDirection(d Direction) Option {
	return func(o *options) error {
		if _, err := ParseDirection(string(d)); err != nil {
			return err
		}
		o.direction = d
		return nil
	}
}

// WithMode sets the retention mode
func WithMode(m Mode) Option {
	return func(o *options) error {
		if _, err := ParseMode(string(m)); err != nil {
			return err
		}
		o.mode = m
		return nil
	}
}

// WithEqualityKeys sets the fields candidate rows must be equal on
func WithEqualityKeys(keys ...string) Option {
	return func(o *options) error {
		o.equalityKeys = append([]string(nil), keys...)
		return nil
	}
}

// WithDefaults sets fill values for fields of an unmatched side
func WithDefaults(defaults map[string]interface{}) Option {
	return func(o *options) error {
		o.defaults = defaults
		return nil
	}
}

// WithParallelism sets the worker count for index build and probe
func WithParallelism(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be at least 1, got %d", n)
		}
		o.parallelism = n
		return nil
	}
}

// WithLenient drops rows with unusable timestamps instead of failing the join
func WithLenient() Option {
	return func(o *options) error {
		o.lenient = true
		return nil
	}
}
