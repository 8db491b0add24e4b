package memo

import "fmt"

type options struct {
	// name identifies the cache in logs and metrics
	name string
	// maxInflight bounds the number of concurrently running computes
	maxInflight int
	// hotCacheSize is the capacity of the in-process result cache, 0
	// disables it
	hotCacheSize int
	// cacheFailures persists failed invocations and serves them back
	cacheFailures bool
}

// Option is the memo cache options.
type Option func(options *options) error

func defaultOptions() *options {
	return &options{
		name:         "memo",
		maxInflight:  8,
		hotCacheSize: 1024,
	}
}

// WithName sets the cache name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		o.name = name
		return nil
	}
}

// WithMaxInflight bounds how many computes may run concurrently.
func WithMaxInflight(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("max inflight must be at least 1, got %d", n)
		}
		o.maxInflight = n
		return nil
	}
}

// WithHotCacheSize sets the in-process result cache capacity, 0 disables it.
func WithHotCacheSize(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("hot cache size must not be negative, got %d", n)
		}
		o.hotCacheSize = n
		return nil
	}
}

// WithFailureCaching persists failed invocations. Later calls with the same
// key are served the recorded failure instead of recomputing.
func WithFailureCaching() Option {
	return func(o *options) error {
		o.cacheFailures = true
		return nil
	}
}
