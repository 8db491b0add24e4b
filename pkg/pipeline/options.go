package pipeline

import "fmt"

// Option is the pipeline builder options.
type Option func(b *Builder) error

// WithParallelism bounds how many rows an enrich stage resolves concurrently.
func WithParallelism(n int) Option {
	return func(b *Builder) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be at least 1, got %d", n)
		}
		b.parallelism = n
		return nil
	}
}
