package fs

type options struct {
	// syncWrites controls whether every entry write is fsynced before the
	// rename that publishes it
	syncWrites bool
}

// Option is the file system store options.
type Option func(options *options) error

func defaultOptions() *options {
	return &options{
		syncWrites: true,
	}
}

// WithSyncWrites sets whether writes are fsynced before being published.
func WithSyncWrites(sync bool) Option {
	return func(o *options) error {
		o.syncWrites = sync
		return nil
	}
}
