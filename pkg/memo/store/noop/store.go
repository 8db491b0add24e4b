package noop

import (
	"context"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

// Store is a no-op memo store which never remembers anything but can be
// safely invoked. It backs the disabled-persistence mode, every lookup is a
// miss and every write is dropped.
type Store struct {
}

var _ store.Store = (*Store)(nil)

func NewStore() (*Store, error) {
	return &Store{}, nil
}

func (p *Store) Get(_ context.Context, _ string) (*store.Entry, error) {
	return nil, store.ErrEntryNotFound
}

func (p *Store) Put(_ context.Context, _ string, _ *store.Entry) error {
	return nil
}

func (p *Store) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (p *Store) Close() error {
	return nil
}
