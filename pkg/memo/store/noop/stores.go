package noop

import (
	"context"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

type noopStores struct {
}

// NewStores returns a manager whose stores drop every write.
func NewStores() store.Manager {
	return &noopStores{}
}

func (ns *noopStores) CreateStore(_ context.Context, _ string) (store.Store, error) {
	return NewStore()
}

func (ns *noopStores) DiscoverStores(_ context.Context) ([]string, error) {
	return []string{}, nil
}

func (ns *noopStores) DeleteStore(_ context.Context, _ string) error {
	return nil
}
