/*
Copyright 2023 The Tempoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

type memoryStores struct {
	mu     sync.Mutex
	stores map[string]*memoryStore
}

// NewStores returns an in-memory store manager. CreateStore hands back the
// same store for the same name, so separate caches built over one manager
// share entries the way separate processes share a durable backend.
func NewStores() store.Manager {
	return &memoryStores{
		stores: make(map[string]*memoryStore),
	}
}

func (ms *memoryStores) CreateStore(_ context.Context, name string) (store.Store, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if s, ok := ms.stores[name]; ok {
		return s, nil
	}
	s := &memoryStore{
		entries: make(map[string]*store.Entry),
	}
	ms.stores[name] = s
	return s, nil
}

func (ms *memoryStores) DiscoverStores(_ context.Context) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	names := make([]string, 0, len(ms.stores))
	for name := range ms.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (ms *memoryStores) DeleteStore(_ context.Context, name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.stores, name)
	return nil
}
