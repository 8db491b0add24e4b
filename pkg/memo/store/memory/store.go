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
	"fmt"
	"sync"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

// memoryStore keeps entries in a map. It is only durable for the lifetime of
// the process, which is what tests and the disabled-persistence mode want.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*store.Entry
	closed  bool
}

func (m *memoryStore) Get(_ context.Context, key string) (*store.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, store.ErrStoreClosed
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, store.ErrEntryNotFound
	}
	return copyEntry(entry), nil
}

func (m *memoryStore) Put(_ context.Context, key string, entry *store.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrStoreClosed
	}
	m.entries[key] = copyEntry(entry)
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, store.ErrStoreClosed
	}
	_, ok := m.entries[key]
	return ok, nil
}

func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// copyEntry keeps callers from mutating stored state through the returned
// pointer.
func copyEntry(entry *store.Entry) *store.Entry {
	cp := *entry
	cp.Payload = append([]byte{}, entry.Payload...)
	return &cp
}
