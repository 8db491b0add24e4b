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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

func testEntry() *store.Entry {
	return &store.Entry{
		FnID:      "lookup_profile",
		Payload:   []byte(`{"tier":"gold"}`),
		Valid:     true,
		CreatedAt: time.Unix(1636470000, 0).UTC(),
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	s, err := stores.CreateStore(ctx, "orders")
	assert.NoError(t, err)

	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, store.ErrEntryNotFound)

	assert.NoError(t, s.Put(ctx, "k1", testEntry()))
	got, err := s.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.Equal(t, testEntry(), got)

	ok, err := s.Exists(ctx, "k1")
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Exists(ctx, "k2")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Close())
	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	assert.ErrorIs(t, s.Put(ctx, "k1", testEntry()), store.ErrStoreClosed)
}

func TestMemoryStoreCopiesEntries(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	s, err := stores.CreateStore(ctx, "orders")
	assert.NoError(t, err)

	in := testEntry()
	assert.NoError(t, s.Put(ctx, "k1", in))
	in.Payload[0] = 'X'

	got, err := s.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"tier":"gold"}`), got.Payload)

	got.Payload[0] = 'Y'
	again, err := s.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"tier":"gold"}`), again.Payload)
}

func TestMemoryStoresShareByName(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	s1, err := stores.CreateStore(ctx, "orders")
	assert.NoError(t, err)
	assert.NoError(t, s1.Put(ctx, "k1", testEntry()))

	s2, err := stores.CreateStore(ctx, "orders")
	assert.NoError(t, err)
	got, err := s2.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.Equal(t, testEntry(), got)

	other, err := stores.CreateStore(ctx, "users")
	assert.NoError(t, err)
	_, err = other.Get(ctx, "k1")
	assert.ErrorIs(t, err, store.ErrEntryNotFound)
}

func TestMemoryStoresDiscoverAndDelete(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()

	names, err := stores.DiscoverStores(ctx)
	assert.NoError(t, err)
	assert.Empty(t, names)

	_, err = stores.CreateStore(ctx, "users")
	assert.NoError(t, err)
	_, err = stores.CreateStore(ctx, "orders")
	assert.NoError(t, err)

	names, err = stores.DiscoverStores(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, names)

	assert.NoError(t, stores.DeleteStore(ctx, "orders"))
	names, err = stores.DiscoverStores(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)
}
