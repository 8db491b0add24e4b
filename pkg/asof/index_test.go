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

package asof

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempoproj/tempoflow/pkg/row"
)

// buildScope builds a scope out of (arrival position, timestamp) pairs given
// in arrival order.
func buildScope(t *testing.T, times ...int64) (*scopeIndex, *row.Ordering) {
	t.Helper()
	o, err := row.OrderingFor(row.KindInt)
	assert.NoError(t, err)
	ix := &scopeIndex{}
	for pos, tv := range times {
		ix.entries = append(ix.entries, candidate{pos: pos, t: tv})
	}
	ix.sortByTime(o)
	return ix, o
}

func TestScopeIndexBackward(t *testing.T) {
	ix, o := buildScope(t, 10, 20, 30)

	_, ok := ix.backward(o, int64(5))
	assert.False(t, ok)

	entry, ok := ix.backward(o, int64(10))
	assert.True(t, ok)
	assert.Equal(t, 0, ix.entries[entry].pos)

	entry, ok = ix.backward(o, int64(25))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)

	entry, ok = ix.backward(o, int64(99))
	assert.True(t, ok)
	assert.Equal(t, 2, ix.entries[entry].pos)
}

func TestScopeIndexForward(t *testing.T) {
	ix, o := buildScope(t, 10, 20, 30)

	entry, ok := ix.forward(o, int64(5))
	assert.True(t, ok)
	assert.Equal(t, 0, ix.entries[entry].pos)

	entry, ok = ix.forward(o, int64(20))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)

	entry, ok = ix.forward(o, int64(21))
	assert.True(t, ok)
	assert.Equal(t, 2, ix.entries[entry].pos)

	_, ok = ix.forward(o, int64(31))
	assert.False(t, ok)
}

func TestScopeIndexNearest(t *testing.T) {
	ix, o := buildScope(t, 10, 20, 30)

	// below and above the range snap to the edges
	entry, ok := ix.nearest(o, int64(1))
	assert.True(t, ok)
	assert.Equal(t, 0, ix.entries[entry].pos)
	entry, ok = ix.nearest(o, int64(99))
	assert.True(t, ok)
	assert.Equal(t, 2, ix.entries[entry].pos)

	// strictly closer forward candidate wins
	entry, ok = ix.nearest(o, int64(17))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)

	// strictly closer backward candidate wins
	entry, ok = ix.nearest(o, int64(13))
	assert.True(t, ok)
	assert.Equal(t, 0, ix.entries[entry].pos)

	// equal distance keeps the backward candidate
	entry, ok = ix.nearest(o, int64(25))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)
}

func TestScopeIndexEqualTimestampsKeepArrivalOrder(t *testing.T) {
	// arrival positions 1 and 2 share the timestamp 20
	ix, o := buildScope(t, 10, 20, 20, 30)

	entry, ok := ix.backward(o, int64(25))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)

	entry, ok = ix.forward(o, int64(15))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)

	entry, ok = ix.nearest(o, int64(20))
	assert.True(t, ok)
	assert.Equal(t, 1, ix.entries[entry].pos)
}

func TestScopeIndexEmpty(t *testing.T) {
	ix, o := buildScope(t)
	_, ok := ix.backward(o, int64(1))
	assert.False(t, ok)
	_, ok = ix.forward(o, int64(1))
	assert.False(t, ok)
	_, ok = ix.nearest(o, int64(1))
	assert.False(t, ok)
}

func TestChunkRanges(t *testing.T) {
	assert.Nil(t, chunkRanges(0, 4))
	assert.Equal(t, [][2]int{{0, 5}}, chunkRanges(5, 1))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, chunkRanges(2, 4))
	assert.Equal(t, [][2]int{{0, 3}, {3, 5}, {5, 7}}, chunkRanges(7, 3))

	// ranges cover everything exactly once
	covered := 0
	for _, r := range chunkRanges(1000, 7) {
		covered += r[1] - r[0]
	}
	assert.Equal(t, 1000, covered)
}
