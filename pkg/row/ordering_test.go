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

package row

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderingFor(t *testing.T) {
	for _, k := range []Kind{KindInt, KindFloat, KindTime} {
		o, err := OrderingFor(k)
		assert.NoError(t, err)
		assert.Equal(t, k, o.Kind())
	}
	for _, k := range []Kind{KindBool, KindString, KindBytes} {
		_, err := OrderingFor(k)
		assert.ErrorIs(t, err, ErrKindNotOrdered)
	}
}

func TestOrderingCompare(t *testing.T) {
	oi, _ := OrderingFor(KindInt)
	assert.Equal(t, -1, oi.Compare(int64(1), int64(2)))
	assert.Equal(t, 0, oi.Compare(int64(2), int64(2)))
	assert.Equal(t, 1, oi.Compare(int64(3), int64(2)))

	of, _ := OrderingFor(KindFloat)
	assert.Equal(t, -1, of.Compare(1.5, 2.5))
	assert.Equal(t, 0, of.Compare(2.5, 2.5))
	assert.Equal(t, 1, of.Compare(3.5, 2.5))

	ot, _ := OrderingFor(KindTime)
	base := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, -1, ot.Compare(base, base.Add(time.Second)))
	assert.Equal(t, 0, ot.Compare(base, base))
	assert.Equal(t, 1, ot.Compare(base.Add(time.Second), base))
	// same instant in a different location still compares equal
	assert.Equal(t, 0, ot.Compare(base, base.In(time.FixedZone("x", 3600))))
}

func TestOrderingCloser(t *testing.T) {
	oi, _ := OrderingFor(KindInt)
	assert.True(t, oi.Closer(int64(10), int64(9), int64(7)))
	assert.False(t, oi.Closer(int64(10), int64(7), int64(9)))
	// equal distance is not closer
	assert.False(t, oi.Closer(int64(10), int64(12), int64(8)))

	of, _ := OrderingFor(KindFloat)
	assert.True(t, of.Closer(1.0, 1.25, 2.0))
	assert.False(t, of.Closer(1.0, 2.0, 1.25))

	ot, _ := OrderingFor(KindTime)
	base := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, ot.Closer(base, base.Add(time.Second), base.Add(-2*time.Second)))
	assert.False(t, ot.Closer(base, base.Add(2*time.Second), base.Add(-time.Second)))
	assert.False(t, ot.Closer(base, base.Add(time.Second), base.Add(-time.Second)))
}

func TestOrderingCloserDoesNotOverflow(t *testing.T) {
	oi, _ := OrderingFor(KindInt)
	// spans wider than int64 must still compare correctly
	assert.True(t, oi.Closer(int64(math.MaxInt64), int64(math.MaxInt64-1), int64(math.MinInt64)))
	assert.False(t, oi.Closer(int64(0), int64(math.MinInt64), int64(1)))
}

func TestOrderingValid(t *testing.T) {
	of, _ := OrderingFor(KindFloat)
	assert.True(t, of.Valid(1.0))
	assert.False(t, of.Valid(math.NaN()))

	oi, _ := OrderingFor(KindInt)
	assert.True(t, oi.Valid(int64(0)))

	ot, _ := OrderingFor(KindTime)
	assert.True(t, ot.Valid(time.Time{}))
}
