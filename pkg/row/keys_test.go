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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyFuncFor(t *testing.T) {
	s, err := NewSchema(
		Field{Name: "symbol", Kind: KindString},
		Field{Name: "venue", Kind: KindString},
		Field{Name: "at", Kind: KindTime},
	)
	assert.NoError(t, err)

	key, err := s.KeyFuncFor([]string{"symbol", "venue"})
	assert.NoError(t, err)

	b := NewBatch(s)
	at := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, b.Append("AAA", "X", at))
	assert.NoError(t, b.Append("AAA", "X", at.Add(time.Hour)))
	assert.NoError(t, b.Append("AAA", "Y", at))

	assert.Equal(t, key(b.Row(0)), key(b.Row(1)))
	assert.NotEqual(t, key(b.Row(0)), key(b.Row(2)))
}

func TestKeyFuncForUnknownField(t *testing.T) {
	s, _ := NewSchema(Field{Name: "a", Kind: KindInt})
	_, err := s.KeyFuncFor([]string{"missing"})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestKeyFuncForEmptyIsConstant(t *testing.T) {
	s, _ := NewSchema(Field{Name: "a", Kind: KindInt})
	key, err := s.KeyFuncFor(nil)
	assert.NoError(t, err)
	b := NewBatch(s)
	assert.NoError(t, b.Append(int64(1)))
	assert.NoError(t, b.Append(int64(2)))
	assert.Equal(t, key(b.Row(0)), key(b.Row(1)))
}

func TestKeyFuncSeparatorIsUnambiguous(t *testing.T) {
	s, _ := NewSchema(
		Field{Name: "a", Kind: KindString},
		Field{Name: "b", Kind: KindString},
	)
	key, err := s.KeyFuncFor([]string{"a", "b"})
	assert.NoError(t, err)

	batch := NewBatch(s)
	// ("x|y", "z") must not collide with ("x", "y|z")
	assert.NoError(t, batch.Append("x|y", "z"))
	assert.NoError(t, batch.Append("x", "y|z"))
	assert.NotEqual(t, key(batch.Row(0)), key(batch.Row(1)))
}

func TestKeyFuncKindsDoNotCollide(t *testing.T) {
	si, _ := NewSchema(Field{Name: "k", Kind: KindInt})
	ss, _ := NewSchema(Field{Name: "k", Kind: KindString})
	keyInt, _ := si.KeyFuncFor([]string{"k"})
	keyStr, _ := ss.KeyFuncFor([]string{"k"})

	bi := NewBatch(si)
	assert.NoError(t, bi.Append(int64(7)))
	bs := NewBatch(ss)
	assert.NoError(t, bs.Append("7"))

	assert.NotEqual(t, keyInt(bi.Row(0)), keyStr(bs.Row(0)))
}

func TestKeyFuncTimeUsesInstant(t *testing.T) {
	s, _ := NewSchema(Field{Name: "at", Kind: KindTime})
	key, _ := s.KeyFuncFor([]string{"at"})

	at := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBatch(s)
	assert.NoError(t, b.Append(at))
	assert.NoError(t, b.Append(at.In(time.FixedZone("offset", 3600))))
	assert.Equal(t, key(b.Row(0)), key(b.Row(1)))
}
