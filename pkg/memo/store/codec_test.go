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

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryCodecRoundTrip(t *testing.T) {
	createdAt := time.Unix(1636470000, 0).UTC()

	tests := []struct {
		name  string
		entry *Entry
	}{
		{
			name: "result entry",
			entry: &Entry{
				FnID:      "lookup_profile",
				Payload:   []byte(`{"tier":"gold"}`),
				Valid:     true,
				CreatedAt: createdAt,
			},
		},
		{
			name: "failure entry",
			entry: &Entry{
				FnID:      "lookup_profile",
				Payload:   []byte("upstream returned 503"),
				Valid:     false,
				CreatedAt: createdAt,
			},
		},
		{
			name: "empty payload",
			entry: &Entry{
				FnID:      "noop",
				Valid:     true,
				CreatedAt: createdAt,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodeEntry(tt.entry)
			assert.NoError(t, err)
			got, err := DecodeEntry(b)
			assert.NoError(t, err)
			assert.Equal(t, tt.entry.FnID, got.FnID)
			assert.Equal(t, tt.entry.Valid, got.Valid)
			assert.Equal(t, createdAt, got.CreatedAt)
			if len(tt.entry.Payload) == 0 {
				assert.Empty(t, got.Payload)
			} else {
				assert.Equal(t, tt.entry.Payload, got.Payload)
			}
		})
	}
}

func TestDecodeEntryCorruption(t *testing.T) {
	entry := &Entry{
		FnID:      "lookup_profile",
		Payload:   []byte("payload bytes"),
		Valid:     true,
		CreatedAt: time.Unix(1636470000, 0).UTC(),
	}
	good, err := EncodeEntry(entry)
	assert.NoError(t, err)

	t.Run("truncated header", func(t *testing.T) {
		_, err := DecodeEntry(good[:10])
		assert.ErrorIs(t, err, ErrEntryCorrupt)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := DecodeEntry(good[:len(good)-3])
		assert.ErrorIs(t, err, ErrEntryCorrupt)
	})

	t.Run("flipped body byte", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[len(bad)-1] ^= 0xff
		_, err := DecodeEntry(bad)
		assert.ErrorIs(t, err, ErrEntryCorrupt)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		bad := append(append([]byte{}, good...), 0x00)
		_, err := DecodeEntry(bad)
		assert.ErrorIs(t, err, ErrEntryCorrupt)
	})

	t.Run("empty buffer", func(t *testing.T) {
		_, err := DecodeEntry(nil)
		assert.ErrorIs(t, err, ErrEntryCorrupt)
	})
}

func TestDecodeEntryDoesNotAliasInput(t *testing.T) {
	entry := &Entry{
		FnID:      "fn",
		Payload:   []byte("aaaa"),
		Valid:     true,
		CreatedAt: time.Unix(1636470000, 0).UTC(),
	}
	b, err := EncodeEntry(entry)
	assert.NoError(t, err)
	got, err := DecodeEntry(b)
	assert.NoError(t, err)
	b[len(b)-1] = 'z'
	assert.Equal(t, []byte("aaaa"), got.Payload)
}
