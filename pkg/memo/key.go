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

package memo

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// CacheKey derives the content address of one invocation: the function
// identity plus the ordered arguments. The encoding is canonical, the same
// fnID and argument values produce the same key in any process on any
// platform, which is what lets a durable store deduplicate invocations
// across restarts. Arguments must be one of bool, int64, float64, string,
// []byte or time.Time. Times hash by instant, the zone does not matter.
func CacheKey(fnID string, args []interface{}) (string, error) {
	h := sha256.New()
	var scratch [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(v))
		h.Write(scratch[:])
	}

	writeInt(int64(len(fnID)))
	h.Write([]byte(fnID))
	writeInt(int64(len(args)))

	for i, a := range args {
		switch v := a.(type) {
		case bool:
			h.Write([]byte{'b'})
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case int64:
			h.Write([]byte{'i'})
			writeInt(v)
		case float64:
			h.Write([]byte{'f'})
			writeInt(int64(math.Float64bits(v)))
		case string:
			h.Write([]byte{'s'})
			writeInt(int64(len(v)))
			h.Write([]byte(v))
		case []byte:
			h.Write([]byte{'y'})
			writeInt(int64(len(v)))
			h.Write(v)
		case time.Time:
			h.Write([]byte{'t'})
			writeInt(v.UnixNano())
		default:
			return "", fmt.Errorf("%w: argument %d is %T", ErrUnsupportedArgType, i, a)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
