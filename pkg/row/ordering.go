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
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrKindNotOrdered is returned when a kind without a temporal or numeric
	// order is used where ordering is required.
	ErrKindNotOrdered = errors.New("kind has no temporal or numeric order")
)

// Ordering compares values of a single orderable kind. It is resolved once
// when a joiner is built, so per-row comparisons are a plain switch without
// re-validating types.
type Ordering struct {
	kind Kind
}

// OrderingFor returns the ordering of the given kind, or ErrKindNotOrdered
// if values of the kind cannot be ordered on a time axis.
func OrderingFor(k Kind) (*Ordering, error) {
	if !k.Orderable() {
		return nil, fmt.Errorf("%w: %q", ErrKindNotOrdered, k)
	}
	return &Ordering{kind: k}, nil
}

// Kind returns the kind the ordering operates on.
func (o *Ordering) Kind() Kind {
	return o.kind
}

// Compare returns -1, 0 or 1 as a is before, equal to, or after b. Both
// values must carry the ordering's kind.
func (o *Ordering) Compare(a, b interface{}) int {
	switch o.kind {
	case KindInt:
		x, y := a.(int64), b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case KindFloat:
		x, y := a.(float64), b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case KindTime:
		x, y := a.(time.Time), b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("ordering over non-orderable kind %q", o.kind))
	}
}

// Closer reports whether x is strictly closer to target than y is. Used to
// decide between the backward and the forward candidate of a nearest lookup,
// where a tie must not report the forward side as closer.
func (o *Ordering) Closer(target, x, y interface{}) bool {
	switch o.kind {
	case KindInt:
		return absDiffInt64(target.(int64), x.(int64)) < absDiffInt64(target.(int64), y.(int64))
	case KindFloat:
		return math.Abs(target.(float64)-x.(float64)) < math.Abs(target.(float64)-y.(float64))
	case KindTime:
		return absDuration(target.(time.Time), x.(time.Time)) < absDuration(target.(time.Time), y.(time.Time))
	default:
		panic(fmt.Sprintf("ordering over non-orderable kind %q", o.kind))
	}
}

// Valid reports whether v is usable on the time axis. Only float NaN is
// excluded, it has no place in a total order.
func (o *Ordering) Valid(v interface{}) bool {
	if o.kind == KindFloat {
		return !math.IsNaN(v.(float64))
	}
	return true
}

// absDiffInt64 is overflow-safe for any pair of int64 values.
func absDiffInt64(a, b int64) uint64 {
	if a < b {
		a, b = b, a
	}
	return uint64(a) - uint64(b)
}

func absDuration(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
