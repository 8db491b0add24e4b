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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyFunc renders the canonical key string of a row over a fixed set of
// fields. Two rows yield the same string exactly when all key fields are
// equal, so the string is safe to group and to hash on.
type KeyFunc func(Row) string

// KeyFuncFor resolves the named key fields against the schema and returns a
// KeyFunc over them. An empty field list yields a constant key, putting all
// rows into one group.
func (s *Schema) KeyFuncFor(names []string) (KeyFunc, error) {
	if len(names) == 0 {
		return func(Row) string { return "" }, nil
	}
	positions := make([]int, len(names))
	kinds := make([]Kind, len(names))
	for i, name := range names {
		p, err := s.Lookup(name)
		if err != nil {
			return nil, err
		}
		positions[i] = p
		kinds[i] = s.FieldAt(p).Kind
	}
	return func(r Row) string {
		var sb strings.Builder
		for i, p := range positions {
			if i > 0 {
				sb.WriteByte('|')
			}
			writeCanonical(&sb, kinds[i], r.ValueAt(p))
		}
		return sb.String()
	}, nil
}

// writeCanonical writes one value in a form that cannot collide across kinds
// or across values. Variable-length kinds are length-prefixed so the field
// separator stays unambiguous.
func writeCanonical(sb *strings.Builder, k Kind, v interface{}) {
	switch k {
	case KindBool:
		sb.WriteString("b:")
		sb.WriteString(strconv.FormatBool(v.(bool)))
	case KindInt:
		sb.WriteString("i:")
		sb.WriteString(strconv.FormatInt(v.(int64), 10))
	case KindFloat:
		sb.WriteString("f:")
		sb.WriteString(strconv.FormatFloat(v.(float64), 'g', -1, 64))
	case KindString:
		s := v.(string)
		sb.WriteString("s:")
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	case KindBytes:
		sb.WriteString("y:")
		sb.WriteString(hex.EncodeToString(v.([]byte)))
	case KindTime:
		sb.WriteString("t:")
		sb.WriteString(strconv.FormatInt(v.(time.Time).UnixNano(), 10))
	default:
		panic(fmt.Sprintf("unhandled kind %q", k))
	}
}
