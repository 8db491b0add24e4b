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
	"fmt"
	"time"
)

// Kind is the value type of a schema field. Values of a field always carry the
// Go type listed next to the kind.
type Kind int

const (
	KindBool   Kind = iota // bool
	KindInt                // int64
	KindFloat              // float64
	KindString             // string
	KindBytes              // []byte
	KindTime               // time.Time
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name as used in schema files.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "bytes":
		return KindBytes, nil
	case "time":
		return KindTime, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

// Orderable returns true if values of the kind have a total temporal or
// numeric order, which is what an asof timestamp column requires.
func (k Kind) Orderable() bool {
	switch k {
	case KindInt, KindFloat, KindTime:
		return true
	default:
		return false
	}
}

// ZeroValue returns the zero value carried by fields of the kind.
func (k Kind) ZeroValue() interface{} {
	switch k {
	case KindBool:
		return false
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindString:
		return ""
	case KindBytes:
		return []byte(nil)
	case KindTime:
		return time.Time{}
	default:
		return nil
	}
}

// CheckValue verifies that v carries the Go type of the kind.
func (k Kind) CheckValue(v interface{}) error {
	var ok bool
	switch k {
	case KindBool:
		_, ok = v.(bool)
	case KindInt:
		_, ok = v.(int64)
	case KindFloat:
		_, ok = v.(float64)
	case KindString:
		_, ok = v.(string)
	case KindBytes:
		_, ok = v.([]byte)
	case KindTime:
		_, ok = v.(time.Time)
	}
	if !ok {
		return fmt.Errorf("value %T is not assignable to kind %q", v, k)
	}
	return nil
}
