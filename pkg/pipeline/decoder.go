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

package pipeline

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/tempoproj/tempoflow/pkg/row"
)

// Decoder turns one applier payload into the value of the enrich stage's
// result field.
type Decoder func(payload []byte) (interface{}, error)

// DecoderFor returns the default decoder of a result kind. Bytes pass the
// payload through, strings take it as text, the remaining kinds parse the
// trimmed payload text: bool and numbers via strconv, times as RFC3339Nano.
func DecoderFor(k row.Kind) (Decoder, error) {
	switch k {
	case row.KindBytes:
		return func(payload []byte) (interface{}, error) {
			if payload == nil {
				payload = []byte{}
			}
			return payload, nil
		}, nil
	case row.KindString:
		return func(payload []byte) (interface{}, error) {
			return string(payload), nil
		}, nil
	case row.KindBool:
		return func(payload []byte) (interface{}, error) {
			return strconv.ParseBool(trimmed(payload))
		}, nil
	case row.KindInt:
		return func(payload []byte) (interface{}, error) {
			return strconv.ParseInt(trimmed(payload), 10, 64)
		}, nil
	case row.KindFloat:
		return func(payload []byte) (interface{}, error) {
			return strconv.ParseFloat(trimmed(payload), 64)
		}, nil
	case row.KindTime:
		return func(payload []byte) (interface{}, error) {
			return time.Parse(time.RFC3339Nano, trimmed(payload))
		}, nil
	default:
		return nil, fmt.Errorf("no default decoder for kind %q", k)
	}
}

func trimmed(payload []byte) string {
	return string(bytes.TrimSpace(payload))
}
