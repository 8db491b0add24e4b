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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// maxLineSize caps a single JSON line on read.
const maxLineSize = 16 * 1024 * 1024

// ReadBatch reads newline-delimited JSON objects into a batch over the given
// schema. Fields not named by the schema are ignored, missing or null schema
// fields are an error. Row order in the batch follows line order.
func ReadBatch(r io.Reader, schema *Schema) (*Batch, error) {
	batch := NewBatch(schema)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		values := make([]interface{}, schema.Len())
		for i := 0; i < schema.Len(); i++ {
			f := schema.FieldAt(i)
			rv, ok := raw[f.Name]
			if !ok || string(rv) == "null" {
				return nil, fmt.Errorf("line %d: field %q is missing", lineNo, f.Name)
			}
			v, err := decodeValue(f.Kind, rv)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %q: %w", lineNo, f.Name, err)
			}
			values[i] = v
		}
		if err := batch.Append(values...); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return batch, nil
}

func decodeValue(k Kind, raw json.RawMessage) (interface{}, error) {
	switch k {
	case KindBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", n.String())
		}
		return v, nil
	case KindFloat:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindBytes:
		var v []byte
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindTime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unhandled kind %q", k)
	}
}

// WriteBatch writes the batch as newline-delimited JSON objects with fields
// in schema order. The output round-trips through ReadBatch with the same
// schema.
func WriteBatch(w io.Writer, b *Batch) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < b.Len(); i++ {
		if err := writeRow(bw, b.Schema(), b.Row(i)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, schema *Schema, r Row) error {
	w.WriteByte('{')
	for i := 0; i < schema.Len(); i++ {
		if i > 0 {
			w.WriteByte(',')
		}
		name, err := json.Marshal(schema.FieldAt(i).Name)
		if err != nil {
			return err
		}
		w.Write(name)
		w.WriteByte(':')
		v := r.ValueAt(i)
		// a nil byte slice would render as JSON null, which the reader rejects
		if bs, ok := v.([]byte); ok && bs == nil {
			v = []byte{}
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(val)
	}
	w.WriteByte('}')
	return w.WriteByte('\n')
}
