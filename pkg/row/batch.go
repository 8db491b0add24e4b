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
)

// Row is one record of a batch. Values are positional and aligned with the
// batch schema.
type Row struct {
	values []interface{}
}

// ValueAt returns the value at field position i.
func (r Row) ValueAt(i int) interface{} {
	return r.values[i]
}

// Values returns a copy of all values in schema order.
func (r Row) Values() []interface{} {
	return append([]interface{}(nil), r.values...)
}

// Len returns the number of values.
func (r Row) Len() int {
	return len(r.values)
}

// Batch is a bounded, ordered collection of rows sharing one schema. The
// position of a row in the batch is its arrival order, which stays stable
// for the lifetime of the batch.
type Batch struct {
	schema *Schema
	rows   []Row
}

// NewBatch returns an empty batch over the given schema.
func NewBatch(schema *Schema) *Batch {
	return &Batch{schema: schema}
}

// Schema returns the schema shared by all rows of the batch.
func (b *Batch) Schema() *Schema {
	return b.schema
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	return len(b.rows)
}

// Row returns the row at arrival position i.
func (b *Batch) Row(i int) Row {
	return b.rows[i]
}

// Append validates the values against the schema and appends them as a new
// row. Values must be given in schema order and carry the Go type of their
// field kind.
func (b *Batch) Append(values ...interface{}) error {
	if len(values) != b.schema.Len() {
		return fmt.Errorf("expected %d values, got %d", b.schema.Len(), len(values))
	}
	for i, v := range values {
		f := b.schema.FieldAt(i)
		if err := f.Kind.CheckValue(v); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	b.rows = append(b.rows, Row{values: append([]interface{}(nil), values...)})
	return nil
}

// MustAppend appends like Append and panics on a schema mismatch. Meant for
// fixtures and tests where the values are known good.
func (b *Batch) MustAppend(values ...interface{}) {
	if err := b.Append(values...); err != nil {
		panic(err)
	}
}
