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
)

var (
	// ErrFieldNotFound is returned when a referenced field name is not part of the schema.
	ErrFieldNotFound = errors.New("field not found in schema")
)

// Field is a named, typed column of a schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered, immutable set of fields. Field names are unique.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema out of the given fields. Field names must be
// non-empty and unique.
func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema needs at least one field")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field at position %d has an empty name", i)
		}
		if _, ok := index[f.Name]; ok {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{fields: append([]Field(nil), fields...), index: index}, nil
}

// Fields returns the fields in schema order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// FieldAt returns the field at position i.
func (s *Schema) FieldAt(i int) Field {
	return s.fields[i]
}

// Lookup returns the position of the named field.
func (s *Schema) Lookup(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return i, nil
}

// Equal reports whether the two schemas have the same fields in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		if other.fields[i] != f {
			return false
		}
	}
	return true
}

// Concat returns a schema holding this schema's fields followed by the other
// schema's fields. Name collisions on the other side are prefixed.
func (s *Schema) Concat(other *Schema, collisionPrefix string) (*Schema, error) {
	fields := s.Fields()
	for _, f := range other.fields {
		if _, taken := s.index[f.Name]; taken {
			f.Name = collisionPrefix + f.Name
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}
