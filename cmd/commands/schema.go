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

package commands

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tempoproj/tempoflow/pkg/row"
)

// parseSchema turns "name:kind" specs into a schema, keeping the given order.
func parseSchema(specs []string) (*row.Schema, error) {
	fields := make([]row.Field, 0, len(specs))
	for _, s := range specs {
		f, err := parseField(s)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return row.NewSchema(fields...)
}

func parseField(spec string) (row.Field, error) {
	name, kindName, found := strings.Cut(spec, ":")
	if !found || name == "" {
		return row.Field{}, fmt.Errorf("invalid field spec %q, expected name:kind", spec)
	}
	kind, err := row.ParseKind(kindName)
	if err != nil {
		return row.Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	return row.Field{Name: name, Kind: kind}, nil
}

// parseDefaults turns "field=value" specs into typed fill values. The value
// text is parsed by the kind of the named field, resolved against the other
// schema first because defaults usually fill the unmatched other side.
func parseDefaults(self, other *row.Schema, specs []string) (map[string]interface{}, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	defaults := make(map[string]interface{}, len(specs))
	for _, s := range specs {
		name, text, found := strings.Cut(s, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid default %q, expected field=value", s)
		}
		var kind row.Kind
		if p, err := other.Lookup(name); err == nil {
			kind = other.FieldAt(p).Kind
		} else if p, err := self.Lookup(name); err == nil {
			kind = self.FieldAt(p).Kind
		} else {
			return nil, fmt.Errorf("default value: %w: %q", row.ErrFieldNotFound, name)
		}
		v, err := parseValue(kind, text)
		if err != nil {
			return nil, fmt.Errorf("default %q: %w", name, err)
		}
		defaults[name] = v
	}
	return defaults, nil
}

// parseValue parses the text form of one field value. Bytes are base64,
// times are RFC3339, matching the JSON line representation.
func parseValue(kind row.Kind, text string) (interface{}, error) {
	switch kind {
	case row.KindBool:
		return strconv.ParseBool(text)
	case row.KindInt:
		return strconv.ParseInt(text, 10, 64)
	case row.KindFloat:
		return strconv.ParseFloat(text, 64)
	case row.KindString:
		return text, nil
	case row.KindBytes:
		return base64.StdEncoding.DecodeString(text)
	case row.KindTime:
		return time.Parse(time.RFC3339Nano, text)
	default:
		return nil, fmt.Errorf("unhandled kind %q", kind)
	}
}

// readBatchFile reads newline delimited JSON rows, "-" reads the command's
// stdin.
func readBatchFile(cmd *cobra.Command, path string, schema *row.Schema) (*row.Batch, error) {
	if path == "" {
		return nil, fmt.Errorf("input file is required")
	}
	if path == "-" {
		return row.ReadBatch(cmd.InOrStdin(), schema)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := row.ReadBatch(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// writeBatchFile writes newline delimited JSON rows, "-" writes to the
// command's stdout.
func writeBatchFile(cmd *cobra.Command, path string, batch *row.Batch) error {
	if path == "-" {
		return row.WriteBatch(cmd.OutOrStdout(), batch)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := row.WriteBatch(f, batch); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
