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

package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

// Walk visits every published entry of the named store below root in key
// order, decoding each one. Undecodable entries are reported through
// decodeErr with a nil entry instead of stopping the walk, so a caller can
// count corruption. The walk stops early when fn returns an error.
func Walk(root, name string, fn func(key string, entry *store.Entry, decodeErr error) error) error {
	dir := filepath.Join(root, name)
	buckets, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read store dir %s: %w", dir, err)
	}
	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, bucket.Name()))
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(files))
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), EntrySuffix) {
				continue
			}
			keys = append(keys, strings.TrimSuffix(f.Name(), EntrySuffix))
		}
		sort.Strings(keys)
		for _, key := range keys {
			b, err := os.ReadFile(filepath.Join(dir, bucket.Name(), key+EntrySuffix))
			if err != nil {
				return fmt.Errorf("failed to read entry %s: %w", key, err)
			}
			entry, decodeErr := store.DecodeEntry(b)
			if err := fn(key, entry, decodeErr); err != nil {
				return err
			}
		}
	}
	return nil
}
