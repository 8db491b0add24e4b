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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

type fsStores struct {
	root string
	opts *options
}

// NewStores returns a file system backed store manager rooted at dir. Stores
// survive process restarts, an entry written before a crash is served after
// the next start.
func NewStores(dir string, opts ...Option) (store.Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("root dir is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			if err := opt(o); err != nil {
				return nil, err
			}
		}
	}
	return &fsStores{
		root: dir,
		opts: o,
	}, nil
}

func (fs *fsStores) CreateStore(ctx context.Context, name string) (store.Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(fs.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir %s: %w", dir, err)
	}
	if err := sweepTemps(dir); err != nil {
		return nil, fmt.Errorf("failed to sweep store dir %s: %w", dir, err)
	}
	return &fsStore{
		name:       name,
		dir:        dir,
		syncWrites: fs.opts.syncWrites,
		log:        logging.FromContext(ctx).With("memoStore", "fs").With("storeName", name),
	}, nil
}

func (fs *fsStores) DiscoverStores(_ context.Context) ([]string, error) {
	files, err := os.ReadDir(fs.root)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, f := range files {
		if f.IsDir() {
			names = append(names, f.Name())
		}
	}
	return names, nil
}

func (fs *fsStores) DeleteStore(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(fs.root, name))
}

// validateName rejects names that would escape the root dir.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}
	return nil
}

// sweepTemps removes unpublished temp files a crashed writer left behind.
// They were never visible to readers, removing them only reclaims space.
func sweepTemps(dir string) error {
	buckets, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, bucket.Name()))
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasPrefix(f.Name(), tmpPrefix) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, bucket.Name(), f.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
