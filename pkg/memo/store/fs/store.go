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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

const (
	// EntrySuffix is the file name suffix of published entries.
	EntrySuffix = ".entry"
	// tmpPrefix is the file name prefix of entries not yet published. A
	// crash can leave them behind, they are never read back.
	tmpPrefix = "tmp-"
)

// fsStore persists one entry per file under <root>/<store>/<bucket>/. An
// entry becomes visible through a rename, so readers only ever observe
// complete files. This store is write once read many, an entry is rewritten
// only to replace a corrupt or invalidated outcome.
type fsStore struct {
	name       string
	dir        string
	syncWrites bool
	mu         sync.RWMutex
	closed     bool
	log        *zap.SugaredLogger
}

func (fss *fsStore) Get(_ context.Context, key string) (*store.Entry, error) {
	fss.mu.RLock()
	defer fss.mu.RUnlock()
	if fss.closed {
		return nil, store.ErrStoreClosed
	}
	b, err := os.ReadFile(fss.entryPath(key))
	if os.IsNotExist(err) {
		return nil, store.ErrEntryNotFound
	} else if err != nil {
		fss.incErr("read")
		return nil, fmt.Errorf("failed to read entry %s: %w", key, err)
	}
	entry, err := store.DecodeEntry(b)
	if err != nil {
		fss.incErr("decode")
		fss.log.Warnw("Entry failed decode", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func (fss *fsStore) Put(_ context.Context, key string, entry *store.Entry) (err error) {
	fss.mu.RLock()
	defer fss.mu.RUnlock()
	if fss.closed {
		return store.ErrStoreClosed
	}
	defer func() {
		if err != nil {
			fss.incErr("write")
		}
	}()
	writeStart := time.Now()

	b, err := store.EncodeEntry(entry)
	if err != nil {
		return err
	}
	final := fss.entryPath(key)
	bucketDir := filepath.Dir(final)
	if err = os.MkdirAll(bucketDir, 0o755); err != nil {
		return fmt.Errorf("failed to create bucket dir %s: %w", bucketDir, err)
	}

	// write the full entry to a temp file, then publish it with a rename so
	// a reader never sees a partial write
	tmp := filepath.Join(bucketDir, tmpPrefix+uuid.New().String())
	fp, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp entry file: %w", err)
	}
	wrote, err := fp.Write(b)
	if err == nil && wrote != len(b) {
		err = fmt.Errorf("expected to write %d, but wrote only %d", len(b), wrote)
	}
	if err == nil && fss.syncWrites {
		fSyncStart := time.Now()
		err = fp.Sync()
		fileSyncWaitTime.With(map[string]string{
			metricspkg.LabelStore: fss.name,
		}).Observe(float64(time.Since(fSyncStart).Milliseconds()))
	}
	if closeErr := fp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp entry file: %w", err)
	}
	if err = os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish entry %s: %w", key, err)
	}

	entriesCount.With(map[string]string{
		metricspkg.LabelStore: fss.name,
	}).Inc()
	entryWriteTime.With(map[string]string{
		metricspkg.LabelStore: fss.name,
	}).Observe(float64(time.Since(writeStart).Milliseconds()))
	return nil
}

func (fss *fsStore) Exists(_ context.Context, key string) (bool, error) {
	fss.mu.RLock()
	defer fss.mu.RUnlock()
	if fss.closed {
		return false, store.ErrStoreClosed
	}
	_, err := os.Stat(fss.entryPath(key))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (fss *fsStore) Close() error {
	fss.mu.Lock()
	defer fss.mu.Unlock()
	fss.closed = true
	return nil
}

// entryPath buckets entries by the leading characters of the key to keep
// directory fan-out bounded. Cache keys are fixed-length hex, so the buckets
// spread evenly.
func (fss *fsStore) entryPath(key string) string {
	bucket := key
	if len(key) >= 2 {
		bucket = key[:2]
	}
	return filepath.Join(fss.dir, bucket, key+EntrySuffix)
}

func (fss *fsStore) incErr(kind string) {
	storeErrors.With(map[string]string{
		metricspkg.LabelStore: fss.name,
		labelErrorKind:        kind,
	}).Inc()
}
