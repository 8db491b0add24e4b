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

package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

// redisStore persists entries as plain redis string values under
// <keyPrefix><store>:<key>. A SET is atomic on the server side, a concurrent
// GET sees either the old or the new value.
type redisStore struct {
	name   string
	client redis.UniversalClient
}

func (rs *redisStore) Get(ctx context.Context, key string) (*store.Entry, error) {
	b, err := rs.client.Get(ctx, rs.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrEntryNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", key, err)
	}
	return store.DecodeEntry(b)
}

func (rs *redisStore) Put(ctx context.Context, key string, entry *store.Entry) error {
	b, err := store.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := rs.client.Set(ctx, rs.entryKey(key), b, 0).Err(); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", key, err)
	}
	return nil
}

func (rs *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rs.client.Exists(ctx, rs.entryKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close is a no-op, the manager owns the client.
func (rs *redisStore) Close() error {
	return nil
}

func (rs *redisStore) entryKey(key string) string {
	return keyPrefix + rs.name + ":" + key
}
