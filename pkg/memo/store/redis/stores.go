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
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
)

const (
	keyPrefix = "tempoflow:memo:"
	// scanCount is the COUNT hint passed to SCAN, also the DEL batch size.
	scanCount = 100
)

type redisStores struct {
	client redis.UniversalClient
}

// NewStores returns a redis backed store manager on top of the given client.
// The caller keeps ownership of the client.
func NewStores(client redis.UniversalClient) store.Manager {
	return &redisStores{
		client: client,
	}
}

// NewStoresFromURL builds a client from a redis URL and returns a manager
// owning it, Close on the manager closes the client.
func NewStoresFromURL(url string) (store.Manager, func() error, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return NewStores(client), client.Close, nil
}

func (rs *redisStores) CreateStore(_ context.Context, name string) (store.Store, error) {
	if name == "" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}
	return &redisStore{
		name:   name,
		client: rs.client,
	}, nil
}

func (rs *redisStores) DiscoverStores(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	iter := rs.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), keyPrefix)
		if i := strings.IndexByte(rest, ':'); i > 0 {
			seen[rest[:i]] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (rs *redisStores) DeleteStore(ctx context.Context, name string) error {
	if name == "" || strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}
	keys := make([]string, 0, scanCount)
	iter := rs.client.Scan(ctx, 0, keyPrefix+name+":*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanCount {
			if err := rs.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return rs.client.Del(ctx, keys...).Err()
	}
	return nil
}
