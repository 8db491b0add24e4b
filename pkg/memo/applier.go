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

package memo

import (
	"context"
)

// Applier computes the result of one invocation. The cache calls it only on
// a miss, an Applier for a given function identity must be deterministic in
// its arguments for memoization to be sound.
type Applier interface {
	Apply(ctx context.Context, args []interface{}) ([]byte, error)
}

// ApplyFunc utility function used to create an Applier implementation
type ApplyFunc func(ctx context.Context, args []interface{}) ([]byte, error)

func (a ApplyFunc) Apply(ctx context.Context, args []interface{}) ([]byte, error) {
	return a(ctx, args)
}
