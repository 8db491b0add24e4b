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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"k8s.io/apimachinery/pkg/util/wait"

	sharedutil "github.com/tempoproj/tempoflow/pkg/shared/util"
)

// HTTPApplier computes results by POSTing the JSON encoded argument list to
// an endpoint and returning the response body as the payload. Transport
// errors and 5xx responses are retried with backoff, any other non-2xx
// response fails the invocation immediately.
type HTTPApplier struct {
	endpoint string
	client   *http.Client
	backoff  wait.Backoff
}

type httpOptions struct {
	timeout time.Duration
	backoff wait.Backoff
}

// HTTPOption is the HTTP applier options.
type HTTPOption func(o *httpOptions) error

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", d)
		}
		o.timeout = d
		return nil
	}
}

// WithRetryBackoff sets the backoff used for retryable responses.
func WithRetryBackoff(b wait.Backoff) HTTPOption {
	return func(o *httpOptions) error {
		o.backoff = b
		return nil
	}
}

// NewHTTPApplier returns an applier calling the given endpoint.
func NewHTTPApplier(endpoint string, opts ...HTTPOption) (*HTTPApplier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	o := &httpOptions{
		timeout: time.Second * 10,
		backoff: sharedutil.DefaultRetryBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			if err := opt(o); err != nil {
				return nil, err
			}
		}
	}
	return &HTTPApplier{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: o.timeout,
		},
		backoff: o.backoff,
	}, nil
}

func (h *HTTPApplier) Apply(ctx context.Context, args []interface{}) ([]byte, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	var payload []byte
	var lastErr error
	err = wait.ExponentialBackoff(h.backoff, func() (done bool, err error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err
			return false, nil
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = err
			return false, nil
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			payload = b
			return true, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
			return false, nil
		default:
			return false, fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
	})
	if err != nil {
		if wait.Interrupted(err) && lastErr != nil {
			return nil, fmt.Errorf("retries exhausted: %w", lastErr)
		}
		return nil, err
	}
	return payload, nil
}
