// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryDelay is the fixed wait between attempts when the transport
// fails outright. Tests override this to avoid real sleeps.
var RetryDelay = 15 * time.Second

const defaultMaxAttempts = 5

// DoWithRetry executes an HTTP request and retries on transport
// failure (no response at all) with a fixed backoff. HTTP error
// statuses are not retried here; the caller classifies them.
//
// When maxAttempts is 0 the default (5) is used. A warning line is
// written to w for each failed attempt. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After
// exhausting attempts the last transport error is returned so the
// caller can fall back to interactive remediation or skip.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int, w io.Writer) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}
		resp, err := client.Do(attemptReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		fmt.Fprintf(w, "warning: request to %s failed, retrying in %v (attempt %d/%d): %v\n",
			req.URL, RetryDelay, attempt, maxAttempts, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(RetryDelay):
		}
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", req.URL, maxAttempts, lastErr)
}
