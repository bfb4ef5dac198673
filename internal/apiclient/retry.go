// Package apiclient holds the request plumbing shared by the Story Tracker,
// Review System and deploy clients.
package apiclient

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// DefaultRetryMaxElapsed bounds the retries of a single read request
const DefaultRetryMaxElapsed = 30 * time.Second

// IsRetryable is true for transport failures and 429/5xx responses
func IsRetryable(err error) bool {
	var apiErr *flowerrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Retry runs op with exponential backoff until it succeeds, fails with a
// non-retryable error, or maxElapsed passes. Only wrap idempotent requests.
func Retry(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	if maxElapsed <= 0 {
		return op()
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}
