package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genai"
)

// retry runs the operation with exponential backoff. retries is the number of
// additional attempts after the first; zero disables retrying.
func retry[T any](ctx context.Context, operation backoff.Operation[T], retries int) (T, error) {
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(retries+1)),
	)
}

// retryable classifies a provider error. Rate limits and server-side failures
// are transient; anything else, credential failures included, is permanent.
func retryable(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
		return err
	}

	return backoff.Permanent(err)
}
