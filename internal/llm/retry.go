package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auroraseo/clinicgraph/internal/metrics"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// retryableError marks provider failures worth retrying (429 and 5xx).
type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func retryable(err error) error {
	return retryableError{err: err}
}

// RetryingClient wraps a Client with bounded exponential backoff and metrics.
type RetryingClient struct {
	inner    Client
	log      *logger.Logger
	attempts int
	baseWait time.Duration
}

// NewRetryingClient wraps inner with up to three attempts per call.
func NewRetryingClient(inner Client, log *logger.Logger) *RetryingClient {
	if log == nil {
		log = logger.NewDefault("llm")
	}
	return &RetryingClient{
		inner:    inner,
		log:      log,
		attempts: 3,
		baseWait: time.Second,
	}
}

func (c *RetryingClient) Provider() string { return c.inner.Provider() }

func (c *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	wait := c.baseWait

	for attempt := 1; attempt <= c.attempts; attempt++ {
		start := time.Now()
		resp, err := c.inner.Complete(ctx, req)
		if err == nil {
			metrics.RecordLLMCall(c.inner.Provider(), "ok", time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			return resp, nil
		}
		metrics.RecordLLMCall(c.inner.Provider(), "error", time.Since(start), 0, 0)
		lastErr = err

		var re retryableError
		if !errors.As(err, &re) {
			return Response{}, err
		}

		if attempt == c.attempts {
			break
		}
		c.log.WithError(err).
			WithField("provider", c.inner.Provider()).
			WithField("attempt", attempt).
			Warn("llm call failed, retrying")

		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return Response{}, fmt.Errorf("llm call failed after %d attempts: %w", c.attempts, lastErr)
}
