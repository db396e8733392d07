package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"

	"github.com/huangsam/prstats/internal/contract"
)

// maxRetries bounds retries of one API call.
const maxRetries = 3

// newBackOff returns the retry schedule for transient failures.
func newBackOff(ctx context.Context, initial time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// withRetry runs call until it succeeds, fails permanently or runs out of retries.
// Server errors and secondary rate limits are retried; everything else is final.
func (p *Provider) withRetry(ctx context.Context, what string, call func() (*github.Response, error)) error {
	op := func() error {
		_, err := call()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		contract.Logger.WithError(err).Debugf("retrying %s", what)
		return err
	}
	if err := backoff.Retry(op, newBackOff(ctx, p.retryInterval)); err != nil {
		return fmt.Errorf("%s: %w", what, describe(err))
	}
	return nil
}

func isTransient(err error) bool {
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		return resp.Response.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// describe prefixes err with the HTTP status so the cause is visible without the request log.
func describe(err error) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("403 rate limit exceeded, resets at %s: %w", rle.Rate.Reset.Format(time.RFC3339), err)
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return fmt.Errorf("403 secondary rate limit: %w", err)
	}
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		code := resp.Response.StatusCode
		hint := ""
		switch code {
		case http.StatusUnauthorized:
			hint = ". Check that the token is valid"
		case http.StatusNotFound:
			hint = ". Check the repository name and that the token can read it"
		}
		return fmt.Errorf("%d %s%s: %w", code, http.StatusText(code), hint, err)
	}
	return err
}
