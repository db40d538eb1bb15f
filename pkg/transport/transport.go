package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// Ack is the server acknowledgement for a delivered submission.
type Ack struct {
	ID string
}

// EndpointClient delivers submissions to the remote collection endpoint and
// classifies the outcome into the error taxonomy below.
type EndpointClient interface {
	Send(ctx context.Context, sub submission.Submission) (Ack, error)
}

// NetworkError is a transport-level failure: no response, timeout, DNS.
// Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitedError is a 429 from the endpoint. Retryable; RetryAfter carries
// the server's hint when the response body provided one.
type RateLimitedError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.Message == "" {
		return "rate limited by endpoint"
	}
	return fmt.Sprintf("rate limited by endpoint: %s", e.Message)
}

// ServerRejectedError is an explicit non-2xx rejection. Permanent: retrying
// the same payload cannot succeed.
type ServerRejectedError struct {
	StatusCode int
	Message    string
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("endpoint rejected submission (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether a delivery error is transient. The classification
// is total over the taxonomy: network failures and 429 are retryable,
// anything else is permanent.
func Retryable(err error) bool {
	var netErr *NetworkError
	var rlErr *RateLimitedError
	return errors.As(err, &netErr) || errors.As(err, &rlErr)
}
