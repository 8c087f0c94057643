package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *SyncError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *SyncError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// Transport creates a network-level failure. Always retryable.
func Transport(op string, err error) *SyncError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("transport failure during %s", op)).
		WithDetail("op", op).
		AsRetryable()
}

// MalformedPayload creates an error for a message or body that could not be decoded.
func MalformedPayload(what string, err error) *SyncError {
	return Wrap(err, ErrCodeMalformedPayload, fmt.Sprintf("malformed %s", what)).
		WithDetail("payload", what)
}

// HTTPStatus creates an error for a non-2xx response without a structured body.
// Server errors and throttling are retryable, other client errors are not.
func HTTPStatus(status int, path string) *SyncError {
	e := New(ErrCodeHTTPStatus, fmt.Sprintf("%s returned status %d", path, status)).
		WithDetail("status", status).
		WithDetail("path", path)
	if status >= 500 || status == 429 {
		e.Retryable = true
	}
	return e
}

// Cancelled creates the cancellation marker. It is never surfaced to users.
func Cancelled(err error) *SyncError {
	return Wrap(err, ErrCodeCancelled, "request cancelled")
}

// NotConnected creates an error for operations that need an open channel.
func NotConnected() *SyncError {
	return New(ErrCodeNotConnected, "channel is not open").AsRetryable()
}

// IsCancelled reports whether err is a cancellation rather than a failure.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrCodeCancelled) {
		return true
	}
	return stderrors.Is(err, context.Canceled)
}

// Classify maps any error into the SyncError taxonomy.
func Classify(err error) *SyncError {
	if err == nil {
		return nil
	}
	if syncErr, ok := As(err); ok {
		return syncErr
	}
	if stderrors.Is(err, context.Canceled) {
		return Cancelled(err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if stderrors.As(err, &netErr) || stderrors.As(err, &urlErr) || stderrors.Is(err, context.DeadlineExceeded) {
		return Transport("request", err)
	}

	return Wrap(err, ErrCodeInternal, err.Error())
}
