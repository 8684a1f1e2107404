package provider

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

var (
	ErrAPIKeyMissing        = errors.New("fedapay api key is not configured")
	ErrTransactionNotFound  = errors.New("fedapay transaction not found")
	ErrMalformedResponse    = errors.New("fedapay response is malformed")
	ErrSignatureMissing     = errors.New("fedapay signature header is missing")
	ErrInvalidSignature     = errors.New("invalid fedapay signature")
	ErrWebhookSecretMissing = errors.New("fedapay webhook secret is not configured")
)

// ProcessorError describes a failed exchange with the processor.
// StatusCode is zero when no HTTP response was received.
type ProcessorError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProcessorError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("fedapay %s failed: status=%d message=%s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("fedapay %s failed: status=%d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fedapay %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("fedapay %s failed: %s", e.Op, e.Message)
	}
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same call may succeed.
func (e *ProcessorError) Retryable() bool {
	if e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode > 0 {
		return false
	}
	return isRetryableNetworkError(e.Err)
}

// IsRetryable reports whether err is a processor error worth retrying.
func IsRetryable(err error) bool {
	var processorErr *ProcessorError
	if errors.As(err, &processorErr) {
		return processorErr.Retryable()
	}
	return isRetryableNetworkError(err)
}

func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
