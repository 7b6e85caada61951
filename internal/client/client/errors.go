package client

import "errors"

var (
	// ErrUnavailable indicates a transport-level failure before any HTTP
	// status was received.
	ErrUnavailable = errors.New("server unavailable")

	// ErrServerFailure indicates a non-2xx HTTP response.
	ErrServerFailure = errors.New("server failure")

	// ErrBadResponse indicates a 2xx response whose body did not match the
	// expected shape.
	ErrBadResponse = errors.New("malformed server response")
)
