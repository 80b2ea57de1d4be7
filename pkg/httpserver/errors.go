package httpserver

import "errors"

var (
	// ErrStart wraps listener startup failures.
	ErrStart = errors.New("http server start failed")

	// ErrShutdown wraps graceful drain failures.
	ErrShutdown = errors.New("http server shutdown failed")
)
