package httpserver

import "log/slog"

// Option customizes a Server beyond what Config covers.
type Option func(*Server)

// WithLogger attaches the logger handed to lifecycle hooks. A nil logger
// keeps the discard default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStartHook registers fn to run right before the listener starts
// accepting connections.
func WithStartHook(fn func(*slog.Logger)) Option {
	return func(s *Server) {
		s.startHooks = append(s.startHooks, fn)
	}
}

// WithStopHook registers fn to run after the listener has drained.
func WithStopHook(fn func(*slog.Logger)) Option {
	return func(s *Server) {
		s.stopHooks = append(s.stopHooks, fn)
	}
}
