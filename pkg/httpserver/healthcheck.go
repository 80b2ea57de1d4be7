package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/cartbase/authcore/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness probes. With no checks
// it always answers 200 "ALIVE". With one or more checks it runs each
// against the request context and answers 200 "READY", or 500 "NOT_READY"
// as soon as a check fails.
func HealthCheckHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			_, _ = io.WriteString(w, "ALIVE")
			return
		}

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, "NOT_READY")
				return
			}
		}
		_, _ = io.WriteString(w, "READY")
	}
}
