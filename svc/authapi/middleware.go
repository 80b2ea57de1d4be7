package authapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/clientip"
	"github.com/cartbase/authcore/pkg/logger"
)

// requireSession authenticates the request from the bearer session token,
// loads the account, and rejects suspended or deactivated users even when
// their session is otherwise valid.
func (a *API) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			a.respondError(w, r, auth.ErrSessionInvalid)
			return
		}

		session, err := a.sessions.Validate(r.Context(), token, clientip.GetIP(r), r.UserAgent())
		if err != nil {
			a.respondError(w, r, err)
			return
		}

		user, err := a.users.GetUserByID(r.Context(), session.UserID)
		if err != nil {
			a.respondError(w, r, auth.ErrSessionInvalid)
			return
		}
		switch {
		case user.IsSuspended:
			a.respondError(w, r, auth.ErrAccountSuspended)
			return
		case !user.IsActive:
			a.respondError(w, r, auth.ErrAccountInactive)
			return
		}

		ctx := auth.WithUser(r.Context(), user)
		ctx = auth.WithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// throttle is the perimeter per-IP token bucket. It sits in front of every
// route and is independent from the attempt-ledger lockout, which only
// counts credential failures.
func (a *API) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := a.limiter.Allow(r.Context(), clientip.GetIP(r))
		if err != nil {
			// An unreachable limiter store must not take auth down with it.
			a.log.Error("rate limiter unavailable", logger.Component("authapi"), logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
		if !result.Allowed() {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter().Seconds()))))
			a.writeError(w, http.StatusTooManyRequests, &errorBody{
				Code:    "too_many_requests",
				Message: "rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
