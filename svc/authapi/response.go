package authapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/requestid"
	"github.com/cartbase/authcore/pkg/validator"
)

// envelope is the response shape for every endpoint: exactly one of Data
// or Error is set.
type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// message is the Data payload for endpoints that only return a
// human-readable outcome, including the anti-enumeration flows.
type message struct {
	Message string `json:"message"`
}

func (a *API) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		a.log.Error("failed to encode response", logger.Error(err))
	}
}

func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string][]string, len(verrs))
		for _, ve := range verrs {
			details[ve.Field] = append(details[ve.Field], ve.Message)
		}
		a.writeError(w, http.StatusUnprocessableEntity, &errorBody{
			Code:    "validation_error",
			Message: "validation failed",
			Details: details,
		})
		return
	}

	var rle *auth.RateLimitError
	if errors.As(err, &rle) {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
	}

	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.log.Error("request failed",
			logger.Component("authapi"),
			logger.Error(err),
			"path", r.URL.Path,
			"request_id", requestid.FromContext(r.Context()),
		)
		msg = "internal error"
	}
	a.writeError(w, status, &errorBody{Code: code, Message: msg})
}

func (a *API) writeError(w http.ResponseWriter, status int, body *errorBody) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: body}); err != nil {
		a.log.Error("failed to encode error response", logger.Error(err))
	}
}

// statusFor maps domain sentinels onto the HTTP taxonomy. Unknown errors
// fall through to 500 and never leak their message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailAlreadyExists),
		errors.Is(err, auth.ErrProviderLinked):
		return http.StatusConflict, "conflict"

	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too_many_requests"

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrAccountSuspended),
		errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrFingerprintMismatch),
		errors.Is(err, auth.ErrInvalidTwoFactor),
		errors.Is(err, auth.ErrInvalidBackupCode),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenAlreadyUsed):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrTokenNotFound),
		errors.Is(err, auth.ErrStoreNotFound),
		errors.Is(err, auth.ErrStateNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, auth.ErrEmailAlreadyVerified),
		errors.Is(err, auth.ErrEmailVerificationPending),
		errors.Is(err, auth.ErrNoPasswordSet),
		errors.Is(err, auth.ErrTwoFactorNotSetup),
		errors.Is(err, auth.ErrTwoFactorAlreadyEnabled),
		errors.Is(err, auth.ErrTwoFactorNotEnabled),
		errors.Is(err, auth.ErrNoProviderLink),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrUnverifiedEmail),
		errors.Is(err, auth.ErrManualLinkRequired),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidParam):
		return http.StatusBadRequest, "bad_request"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
