package authapi

import (
	"net/http"

	"github.com/cartbase/authcore/pkg/clientip"
)

type emailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleMagicLinkRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	msg, err := a.magicLink.Request(r.Context(), req.Email, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusAccepted, message{msg})
}

func (a *API) handleMagicLinkVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.respondError(w, r, errInvalidParam)
		return
	}

	result, err := a.magicLink.Verify(r.Context(), token, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, result)
}

func (a *API) handleVerificationSend(w http.ResponseWriter, r *http.Request) {
	user, _ := identity(r)
	if err := a.verification.Send(r.Context(), user.ID, clientip.GetIP(r), r.UserAgent()); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusAccepted, message{"Verification email sent"})
}

func (a *API) handleVerificationResend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	msg, err := a.verification.Resend(r.Context(), req.Email, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusAccepted, message{msg})
}

func (a *API) handleVerificationVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.respondError(w, r, errInvalidParam)
		return
	}

	user, err := a.verification.Verify(r.Context(), token)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, user)
}

func (a *API) handlePasswordForgot(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	msg, err := a.reset.Request(r.Context(), req.Email, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusAccepted, message{msg})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	if err := a.reset.Reset(r.Context(), req.Token, req.Password); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, message{"Password has been reset. Please sign in with your new password."})
}
