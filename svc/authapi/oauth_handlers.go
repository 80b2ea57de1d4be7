package authapi

import (
	"net/http"

	"github.com/cartbase/authcore/pkg/clientip"
)

func (a *API) handleOAuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := a.oauth.GetAuthURL(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{url})
}

func (a *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		a.respondError(w, r, errInvalidParam)
		return
	}

	result, err := a.oauth.Callback(r.Context(), code, state, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, result)
}

type oauthLinkRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (a *API) handleOAuthLink(w http.ResponseWriter, r *http.Request) {
	var req oauthLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	if err := a.oauth.Link(r.Context(), user.ID, req.Code, req.State); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, message{"Google account linked."})
}

func (a *API) handleOAuthUnlink(w http.ResponseWriter, r *http.Request) {
	user, _ := identity(r)
	if err := a.oauth.Unlink(r.Context(), user.ID); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, message{"Google account unlinked."})
}
