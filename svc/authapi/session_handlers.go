package authapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type sessionView struct {
	ID           uuid.UUID `json:"id"`
	IPAddress    string    `json:"ip_address"`
	Device       string    `json:"device"`
	DeviceType   string    `json:"device_type"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	Current      bool      `json:"current"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *API) handleSessionList(w http.ResponseWriter, r *http.Request) {
	user, current := identity(r)

	sessions, err := a.sessions.List(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:           s.ID,
			IPAddress:    s.IPAddress,
			Device:       s.DeviceLabel(),
			DeviceType:   s.DeviceType,
			Browser:      s.Browser,
			OS:           s.OS,
			Current:      s.ID == current.ID,
			LastActiveAt: s.LastActiveAt,
			CreatedAt:    s.CreatedAt,
		})
	}
	a.respond(w, http.StatusOK, views)
}

func (a *API) handleSessionRevoke(w http.ResponseWriter, r *http.Request) {
	user, _ := identity(r)

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, r, errInvalidParam)
		return
	}

	if err := a.sessions.Revoke(r.Context(), user.ID, sessionID); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}

// handleSessionRevokeAll signs out every other device, keeping the session
// that made the call.
func (a *API) handleSessionRevokeAll(w http.ResponseWriter, r *http.Request) {
	user, current := identity(r)

	if err := a.sessions.RevokeAll(r.Context(), user.ID, &current.ID); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}
