package authapi

import (
	"net/http"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/clientip"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	StoreName string `json:"store_name"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	result, err := a.svc.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      auth.Role(req.Role),
		StoreName: req.StoreName,
	}, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Code       string `json:"code"`
	BackupCode string `json:"backup_code"`
	RememberMe bool   `json:"remember_me"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	result, err := a.svc.Login(r.Context(), auth.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		Code:       req.Code,
		BackupCode: req.BackupCode,
		RememberMe: req.RememberMe,
	}, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, result)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := identity(r)
	a.respond(w, http.StatusOK, user.Sanitize())
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, session := identity(r)
	if err := a.sessions.Revoke(r.Context(), user.ID, session.ID); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (a *API) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	sessionToken, err := a.svc.ChangePassword(r.Context(), user.ID,
		req.OldPassword, req.NewPassword, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, struct {
		SessionToken string `json:"session_token"`
		Message      string `json:"message"`
	}{sessionToken, "Password changed. Other sessions have been signed out."})
}
