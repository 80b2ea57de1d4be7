package authapi

import (
	"net/http"
)

type twoFactorSetupView struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodePNG       []byte `json:"qr_code_png,omitempty"`
}

func (a *API) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	user, _ := identity(r)

	setup, err := a.twoFactor.Setup(r.Context(), user.ID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, twoFactorSetupView{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		QRCodePNG:       setup.QRCodePNG,
	})
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

type backupCodesView struct {
	BackupCodes []string `json:"backup_codes"`
	Message     string   `json:"message"`
}

func (a *API) handleTwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	codes, err := a.twoFactor.Enable(r.Context(), user.ID, req.Code)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, backupCodesView{
		BackupCodes: codes,
		Message:     "Two-factor authentication enabled. Store these backup codes somewhere safe; they are shown only once.",
	})
}

// handleTwoFactorVerify is a non-mutating code check, used by clients to
// confirm an authenticator before relying on it.
func (a *API) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	a.respond(w, http.StatusOK, struct {
		Valid bool `json:"valid"`
	}{a.twoFactor.Verify(r.Context(), user.ID, req.Code)})
}

func (a *API) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	if err := a.twoFactor.Disable(r.Context(), user.ID, req.Code); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, message{"Two-factor authentication disabled. All sessions have been signed out."})
}

func (a *API) handleBackupCodeRegenerate(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	user, _ := identity(r)
	codes, err := a.twoFactor.RegenerateBackupCodes(r.Context(), user.ID, req.Code)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, backupCodesView{
		BackupCodes: codes,
		Message:     "Backup codes regenerated. Previous codes no longer work.",
	})
}
