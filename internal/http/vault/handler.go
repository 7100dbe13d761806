// Package vault exposes vault setup and login. Login returns a session
// token; the recovered remote credential stays inside the server.
package vault

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidmreis/bizbook/internal/auth"
	"github.com/davidmreis/bizbook/internal/http/respond"
	"github.com/davidmreis/bizbook/internal/vault"
)

// OnLogin runs after a successful login with the recovered credential;
// main wires it to install the token and load the remote snapshot.
type OnLogin func(ctx context.Context, credential string) error

type Handler struct {
	vault    *vault.Vault
	sessions *auth.Sessions
	onLogin  OnLogin
}

func NewHandler(v *vault.Vault, sessions *auth.Sessions, onLogin OnLogin) *Handler {
	return &Handler{vault: v, sessions: sessions, onLogin: onLogin}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/setup", h.setup)
	r.Post("/login", h.login)
	r.Get("/status", h.status)
}

type setupRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.vault.Setup(r.Context(), req.Credential, req.Password); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	credential, err := h.vault.Login(r.Context(), req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if h.onLogin != nil {
		if err := h.onLogin(r.Context(), credential); err != nil {
			respond.Error(w, err)
			return
		}
	}

	token, err := h.sessions.Issue()
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{Token: token})
}

type statusResponse struct {
	Configured bool `json:"configured"`
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, statusResponse{Configured: h.vault.Configured()})
}
