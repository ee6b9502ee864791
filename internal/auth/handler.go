package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/filedrop/service/internal/response"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Password string `json:"password" example:"hunter2"`
}

type loginData struct {
	Token string `json:"token" example:"eyJhbGci..."`
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Exchanges the shared admin password for a 24h session token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Admin password"
//	@Success		200		{object}	response.Envelope{data=loginData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	token, err := h.svc.Login(req.Password)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			response.Error(w, http.StatusServiceUnavailable, "authentication not configured")
			return
		}
		response.Unauthorized(w, "invalid password")
		return
	}

	response.OK(w, loginData{Token: token})
}
