package alias

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filedrop/service/internal/response"
	"github.com/filedrop/service/internal/storage"
)

// Handler holds HTTP handlers for short-link endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new alias Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type shareRequest struct {
	Key string `json:"key" example:"2026-08-31/2f1e.../report.pdf"`
	TTL int64  `json:"ttl,omitempty" example:"86400"`
}

// Share godoc
//
//	@Summary		Mint a short link
//	@Description	Creates a TTL-bound short link for an existing object key. TTL is in seconds and defaults to 86400 (24h).
//	@Tags			aliases
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		shareRequest	true	"Object key and optional TTL"
//	@Success		200		{object}	response.Envelope{data=ShareResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/share [post]
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Key == "" {
		response.BadRequest(w, "field 'key' is required")
		return
	}

	res, err := h.svc.Share(r.Context(), req.Key, time.Duration(req.TTL)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			response.NotFound(w, "object not found")
		case errors.Is(err, ErrExhausted):
			response.Error(w, http.StatusInternalServerError, "could not allocate a short link, try again")
		default:
			response.BadGateway(w, "object store unavailable")
		}
		return
	}

	response.OK(w, res)
}

// Resolve godoc
//
//	@Summary		Resolve a short link
//	@Description	Redirects to the download URL of the object bound to the slug.
//	@Tags			aliases
//	@Produce		json
//	@Param			slug	path	string	true	"Short-link slug"
//	@Success		302
//	@Failure		404	{object}	response.Envelope
//	@Router			/s/{slug} [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	target, err := h.svc.Resolve(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "short link not found or expired")
			return
		}
		response.InternalError(w)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Unbind godoc
//
//	@Summary		Delete a short link
//	@Description	Removes the slug binding. The target object is untouched.
//	@Tags			aliases
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"Short-link slug"
//	@Success		200		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/aliases/{slug} [delete]
func (h *Handler) Unbind(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.svc.Unbind(r.Context(), slug); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "short link not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]bool{"ok": true})
}
