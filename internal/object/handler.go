package object

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/filedrop/service/internal/botcheck"
	"github.com/filedrop/service/internal/response"
	"github.com/filedrop/service/internal/storage"
)

// multipartMemoryLimit is the in-memory buffer for multipart parsing;
// larger parts spill to temp files.
const multipartMemoryLimit = 32 << 20

// Handler holds HTTP handlers for object lifecycle endpoints.
// verifier may be nil, which disables the bot check on uploads.
type Handler struct {
	svc      *Service
	verifier botcheck.Verifier
}

// NewHandler creates a new object Handler.
func NewHandler(svc *Service, verifier botcheck.Verifier) *Handler {
	return &Handler{svc: svc, verifier: verifier}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Accepts a multipart file, validates size and MIME policy, stores it, and mints a short link when an alias index is configured.
//	@Tags			objects
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	response.Envelope{data=UploadResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Declared request length rejects oversized uploads before any payload
	// bytes are read. The multipart envelope only makes requests larger, so
	// this can never reject a payload that would have fit.
	if r.ContentLength > h.svc.cfg.MaxUploadBytes+multipartMemoryLimit {
		response.PayloadTooLarge(w, "file exceeds maximum upload size")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.BadRequest(w, "invalid multipart request")
		return
	}

	if h.verifier != nil {
		ok, err := h.verifier.Verify(r.Context(), r.FormValue("cf-turnstile-response"), r.RemoteAddr)
		if err != nil {
			log.Warn().Err(err).Msg("bot verification call failed")
			response.BadGateway(w, "bot verification unavailable")
			return
		}
		if !ok {
			response.Unauthorized(w, "bot verification failed")
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "field 'file' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	result, err := h.svc.Upload(r.Context(), UploadInput{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: contentType,
		SizeHint:    header.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSizeExceeded):
			response.PayloadTooLarge(w, "file exceeds maximum upload size")
		case errors.Is(err, ErrMimeBlocked):
			response.UnsupportedMediaType(w, "content type is blocked")
		case errors.Is(err, ErrMimeNotAllowed):
			response.UnsupportedMediaType(w, "content type is not allowed")
		default:
			log.Error().Err(err).Msg("upload failed")
			response.BadGateway(w, "object store unavailable")
		}
		return
	}

	response.Created(w, result)
}

// Download godoc
//
//	@Summary		Download a file by key
//	@Description	Streams the stored object. Pass download=1 to force attachment disposition; text and image types render inline by default, everything else gets no disposition header.
//	@Tags			objects
//	@Produce		octet-stream
//	@Param			key			path	string	true	"Object key (contains slashes)"
//	@Param			download	query	int		false	"Force attachment disposition"
//	@Success		200
//	@Failure		404	{object}	response.Envelope
//	@Router			/f/{key} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		response.NotFound(w, "object not found")
		return
	}

	obj, err := h.svc.Fetch(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(w, "object not found")
			return
		}
		log.Error().Err(err).Str("key", key).Msg("fetch failed")
		response.BadGateway(w, "object store unavailable")
		return
	}
	defer obj.Body.Close()

	contentType := obj.Info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	filename := obj.Info.UserMetadata[storage.MetaFilename]
	if filename == "" {
		filename = path.Base(key)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	if d := dispositionFor(contentType, r.URL.Query().Get("download") == "1", filename); d != "" {
		w.Header().Set("Content-Disposition", d)
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("download stream interrupted")
	}
}

// dispositionFor picks the Content-Disposition header value. Forced downloads
// always get attachment. Otherwise only textual and image types render
// inline; arbitrary binaries get no disposition header at all, leaving the
// browser default rather than inviting it to render them.
func dispositionFor(contentType string, forceDownload bool, filename string) string {
	params := map[string]string{"filename": filename}
	if forceDownload {
		return mime.FormatMediaType("attachment", params)
	}
	if strings.HasPrefix(contentType, "text/") || strings.HasPrefix(contentType, "image/") {
		return mime.FormatMediaType("inline", params)
	}
	return ""
}

type deleteRequest struct {
	Key string `json:"key" example:"2026-08-31/2f1e.../report.pdf"`
}

// Delete godoc
//
//	@Summary		Delete an object
//	@Description	Removes the object stored under the given key. A short link bound to it is left dangling.
//	@Tags			objects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		deleteRequest	true	"Object key"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/objects [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Key == "" {
		response.BadRequest(w, "field 'key' is required")
		return
	}

	if err := h.svc.Delete(r.Context(), req.Key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(w, "object not found")
			return
		}
		log.Error().Err(err).Str("key", req.Key).Msg("delete failed")
		response.BadGateway(w, "object store unavailable")
		return
	}

	response.OK(w, map[string]bool{"ok": true})
}

// List godoc
//
//	@Summary		List stored objects
//	@Description	Returns one catalog page enriched with short-link metadata. Limit defaults to 100 and is clamped to 1000.
//	@Tags			objects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int		false	"Page size"
//	@Param			cursor	query		string	false	"Opaque cursor from the previous page"
//	@Success		200		{object}	response.Envelope{data=Catalog}
//	@Failure		502		{object}	response.Envelope
//	@Router			/objects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	cat, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		log.Error().Err(err).Msg("list failed")
		response.BadGateway(w, "object store unavailable")
		return
	}

	response.OK(w, cat)
}
