package object

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, store *memStore) (*chi.Mux, *Service) {
	t.Helper()
	svc := newTestService(t, store, nil, testConfig())
	h := NewHandler(svc, nil)

	r := chi.NewRouter()
	r.Get("/f/*", h.Download)
	r.Post("/upload", h.Upload)
	r.Delete("/objects", h.Delete)
	r.Get("/objects", h.List)
	return r, svc
}

func seedObject(t *testing.T, store *memStore, key, contentType string, payload []byte) {
	t.Helper()
	err := store.Put(context.Background(), key, bytes.NewReader(payload), int64(len(payload)), contentType, map[string]string{"filename": "orig-" + key})
	if err != nil {
		t.Fatalf("seed object: %v", err)
	}
}

func TestDownloadDispositionPolicy(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(t, store)

	seedObject(t, store, "2026-08-31/u1/pic.png", "image/png", []byte("png-bytes"))
	seedObject(t, store, "2026-08-31/u2/archive.zip", "application/zip", []byte("zip-bytes"))
	seedObject(t, store, "2026-08-31/u3/notes.txt", "text/plain", []byte("text"))

	tests := []struct {
		name     string
		path     string
		wantDisp string // "" means the header must be absent
	}{
		{"image inline", "/f/2026-08-31/u1/pic.png", "inline"},
		{"text inline", "/f/2026-08-31/u3/notes.txt", "inline"},
		{"binary no disposition", "/f/2026-08-31/u2/archive.zip", ""},
		{"image forced download", "/f/2026-08-31/u1/pic.png?download=1", "attachment"},
		{"binary forced download", "/f/2026-08-31/u2/archive.zip?download=1", "attachment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			disp := rec.Header().Get("Content-Disposition")
			if tt.wantDisp == "" {
				if disp != "" {
					t.Errorf("unexpected Content-Disposition %q", disp)
				}
				return
			}
			if !strings.HasPrefix(disp, tt.wantDisp+";") {
				t.Errorf("Content-Disposition = %q, want prefix %q", disp, tt.wantDisp)
			}
			if !strings.Contains(disp, "filename=") {
				t.Errorf("Content-Disposition %q carries no filename", disp)
			}
		})
	}
}

func TestDownloadHeadersAndBody(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(t, store)

	payload := []byte("twelve bytes")
	seedObject(t, store, "2026-08-31/u9/report.pdf", "application/pdf", payload)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/f/2026-08-31/u9/report.pdf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "12" {
		t.Errorf("Content-Length = %q, want 12", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Errorf("body differs from stored payload")
	}
}

func TestDownloadUnknownKey(t *testing.T) {
	router, _ := newTestRouter(t, newMemStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/f/2026-01-01/nope/missing.bin", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func multipartBody(t *testing.T, field, filename, contentType string, payload []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadHandlerEndToEnd(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(t, store)

	body, contentType := multipartBody(t, "file", "report.pdf", "application/pdf", []byte("twelve bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	resp := rec.Body.String()
	if !strings.Contains(resp, `"size":12`) {
		t.Errorf("response missing size 12: %s", resp)
	}
	if !strings.Contains(resp, `"contentType":"application/pdf"`) {
		t.Errorf("response missing content type: %s", resp)
	}
	if store.putCalls != 1 {
		t.Errorf("store writes = %d, want 1", store.putCalls)
	}
}

func TestUploadHandlerMissingFilePart(t *testing.T) {
	router, _ := newTestRouter(t, newMemStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerBlockedMime(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.BlockedMimeTypes = []string{"exe"}
	svc := newTestService(t, store, nil, cfg)
	h := NewHandler(svc, nil)

	router := chi.NewRouter()
	router.Post("/upload", h.Upload)

	body, contentType := multipartBody(t, "file", "setup.exe", "application/x-exe", []byte("MZ"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestDeleteHandler(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(t, store)

	seedObject(t, store, "2026-08-31/u5/gone.txt", "text/plain", []byte("x"))

	req := httptest.NewRequest(http.MethodDelete, "/objects", strings.NewReader(`{"key":"2026-08-31/u5/gone.txt"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Deleting again reports not found.
	req = httptest.NewRequest(http.MethodDelete, "/objects", strings.NewReader(`{"key":"2026-08-31/u5/gone.txt"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
