package alias

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filedrop/service/internal/storage"
)

// stubStore implements just enough of storage.ObjectStore for share targets.
type stubStore struct {
	keys map[string]bool
}

func (s *stubStore) Put(ctx context.Context, key string, r io.Reader, size int64, ct string, md map[string]string) error {
	return nil
}

func (s *stubStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	return nil, storage.ErrNotFound
}

func (s *stubStore) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	if !s.keys[key] {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectInfo{Key: key}, nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error { return nil }

func (s *stubStore) List(ctx context.Context, startAfter string, limit int) ([]storage.ObjectInfo, bool, error) {
	return nil, false, nil
}

func (s *stubStore) SetUserMetadata(ctx context.Context, key string, md map[string]string) error {
	return nil
}

const testBaseURL = "http://localhost:8080"

func newTestHandler(idx Index, store *stubStore) *Handler {
	alloc := NewAllocator(idx, 10)
	return NewHandler(NewService(idx, alloc, store, testBaseURL))
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/s/{slug}", h.Resolve)
	r.Post("/share", h.Share)
	r.Delete("/aliases/{slug}", h.Unbind)
	return r
}

func TestResolveRedirectsToDownloadURL(t *testing.T) {
	idx := newFakeIndex()
	const key = "2026-08-31/u1/report.pdf"
	if _, err := idx.Bind(context.Background(), "Ab3dEf9h", key, 0); err != nil {
		t.Fatalf("seed bind: %v", err)
	}

	router := newTestRouter(newTestHandler(idx, &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/Ab3dEf9h", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != testBaseURL+"/f/"+key {
		t.Errorf("Location = %q, want %q", got, testBaseURL+"/f/"+key)
	}
}

func TestResolveExpiredSlug(t *testing.T) {
	idx := newFakeIndex()
	clock := time.Now()
	idx.now = func() time.Time { return clock }

	if _, err := idx.Bind(context.Background(), "Ab3dEf9h", "2026-08-31/u1/report.pdf", time.Hour); err != nil {
		t.Fatalf("seed bind: %v", err)
	}
	clock = clock.Add(2 * time.Hour)

	router := newTestRouter(newTestHandler(idx, &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/Ab3dEf9h", nil))

	// Expired and absent slugs are indistinguishable to the caller.
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestResolveUnknownSlug(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeIndex(), &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/zzzzzzzz", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestShareMintsTTLBoundSlug(t *testing.T) {
	idx := newFakeIndex()
	store := &stubStore{keys: map[string]bool{"2026-08-31/u1/report.pdf": true}}
	router := newTestRouter(newTestHandler(idx, store))

	body := strings.NewReader(`{"key":"2026-08-31/u1/report.pdf","ttl":3600}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/share", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := rec.Body.String()
	if !strings.Contains(resp, `"expiresIn":3600`) {
		t.Errorf("response missing requested TTL: %s", resp)
	}

	// The minted binding must carry the requested TTL.
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.ttls) != 1 {
		t.Fatalf("bindings = %d, want 1", len(idx.ttls))
	}
	for slug, ttl := range idx.ttls {
		if len(slug) != SlugLength {
			t.Errorf("slug %q length = %d, want %d", slug, len(slug), SlugLength)
		}
		if ttl != time.Hour {
			t.Errorf("ttl = %v, want 1h", ttl)
		}
	}
}

func TestShareDefaultsTTL(t *testing.T) {
	idx := newFakeIndex()
	store := &stubStore{keys: map[string]bool{"k": true}}
	router := newTestRouter(newTestHandler(idx, store))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"key":"k"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"expiresIn":86400`) {
		t.Errorf("expected default 24h TTL: %s", rec.Body.String())
	}
}

func TestShareUnknownKey(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeIndex(), &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"key":"missing"}`)))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestShareExhaustionIsServerError(t *testing.T) {
	idx := newFakeIndex()
	idx.rejectFirst = 1 << 30
	store := &stubStore{keys: map[string]bool{"k": true}}
	router := newTestRouter(newTestHandler(idx, store))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"key":"k"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestShareMissingKey(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeIndex(), &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUnbindRemovesBinding(t *testing.T) {
	idx := newFakeIndex()
	if _, err := idx.Bind(context.Background(), "Ab3dEf9h", "k", 0); err != nil {
		t.Fatalf("seed bind: %v", err)
	}
	router := newTestRouter(newTestHandler(idx, &stubStore{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/aliases/Ab3dEf9h", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/Ab3dEf9h", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("resolve after unbind = %d, want 404", rec.Code)
	}
}
