package assets

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Diamondrubix/ScrapBook/stores/filesystem"
)

func newRouter(t *testing.T) *chi.Mux {
	store := filesystem.NewStore(t.TempDir())
	r := chi.NewRouter()
	r.Post("/api/boards/{boardId}/assets", HandleUpload(store, "https://cdn.example.com/"))
	r.Get("/assets/*", HandleServe(store))
	return r
}

func upload(t *testing.T, router http.Handler, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/boards/board-1/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServe(t *testing.T) {
	router := newRouter(t)

	w := upload(t, router, "file", "cat.png", []byte("png-bytes"))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.URL != "https://cdn.example.com/assets/"+resp.Key {
		t.Errorf("Unexpected url %q for key %q", resp.URL, resp.Key)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/"+resp.Key, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	w := upload(t, newRouter(t), "other", "cat.png", []byte("x"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestServeMissing(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/board-1/missing.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestPublicURL(t *testing.T) {
	if got := PublicURL("", "b/k.png"); got != "/assets/b/k.png" {
		t.Errorf("Unexpected url %q", got)
	}
}
