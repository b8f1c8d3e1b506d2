package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Diamondrubix/ScrapBook/handlers/auth"
	"github.com/Diamondrubix/ScrapBook/handlers/websocket"
	"github.com/Diamondrubix/ScrapBook/stores/filesystem"
	"github.com/Diamondrubix/ScrapBook/stores/memory"
)

func TestRouterRequiresTokenForAPI(t *testing.T) {
	auth.SetSecret([]byte("test-secret"))
	store := memory.NewStore()
	r := setupRouter(store, filesystem.NewStore(t.TempDir()), websocket.NewCollab(store, 10, 10))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boards/b/items", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	token, _ := auth.CreateJWT("alice", "Alice")
	req := httptest.NewRequest(http.MethodPost, "/api/boards/b/items", strings.NewReader(`{"type":"text","width":220,"height":120}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	items, _ := store.List(req.Context(), "b")
	if len(items) != 1 || items[0].CreatedBy != "alice" {
		t.Errorf("Expected alice's item, got %+v", items)
	}
}

func TestHealth(t *testing.T) {
	store := memory.NewStore()
	r := setupRouter(store, filesystem.NewStore(t.TempDir()), websocket.NewCollab(store, 10, 10))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
