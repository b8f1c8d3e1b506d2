package locks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/handlers/auth"
	"github.com/Diamondrubix/ScrapBook/middleware"
	"github.com/Diamondrubix/ScrapBook/stores/memory"
)

func newRouter(store core.LockStore) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/boards/{boardId}/locks", HandleList(store))
	r.Put("/items/{itemId}/lock", HandleAcquire(store))
	r.Delete("/items/{itemId}/lock", HandleRelease(store))
	return r
}

func as(req *http.Request, userID string) *http.Request {
	claims := &auth.AppClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

func listLocks(t *testing.T, router http.Handler) []core.Lock {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boards/board/locks", nil))
	var locks []core.Lock
	if err := json.NewDecoder(w.Body).Decode(&locks); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return locks
}

func TestAcquireAndRelease(t *testing.T) {
	store := memory.NewStore()
	item := &core.Item{BoardID: "board", Type: core.ItemTypeShape}
	if err := store.Create(context.Background(), item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	router := newRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, as(httptest.NewRequest(http.MethodPut, "/items/"+item.ID+"/lock", nil), "alice"))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	locks := listLocks(t, router)
	if len(locks) != 1 || locks[0].HolderID != "alice" {
		t.Fatalf("Expected alice's lock, got %+v", locks)
	}

	// bob cannot release alice's lock
	w = httptest.NewRecorder()
	router.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, "/items/"+item.ID+"/lock", nil), "bob"))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if locks := listLocks(t, router); len(locks) != 1 {
		t.Fatalf("Expected alice's lock to survive, got %+v", locks)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, "/items/"+item.ID+"/lock", nil), "alice"))
	if locks := listLocks(t, router); len(locks) != 0 {
		t.Errorf("Expected no locks, got %+v", locks)
	}
}

func TestAcquireErrors(t *testing.T) {
	router := newRouter(memory.NewStore())

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"anonymous", httptest.NewRequest(http.MethodPut, "/items/x/lock", nil), http.StatusUnauthorized},
		{"missing item", as(httptest.NewRequest(http.MethodPut, "/items/x/lock", nil), "alice"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
