package thumbnails

import (
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/memory"
)

func TestHandleThumbnail(t *testing.T) {
	store := memory.NewStore()
	store.Create(context.Background(), &core.Item{
		BoardID: "board",
		Type:    core.ItemTypeShape,
		Data:    core.EncodePayload(core.ShapeData{Kind: core.ShapeRect, Color: "#e63946"}),
		Pose:    core.Pose{X: 10, Y: 10, Width: 100, Height: 80},
	})
	r := chi.NewRouter()
	r.Get("/boards/{boardId}/thumbnail.png", HandleThumbnail(store))

	tests := []struct {
		name  string
		query string
		w, h  int
	}{
		{"defaults", "", DefaultWidth, DefaultHeight},
		{"explicit", "?w=64&h=32", 64, 32},
		{"out of range", "?w=0&h=99999", DefaultWidth, DefaultHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boards/board/thumbnail.png"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Expected image/png, got %q", ct)
			}
			img, err := png.Decode(w.Body)
			if err != nil {
				t.Fatalf("Failed to decode PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("Expected %dx%d, got %dx%d", tt.w, tt.h, b.Dx(), b.Dy())
			}
		})
	}
}
