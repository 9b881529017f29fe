package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skytiler/skytiler/internal/cache"
	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/render"
	"github.com/skytiler/skytiler/internal/store"
	"github.com/skytiler/skytiler/internal/store/memstore"
)

// testRouter keeps test call sites short.
type testRouter struct {
	http.Handler
}

func (c *testRouter) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(t *testing.T) (*testRouter, *memstore.Store) {
	t.Helper()

	st := memstore.New(store.ParityTopDown)
	buf := imagery.NewBuffer(imagery.ModeRGBA, 4, 4)
	for i := range buf.Pix() {
		buf.Pix()[i] = 200
	}
	if err := st.WriteTile(pyramid.Root, buf); err != nil {
		t.Fatalf("seed root: %v", err)
	}
	if err := st.WriteTile(pyramid.Address{Depth: 1, X: 0, Y: 0}, buf); err != nil {
		t.Fatalf("seed leaf: %v", err)
	}

	registry := NewPyramidRegistry("test sky")
	registry.Register(&Pyramid{
		ID:    "m51",
		Title: "Whirlpool",
		Mode:  imagery.ModeRGBA,
		Depth: 1,
		Store: st,
	})

	mgr, err := cache.NewManager(cache.Config{
		RenderCacheSizeMB: 8,
		RenderTTL:         time.Minute,
		BufferCacheSize:   16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	router := NewRouter(RouterConfig{
		Registry:    registry,
		Renderer:    render.NewTileRenderer(render.Config{TileSize: 4}),
		Cache:       mgr,
		CORSOrigins: []string{"*"},
	})
	return &testRouter{router}, st
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := router.get(t, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPyramidListing(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := router.get(t, "/api/pyramids")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var body struct {
		Title    string        `json:"title"`
		Pyramids []PyramidInfo `json:"pyramids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Title != "test sky" {
		t.Errorf("unexpected title %q", body.Title)
	}
	if len(body.Pyramids) != 1 || body.Pyramids[0].ID != "m51" || body.Pyramids[0].Mode != "rgba" {
		t.Errorf("unexpected pyramids: %+v", body.Pyramids)
	}
}

func TestTileEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("storedTile", func(t *testing.T) {
		rec := router.get(t, "/p/m51/tiles/1/0/0.png")
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Fatalf("unexpected content type %q", ct)
		}
		img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
		if err != nil {
			t.Fatalf("response is not a PNG: %v", err)
		}
		if img.Bounds().Dx() != 4 {
			t.Fatalf("unexpected tile width %d", img.Bounds().Dx())
		}
	})

	t.Run("missingTileGetsPlaceholder", func(t *testing.T) {
		rec := router.get(t, "/p/m51/tiles/1/1/1.png")
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}
		if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
			t.Fatalf("placeholder is not a PNG: %v", err)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=60" {
			t.Fatalf("placeholder should be short-cached, got %q", cc)
		}
	})

	t.Run("outOfRange", func(t *testing.T) {
		for _, path := range []string{
			"/p/m51/tiles/2/0/0.png", // deeper than the pyramid
			"/p/m51/tiles/1/0/5.png", // x beyond the grid
			"/p/m51/tiles/a/0/0.png",
		} {
			rec := router.get(t, path)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", path, rec.Code)
			}
		}
	})

	t.Run("unknownPyramid", func(t *testing.T) {
		rec := router.get(t, "/p/nope/tiles/0/0/0.png")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTileRenderCaching(t *testing.T) {
	router, st := newTestRouter(t)

	first := router.get(t, "/p/m51/tiles/0/0/0.png")
	if first.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", first.Code)
	}

	// Mutate the store; the cached response should still be served.
	blank := imagery.NewBuffer(imagery.ModeRGBA, 4, 4)
	if err := st.WriteTile(pyramid.Root, blank); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	second := router.get(t, "/p/m51/tiles/0/0/0.png")
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatal("expected the cached render to be reused")
	}
}

func TestThumbnail(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := router.get(t, "/p/m51/thumbnail.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != render.ThumbWidth || img.Bounds().Dy() != render.ThumbHeight {
		t.Fatalf("unexpected thumbnail size %v", img.Bounds())
	}
}

func TestMetadata(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := router.get(t, "/p/m51/api/metadata")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "m51" || body["title"] != "Whirlpool" {
		t.Errorf("unexpected identity fields: %v", body)
	}
	if body["total_tiles"].(float64) != 5 {
		t.Errorf("expected 5 total tiles for depth 1, got %v", body["total_tiles"])
	}
}
