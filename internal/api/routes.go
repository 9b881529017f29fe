// Package api provides HTTP handlers for the skytiler server.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skytiler/skytiler/internal/cache"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/render"
	"github.com/skytiler/skytiler/internal/store"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *PyramidRegistry
	Renderer    *render.TileRenderer
	Cache       *cache.Manager
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global pyramid listing (not pyramid-scoped)
	r.Get("/api/pyramids", pyramidsHandler(cfg.Registry))

	// Pyramid-scoped routes: /p/{pyramid}/...
	r.Route("/p/{pyramid}", func(r chi.Router) {
		r.Use(pyramidMiddleware(cfg.Registry))

		r.Get("/tiles/{z}/{y}/{x}.png", tileHandler(cfg))
		r.Get("/thumbnail.png", thumbnailHandler(cfg))
		r.Get("/api/metadata", metadataHandler)
	})

	return r
}

// Context key for the resolved pyramid
type ctxKey string

const pyramidKey ctxKey = "pyramid"

// pyramidMiddleware resolves the pyramid from the URL and injects it
// into the request context.
func pyramidMiddleware(registry *PyramidRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "pyramid")
			p := registry.Get(id)
			if p == nil {
				http.Error(w, "pyramid not found: "+id, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), pyramidKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getPyramid(r *http.Request) *Pyramid {
	if p, ok := r.Context().Value(pyramidKey).(*Pyramid); ok {
		return p
	}
	return nil
}

// pyramidsHandler returns the list of available pyramids.
func pyramidsHandler(registry *PyramidRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"title":    registry.Title(),
			"pyramids": registry.Pyramids(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// parseRange reads optional min/max query params for float rendering.
// Missing or unusable values come back as (0, 0), which the renderer
// treats as "use the tile's recorded range".
func parseRange(r *http.Request) (lo, hi float64) {
	parse := func(key string) (float64, bool) {
		s := strings.TrimSpace(r.URL.Query().Get(key))
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	lo, okLo := parse("min")
	hi, okHi := parse("max")
	if !okLo || !okHi {
		return 0, 0
	}
	return lo, hi
}

func tileHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := getPyramid(r)
		if p == nil {
			http.Error(w, "pyramid not resolved", http.StatusInternalServerError)
			return
		}

		z, err := strconv.Atoi(chi.URLParam(r, "z"))
		if err != nil {
			http.Error(w, "invalid z", http.StatusBadRequest)
			return
		}
		y, err := strconv.Atoi(chi.URLParam(r, "y"))
		if err != nil {
			http.Error(w, "invalid y", http.StatusBadRequest)
			return
		}
		x, err := strconv.Atoi(chi.URLParam(r, "x"))
		if err != nil {
			http.Error(w, "invalid x", http.StatusBadRequest)
			return
		}

		addr := pyramid.Address{Depth: z, X: x, Y: y}
		if !addr.IsValid() || z > p.Depth {
			http.Error(w, "tile out of range", http.StatusBadRequest)
			return
		}

		cmap := r.URL.Query().Get("colormap")
		lo, hi := parseRange(r)

		key := cache.RenderKey(p.ID, addr, cmap, lo, hi)
		if data, ok := cfg.Cache.GetRender(key); ok {
			serveTile(w, data, true)
			return
		}

		buf, err := p.Store.ReadTile(addr)
		if err != nil {
			http.Error(w, "failed to read tile", http.StatusInternalServerError)
			return
		}
		if buf == nil {
			data, err := cfg.Renderer.RenderPlaceholder()
			if err != nil {
				http.Error(w, "failed to render tile", http.StatusInternalServerError)
				return
			}
			serveTile(w, data, false)
			return
		}

		flip := p.Store.VerticalParitySign() == store.ParityBottomUp
		data, err := cfg.Renderer.RenderTile(buf, flip, cmap, lo, hi)
		if err != nil {
			http.Error(w, "failed to render tile", http.StatusInternalServerError)
			return
		}
		cfg.Cache.SetRender(key, data)
		serveTile(w, data, true)
	}
}

func thumbnailHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := getPyramid(r)
		if p == nil {
			http.Error(w, "pyramid not resolved", http.StatusInternalServerError)
			return
		}

		buf, err := p.Store.ReadTile(pyramid.Root)
		if err != nil {
			http.Error(w, "failed to read root tile", http.StatusInternalServerError)
			return
		}
		if buf == nil {
			http.NotFound(w, r)
			return
		}

		flip := p.Store.VerticalParitySign() == store.ParityBottomUp
		data, err := cfg.Renderer.RenderThumbnail(buf, flip, r.URL.Query().Get("colormap"), 0, 0)
		if err != nil {
			http.Error(w, "failed to render thumbnail", http.StatusInternalServerError)
			return
		}
		serveTile(w, data, true)
	}
}

func metadataHandler(w http.ResponseWriter, r *http.Request) {
	p := getPyramid(r)
	if p == nil {
		http.Error(w, "pyramid not resolved", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"id":          p.ID,
		"title":       p.Title,
		"mode":        p.Mode.String(),
		"depth":       p.Depth,
		"total_tiles": pyramid.TotalTileCount(p.Depth),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func serveTile(w http.ResponseWriter, data []byte, long bool) {
	w.Header().Set("Content-Type", "image/png")
	if long {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=60")
	}
	w.Write(data)
}
