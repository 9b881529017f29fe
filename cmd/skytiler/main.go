// Package main is the entry point for the skytiler tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skytiler/skytiler/internal/api"
	"github.com/skytiler/skytiler/internal/cache"
	"github.com/skytiler/skytiler/internal/cascade"
	"github.com/skytiler/skytiler/internal/config"
	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/render"
	"github.com/skytiler/skytiler/internal/store"
	"github.com/skytiler/skytiler/internal/store/cached"
	"github.com/skytiler/skytiler/internal/store/fsstore"
	"github.com/skytiler/skytiler/internal/store/mbstore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "cascade":
		err = runCascade(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: skytiler <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  cascade   merge leaf tiles up to the root")
	fmt.Fprintln(os.Stderr, "  serve     serve tile pyramids over HTTP")
}

// openStore opens the backend described by a pyramid config entry.
func openStore(p config.PyramidConfig) (store.TileStore, func() error, error) {
	mode, err := imagery.ParseMode(p.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("pyramid %q: %w", p.ID, err)
	}
	switch p.Format {
	case "fs":
		st, err := fsstore.New(p.Path, mode)
		if err != nil {
			return nil, nil, err
		}
		return st, func() error { return nil }, nil
	case "mbtiles":
		st, err := mbstore.New(p.Path, mode)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("pyramid %q: unknown format %q", p.ID, p.Format)
	}
}

func runCascade(args []string) error {
	fs := flag.NewFlagSet("cascade", flag.ExitOnError)
	path := fs.String("path", "", "Tile directory or tile database path")
	format := fs.String("format", "fs", "Storage backend: fs or mbtiles")
	mode := fs.String("mode", "rgba", "Sample mode: rgb, rgba, f32, f64, f32x3")
	start := fs.Int("start", 0, "Depth of the already-populated leaf level")
	parallelism := fs.Int("parallelism", 0, "Worker count (0 = one per CPU)")
	fs.Parse(args)

	if *path == "" {
		return fmt.Errorf("missing required -path")
	}
	if *start < 0 {
		return fmt.Errorf("-start must not be negative")
	}

	st, closeStore, err := openStore(config.PyramidConfig{
		ID:     "cascade",
		Path:   *path,
		Format: *format,
		Mode:   *mode,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	log.Printf("[cascade] merging %s tiles from depth %d", *path, *start)
	began := time.Now()
	err = cascade.Cascade(st, cascade.Options{
		Start:       *start,
		Parallelism: *parallelism,
		Progress:    cascade.LogProgress(5 * time.Second),
	})
	if err != nil {
		return err
	}
	log.Printf("[cascade] done in %s", time.Since(began).Round(time.Millisecond))
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config/server.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(cfg.Pyramids) == 0 {
		return fmt.Errorf("no pyramids configured in %s", *configPath)
	}

	cacheManager, err := cache.NewManager(cache.Config{
		RenderCacheSizeMB: cfg.Cache.RenderSizeMB,
		RenderTTL:         time.Duration(cfg.Cache.RenderTTLMins) * time.Minute,
		BufferCacheSize:   cfg.Cache.BufferCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheManager.Close()

	tileRenderer := render.NewTileRenderer(render.Config{
		TileSize:        cfg.Render.TileSize,
		DefaultColormap: cfg.Render.DefaultColormap,
	})

	registry := api.NewPyramidRegistry(cfg.Server.Title)
	for _, p := range cfg.Pyramids {
		st, closeStore, err := openStore(p)
		if err != nil {
			return err
		}
		defer closeStore()

		mode, err := imagery.ParseMode(p.Mode)
		if err != nil {
			return fmt.Errorf("pyramid %q: %w", p.ID, err)
		}
		registry.Register(&api.Pyramid{
			ID:    p.ID,
			Title: p.Title,
			Mode:  mode,
			Depth: p.Depth,
			Store: cached.New(st, cacheManager, p.ID),
		})
		log.Printf("[serve] pyramid %q: %s (%s, depth %d)", p.ID, p.Path, p.Mode, p.Depth)
	}

	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		Renderer:    tileRenderer,
		Cache:       cacheManager,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[serve] listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[serve] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[serve] forced shutdown: %v", err)
	}
	log.Println("[serve] stopped")
	return nil
}
