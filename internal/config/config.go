// Package config handles configuration loading for the skytiler server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Pyramids []PyramidConfig `yaml:"pyramids"`
	Cache    CacheConfig     `yaml:"cache"`
	Render   RenderConfig    `yaml:"render"`
	Cascade  CascadeConfig   `yaml:"cascade"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Title       string   `yaml:"title"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// PyramidConfig describes one served tile pyramid. Format selects the
// storage backend: "fs" for a tile directory, "mbtiles" for a SQLite
// tile database.
type PyramidConfig struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Mode   string `yaml:"mode"`
	Depth  int    `yaml:"depth"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	RenderSizeMB    int `yaml:"render_size_mb"`
	RenderTTLMins   int `yaml:"render_ttl_minutes"`
	BufferCacheSize int `yaml:"buffer_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	TileSize        int    `yaml:"tile_size"`
	DefaultColormap string `yaml:"default_colormap"`
}

// CascadeConfig contains tile merge settings.
type CascadeConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Title:       "skytiler",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Cache: CacheConfig{
			RenderSizeMB:    512,
			RenderTTLMins:   10,
			BufferCacheSize: 1024,
		},
		Render: RenderConfig{
			TileSize:        256,
			DefaultColormap: "viridis",
		},
		Cascade: CascadeConfig{
			Parallelism: 0, // 0 means one worker per CPU
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Cache.RenderSizeMB == 0 {
		cfg.Cache.RenderSizeMB = defaults.Cache.RenderSizeMB
	}
	if cfg.Cache.RenderTTLMins == 0 {
		cfg.Cache.RenderTTLMins = defaults.Cache.RenderTTLMins
	}
	if cfg.Cache.BufferCacheSize == 0 {
		cfg.Cache.BufferCacheSize = defaults.Cache.BufferCacheSize
	}
	if cfg.Render.TileSize == 0 {
		cfg.Render.TileSize = defaults.Render.TileSize
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
	for i := range cfg.Pyramids {
		p := &cfg.Pyramids[i]
		if p.Format == "" {
			p.Format = "fs"
		}
		if p.Mode == "" {
			p.Mode = "rgba"
		}
		if p.Title == "" {
			p.Title = p.ID
		}
	}
}

func validate(cfg *Config) error {
	seen := make(map[string]bool)
	for _, p := range cfg.Pyramids {
		if p.ID == "" {
			return fmt.Errorf("pyramid with path %q has no id", p.Path)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pyramid id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Path == "" {
			return fmt.Errorf("pyramid %q has no path", p.ID)
		}
		if p.Format != "fs" && p.Format != "mbtiles" {
			return fmt.Errorf("pyramid %q has unknown format %q", p.ID, p.Format)
		}
	}
	return nil
}
