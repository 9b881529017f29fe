// Package mbstore persists tiles in a single SQLite file using the
// MBTiles table layout: one tiles table addressed by zoom/column/row
// plus a key-value metadata table.
package mbstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// Store is a SQLite-backed tile store. Rows follow the TMS convention,
// counting from the bottom of the grid, so addresses are flipped on the
// way in and out. SQLite serializes writers, so a single mutex guards
// the write path.
type Store struct {
	db   *sql.DB
	mode imagery.Mode
	mu   sync.Mutex
}

// New opens (or creates) a tile database at dbPath.
func New(dbPath string, mode imagery.Mode) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db, mode: mode}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL,
		tile_row INTEGER NOT NULL,
		tile_data BLOB NOT NULL,
		data_min REAL,
		data_max REAL,
		PRIMARY KEY (zoom_level, tile_column, tile_row)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetMetadata("format", s.tileFormat())
}

func (s *Store) tileFormat() string {
	if s.mode.IsFloat() {
		return "skyt"
	}
	return "png"
}

// Mode returns the sample mode this store was opened with.
func (s *Store) Mode() imagery.Mode {
	return s.mode
}

// SetMetadata stores a metadata name/value pair, replacing any previous
// value.
func (s *Store) SetMetadata(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO metadata (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to write metadata %q: %w", name, err)
	}
	return nil
}

// Metadata returns the stored value for name, or "" if absent.
func (s *Store) Metadata(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %q: %w", name, err)
	}
	return value, nil
}

// tmsRow converts between top-of-grid rows and TMS rows, which count
// from the bottom. The conversion is its own inverse.
func tmsRow(depth, y int) int {
	return (1 << depth) - 1 - y
}

// ReadTile loads and decodes the tile at addr. A missing row is
// reported as (nil, nil).
func (s *Store) ReadTile(addr pyramid.Address) (*imagery.Buffer, error) {
	var data []byte
	var dataMin, dataMax sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT tile_data, data_min, data_max FROM tiles
		WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?
	`, addr.Depth, addr.X, tmsRow(addr.Depth, addr.Y)).Scan(&data, &dataMin, &dataMax)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %s: %w", addr, err)
	}

	buf, err := imagery.DecodeTile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", addr, err)
	}
	if dataMin.Valid && dataMax.Valid {
		buf.SetRange(dataMin.Float64, dataMax.Float64)
	}
	return buf, nil
}

// WriteTile encodes and upserts the tile at addr.
func (s *Store) WriteTile(addr pyramid.Address, buf *imagery.Buffer) error {
	data, err := imagery.EncodeTile(buf)
	if err != nil {
		return fmt.Errorf("failed to encode tile %s: %w", addr, err)
	}

	var dataMin, dataMax sql.NullFloat64
	if lo, hi, ok := buf.Range(); ok {
		dataMin = sql.NullFloat64{Float64: lo, Valid: true}
		dataMax = sql.NullFloat64{Float64: hi, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data, data_min, data_max)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(zoom_level, tile_column, tile_row) DO UPDATE SET
			tile_data = excluded.tile_data,
			data_min = excluded.data_min,
			data_max = excluded.data_max
	`, addr.Depth, addr.X, tmsRow(addr.Depth, addr.Y), data, dataMin, dataMax)
	if err != nil {
		return fmt.Errorf("failed to write tile %s: %w", addr, err)
	}
	return nil
}

// TileCount reports the number of stored tiles.
func (s *Store) TileCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// VerticalParitySign reports the row order of stored tiles. PNG files
// are top-down; the float format keeps bottom-up rows.
func (s *Store) VerticalParitySign() store.ParitySign {
	if s.mode.IsFloat() {
		return store.ParityBottomUp
	}
	return store.ParityTopDown
}
