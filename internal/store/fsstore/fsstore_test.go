package fsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

func TestReadWriteRoundTrip(t *testing.T) {
	st, err := New(t.TempDir(), imagery.ModeRGBA)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	addr := pyramid.Address{Depth: 2, X: 3, Y: 1}
	buf := imagery.NewBuffer(imagery.ModeRGBA, 4, 4)
	for i := range buf.Pix() {
		buf.Pix()[i] = uint8(i * 7)
	}

	if err := st.WriteTile(addr, buf); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	got, err := st.ReadTile(addr)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if got == nil || !got.Equal(buf) {
		t.Fatal("round trip changed tile contents")
	}

	want := filepath.Join("2", "1", "1_3.png")
	if _, err := os.Stat(filepath.Join(st.root, want)); err != nil {
		t.Fatalf("expected tile at %s: %v", want, err)
	}
}

func TestMissingTileIsNilNil(t *testing.T) {
	st, err := New(t.TempDir(), imagery.ModeRGBA)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf, err := st.ReadTile(pyramid.Root)
	if buf != nil || err != nil {
		t.Fatalf("expected (nil, nil) for missing tile, got %v %v", buf, err)
	}
}

func TestParityFollowsFormat(t *testing.T) {
	dir := t.TempDir()

	png, err := New(filepath.Join(dir, "png"), imagery.ModeRGB)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if png.VerticalParitySign() != store.ParityTopDown {
		t.Fatal("expected top-down parity for bitmap tiles")
	}

	flt, err := New(filepath.Join(dir, "flt"), imagery.ModeF32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if flt.VerticalParitySign() != store.ParityBottomUp {
		t.Fatal("expected bottom-up parity for float tiles")
	}
	if filepath.Ext(flt.TilePath(pyramid.Root)) != ".skyt" {
		t.Fatalf("unexpected float extension in %s", flt.TilePath(pyramid.Root))
	}
}

func TestFloatRoundTripKeepsRange(t *testing.T) {
	st, err := New(t.TempDir(), imagery.ModeF32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := imagery.NewBuffer(imagery.ModeF32, 2, 2)
	copy(buf.Float32(), []float32{0.5, 1.5, 2.5, 3.5})
	buf.SetRange(0.5, 3.5)

	addr := pyramid.Address{Depth: 1, X: 0, Y: 1}
	if err := st.WriteTile(addr, buf); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	got, err := st.ReadTile(addr)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	lo, hi, ok := got.Range()
	if !ok || lo != 0.5 || hi != 3.5 {
		t.Fatalf("expected range [0.5, 3.5], got [%g, %g] ok=%v", lo, hi, ok)
	}
}
