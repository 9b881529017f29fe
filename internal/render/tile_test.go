package render

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/skytiler/skytiler/internal/imagery"
)

func decodePNG(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		b := img.Bounds()
		nrgba = image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				nrgba.Set(x, y, img.At(x, y))
			}
		}
	}
	return nrgba
}

func TestRenderBitmapPassThrough(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 2})
	buf := imagery.NewBuffer(imagery.ModeRGB, 2, 2)
	copy(buf.Pix(), []uint8{
		255, 0, 0 /**/, 0, 255, 0,
		0, 0, 255 /**/, 255, 255, 255,
	})

	data, err := r.RenderTile(buf, false, "", 0, 0)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	img := decodePNG(t, data)
	if got := img.NRGBAAt(0, 0); got.R != 255 || got.G != 0 || got.A != 255 {
		t.Fatalf("expected opaque red at (0,0), got %v", got)
	}
	if got := img.NRGBAAt(1, 1); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Fatalf("expected white at (1,1), got %v", got)
	}
}

func TestRenderBitmapFlipRows(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 2})
	buf := imagery.NewBuffer(imagery.ModeRGB, 2, 2)
	copy(buf.Pix(), []uint8{
		255, 0, 0 /**/, 255, 0, 0,
		0, 0, 255 /**/, 0, 0, 255,
	})

	data, err := r.RenderTile(buf, true, "", 0, 0)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	img := decodePNG(t, data)
	if got := img.NRGBAAt(0, 0); got.B != 255 {
		t.Fatalf("expected bottom row first after flip, got %v", got)
	}
	if got := img.NRGBAAt(0, 1); got.R != 255 {
		t.Fatalf("expected top row last after flip, got %v", got)
	}
}

func TestRenderFloatColormapAndSentinel(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 2, DefaultColormap: "gray"})
	buf := imagery.NewBuffer(imagery.ModeF32, 2, 2)
	copy(buf.Float32(), []float32{0, 1, float32(math.NaN()), 0.5})

	data, err := r.RenderTile(buf, false, "gray", 0, 1)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	img := decodePNG(t, data)

	if got := img.NRGBAAt(0, 0); got.R != 0 || got.A != 255 {
		t.Fatalf("expected black at low end, got %v", got)
	}
	if got := img.NRGBAAt(1, 0); got.R != 255 {
		t.Fatalf("expected white at high end, got %v", got)
	}
	if got := img.NRGBAAt(0, 1); got.A != 0 {
		t.Fatalf("expected transparent for undefined sample, got %v", got)
	}
}

func TestRenderFloatUsesBufferRange(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 2, DefaultColormap: "gray"})
	buf := imagery.NewBuffer(imagery.ModeF32, 2, 2)
	copy(buf.Float32(), []float32{10, 20, 20, 20})
	buf.SetRange(10, 20)

	data, err := r.RenderTile(buf, false, "gray", 0, 0)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	img := decodePNG(t, data)
	if got := img.NRGBAAt(0, 0); got.R != 0 {
		t.Fatalf("expected recorded minimum to map to black, got %v", got)
	}
	if got := img.NRGBAAt(1, 0); got.R != 255 {
		t.Fatalf("expected recorded maximum to map to white, got %v", got)
	}
}

func TestRenderThumbnailDimensions(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 8})
	buf := imagery.NewBuffer(imagery.ModeRGBA, 8, 8)
	for i := range buf.Pix() {
		buf.Pix()[i] = 128
	}

	data, err := r.RenderThumbnail(buf, false, "", 0, 0)
	if err != nil {
		t.Fatalf("RenderThumbnail: %v", err)
	}
	img := decodePNG(t, data)
	if img.Bounds().Dx() != ThumbWidth || img.Bounds().Dy() != ThumbHeight {
		t.Fatalf("unexpected thumbnail size %v", img.Bounds())
	}
}

func TestRenderPlaceholder(t *testing.T) {
	r := NewTileRenderer(Config{TileSize: 16})
	data, err := r.RenderPlaceholder()
	if err != nil {
		t.Fatalf("RenderPlaceholder: %v", err)
	}
	img := decodePNG(t, data)
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("unexpected placeholder size %v", img.Bounds())
	}
}
