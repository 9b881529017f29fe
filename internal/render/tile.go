// Package render turns tile buffers into PNG responses.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/pkg/colormap"
)

// Thumbnail dimensions, wide enough to preview a full-sky root tile.
const (
	ThumbWidth  = 96
	ThumbHeight = 45
)

// Config contains renderer configuration.
type Config struct {
	TileSize        int
	DefaultColormap string
}

// TileRenderer renders stored tiles as PNG. Bitmap tiles pass through;
// float tiles are normalized to a range and pushed through a colormap.
type TileRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewTileRenderer creates a new tile renderer.
func NewTileRenderer(cfg Config) *TileRenderer {
	if cfg.DefaultColormap == "" {
		cfg.DefaultColormap = "viridis"
	}
	return &TileRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// RenderTile renders buf as a PNG. flipRows reverses row order for
// stores that keep bottom-up tiles. For float tiles, samples are
// normalized to [lo, hi]; pass lo >= hi to fall back to the buffer's
// recorded range. Undefined samples come out transparent.
func (r *TileRenderer) RenderTile(buf *imagery.Buffer, flipRows bool, cmapName string, lo, hi float64) ([]byte, error) {
	img, err := r.rasterize(buf, flipRows, cmapName, lo, hi)
	if err != nil {
		return nil, err
	}
	return r.encodePNG(img)
}

// RenderThumbnail renders buf scaled down to ThumbWidth x ThumbHeight.
func (r *TileRenderer) RenderThumbnail(buf *imagery.Buffer, flipRows bool, cmapName string, lo, hi float64) ([]byte, error) {
	img, err := r.rasterize(buf, flipRows, cmapName, lo, hi)
	if err != nil {
		return nil, err
	}
	thumb := image.NewNRGBA(image.Rect(0, 0, ThumbWidth, ThumbHeight))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)
	return r.encodePNG(thumb)
}

// RenderPlaceholder draws the tile served for addresses with no stored
// data: a dark field with a faint quadrant grid.
func (r *TileRenderer) RenderPlaceholder() ([]byte, error) {
	size := float64(r.config.TileSize)
	dc := gg.NewContext(r.config.TileSize, r.config.TileSize)

	dc.SetColor(color.RGBA{24, 24, 32, 255})
	dc.Clear()

	dc.SetColor(color.RGBA{48, 48, 64, 255})
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, size-1, size-1)
	dc.Stroke()
	dc.DrawLine(size/2, 0, size/2, size)
	dc.DrawLine(0, size/2, size, size/2)
	dc.Stroke()

	return r.encodePNG(dc.Image())
}

func (r *TileRenderer) rasterize(buf *imagery.Buffer, flipRows bool, cmapName string, lo, hi float64) (image.Image, error) {
	if buf.Mode().IsFloat() {
		return r.rasterizeFloat(buf, flipRows, cmapName, lo, hi)
	}
	return rasterizeBitmap(buf, flipRows), nil
}

func rasterizeBitmap(buf *imagery.Buffer, flipRows bool) *image.NRGBA {
	w, h := buf.Width(), buf.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	pix := buf.Pix()
	ch := buf.Mode().Channels()
	for y := 0; y < h; y++ {
		srcY := y
		if flipRows {
			srcY = h - 1 - y
		}
		for x := 0; x < w; x++ {
			s := (srcY*w + x) * ch
			d := y*img.Stride + x*4
			img.Pix[d+0] = pix[s+0]
			img.Pix[d+1] = pix[s+1]
			img.Pix[d+2] = pix[s+2]
			if ch == 4 {
				img.Pix[d+3] = pix[s+3]
			} else {
				img.Pix[d+3] = 255
			}
		}
	}
	return img
}

func (r *TileRenderer) rasterizeFloat(buf *imagery.Buffer, flipRows bool, cmapName string, lo, hi float64) (*image.NRGBA, error) {
	cmap, ok := colormap.ByName(cmapName)
	if !ok {
		cmap, ok = colormap.ByName(r.config.DefaultColormap)
		if !ok {
			return nil, fmt.Errorf("unknown colormap %q", cmapName)
		}
	}
	if lo >= hi {
		blo, bhi, ok := buf.Range()
		if !ok || blo >= bhi {
			blo, bhi = 0, 1
		}
		lo, hi = blo, bhi
	}

	w, h := buf.Width(), buf.Height()
	ch := buf.Mode().Channels()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := y
		if flipRows {
			srcY = h - 1 - y
		}
		for x := 0; x < w; x++ {
			v := floatSample(buf, (srcY*w+x)*ch)
			d := y*img.Stride + x*4
			if math.IsNaN(v) {
				continue // leave transparent
			}
			c := color.NRGBAModel.Convert(cmap.At((v - lo) / (hi - lo))).(color.NRGBA)
			img.Pix[d+0] = c.R
			img.Pix[d+1] = c.G
			img.Pix[d+2] = c.B
			img.Pix[d+3] = 255
		}
	}
	return img, nil
}

// floatSample reads the first channel of the sample starting at i.
func floatSample(buf *imagery.Buffer, i int) float64 {
	switch buf.Mode() {
	case imagery.ModeF64:
		return buf.Float64()[i]
	default:
		return float64(buf.Float32()[i])
	}
}

func (r *TileRenderer) encodePNG(img image.Image) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
