package imagery

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Bitmap tiles are interchanged as PNG; float tiles use a small framed
// format: a fixed header followed by a zstd stream of little-endian
// samples, bottom row first (the FITS row convention).

// floatMagic opens every framed float tile.
var floatMagic = [4]byte{'S', 'K', 'Y', 'T'}

const floatCodecVersion = 1

const (
	flagHasRange = 1 << 0
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeTile serializes a buffer to its mode's interchange format.
func EncodeTile(b *Buffer) ([]byte, error) {
	switch b.mode {
	case ModeRGB, ModeRGBA:
		return encodePNG(b)
	case ModeF32, ModeF64, ModeF32x3:
		return encodeFloat(b), nil
	}
	return nil, fmt.Errorf("cannot encode tile mode %s", b.mode)
}

// DecodeTile deserializes a tile payload, sniffing the format from its
// leading bytes. PNG payloads always decode to RGBA buffers.
func DecodeTile(data []byte) (*Buffer, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], floatMagic[:]) {
		return decodeFloat(data)
	}
	return decodePNG(data)
}

func encodePNG(b *Buffer) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	switch b.mode {
	case ModeRGBA:
		copy(img.Pix, b.pix)
	case ModeRGB:
		for i := 0; i < b.width*b.height; i++ {
			img.Pix[i*4+0] = b.pix[i*3+0]
			img.Pix[i*4+1] = b.pix[i*3+1]
			img.Pix[i*4+2] = b.pix[i*3+2]
			img.Pix[i*4+3] = 255
		}
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePNG(data []byte) (*Buffer, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("png decode failed: %w", err)
	}
	bounds := img.Bounds()
	b := NewBuffer(ModeRGBA, bounds.Dx(), bounds.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*bounds.Dx() {
		copy(b.pix, nrgba.Pix)
		return b, nil
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			b.pix[i+0] = c.R
			b.pix[i+1] = c.G
			b.pix[i+2] = c.B
			b.pix[i+3] = c.A
			i += 4
		}
	}
	return b, nil
}

func encodeFloat(b *Buffer) []byte {
	var payload []byte
	switch b.mode {
	case ModeF32, ModeF32x3:
		payload = make([]byte, len(b.f32)*4)
		for i, v := range b.f32 {
			binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
		}
	case ModeF64:
		payload = make([]byte, len(b.f64)*8)
		for i, v := range b.f64 {
			binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
		}
	}

	header := make([]byte, 31)
	copy(header, floatMagic[:])
	header[4] = floatCodecVersion
	header[5] = byte(b.mode)
	if b.hasRange {
		header[6] = flagHasRange
	}
	binary.LittleEndian.PutUint32(header[7:], uint32(b.width))
	binary.LittleEndian.PutUint32(header[11:], uint32(b.height))
	binary.LittleEndian.PutUint64(header[15:], math.Float64bits(b.dataMin))
	binary.LittleEndian.PutUint64(header[23:], math.Float64bits(b.dataMax))

	return append(header, zstdEncoder.EncodeAll(payload, nil)...)
}

func decodeFloat(data []byte) (*Buffer, error) {
	if len(data) < 31 {
		return nil, fmt.Errorf("float tile truncated: %d bytes", len(data))
	}
	if data[4] != floatCodecVersion {
		return nil, fmt.Errorf("unsupported float tile version %d", data[4])
	}
	mode := Mode(data[5])
	if !mode.IsFloat() {
		return nil, fmt.Errorf("float tile header carries non-float mode %d", data[5])
	}
	flags := data[6]
	width := int(binary.LittleEndian.Uint32(data[7:]))
	height := int(binary.LittleEndian.Uint32(data[11:]))
	if width <= 0 || height <= 0 || width > 1<<16 || height > 1<<16 {
		return nil, fmt.Errorf("float tile has implausible dimensions %dx%d", width, height)
	}

	payload, err := zstdDecoder.DecodeAll(data[31:], nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %w", err)
	}

	b := NewBuffer(mode, width, height)
	switch mode {
	case ModeF32, ModeF32x3:
		if len(payload) != len(b.f32)*4 {
			return nil, fmt.Errorf("float tile payload is %d bytes, want %d", len(payload), len(b.f32)*4)
		}
		for i := range b.f32 {
			b.f32[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
	case ModeF64:
		if len(payload) != len(b.f64)*8 {
			return nil, fmt.Errorf("float tile payload is %d bytes, want %d", len(payload), len(b.f64)*8)
		}
		for i := range b.f64 {
			b.f64[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		}
	}

	if flags&flagHasRange != 0 {
		b.SetRange(
			math.Float64frombits(binary.LittleEndian.Uint64(data[15:])),
			math.Float64frombits(binary.LittleEndian.Uint64(data[23:])),
		)
	}
	return b, nil
}
