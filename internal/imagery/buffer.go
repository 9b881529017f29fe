package imagery

import (
	"fmt"
	"math"
)

// Buffer is one tile's pixel payload: a width x height grid of samples in
// a single Mode. Buffers handed to concurrent readers must be treated as
// read-only.
type Buffer struct {
	mode   Mode
	width  int
	height int

	// Exactly one of these backs the buffer, chosen by mode.
	pix []uint8
	f32 []float32
	f64 []float64

	dataMin  float64
	dataMax  float64
	hasRange bool
}

// NewBuffer allocates a zeroed buffer. For maskable modes the zero value
// is the absent sentinel for bitmap data (alpha=0) but not for float data;
// use Clear to fill any buffer with its mode's sentinel.
func NewBuffer(mode Mode, width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("imagery: invalid buffer dimensions %dx%d", width, height))
	}
	b := &Buffer{mode: mode, width: width, height: height}
	n := width * height * mode.Channels()
	switch mode {
	case ModeRGB, ModeRGBA:
		b.pix = make([]uint8, n)
	case ModeF32, ModeF32x3:
		b.f32 = make([]float32, n)
	case ModeF64:
		b.f64 = make([]float64, n)
	default:
		panic(fmt.Sprintf("imagery: unhandled mode %d", mode))
	}
	return b
}

// NewMaskableBuffer allocates a buffer in the mode's maskable counterpart
// and fills it with the absent sentinel. This is the combined buffer a
// merge assembles child quartets into.
func NewMaskableBuffer(mode Mode, width, height int) *Buffer {
	b := NewBuffer(mode.Maskable(), width, height)
	b.Clear()
	return b
}

func (b *Buffer) Mode() Mode  { return b.mode }
func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Pix returns the raw samples of a bitmap-mode buffer, row-major,
// channel-interleaved. Nil for float modes.
func (b *Buffer) Pix() []uint8 { return b.pix }

// Float32 returns the raw samples of an F32 or F32x3 buffer. Nil otherwise.
func (b *Buffer) Float32() []float32 { return b.f32 }

// Float64 returns the raw samples of an F64 buffer. Nil otherwise.
func (b *Buffer) Float64() []float64 { return b.f64 }

// SetRange records the (min, max) sample statistics side channel.
func (b *Buffer) SetRange(min, max float64) {
	b.dataMin = min
	b.dataMax = max
	b.hasRange = true
}

// Range returns the recorded (min, max) statistics, if any.
func (b *Buffer) Range() (min, max float64, ok bool) {
	return b.dataMin, b.dataMax, b.hasRange
}

// Clear fills the buffer with its mode's absent sentinel: zeroed pixels
// (alpha=0) for bitmap modes, NaN for float modes. RGB cannot represent
// absence; clearing it just zeroes the samples.
func (b *Buffer) Clear() {
	switch b.mode {
	case ModeRGB, ModeRGBA:
		for i := range b.pix {
			b.pix[i] = 0
		}
	case ModeF32, ModeF32x3:
		nan := float32(math.NaN())
		for i := range b.f32 {
			b.f32[i] = nan
		}
	case ModeF64:
		nan := math.NaN()
		for i := range b.f64 {
			b.f64[i] = nan
		}
	}
}

// DefinedAt reports whether the pixel at (x, y) carries data: nonzero
// alpha for RGBA, a non-NaN first sample for float modes. RGB pixels are
// always defined.
func (b *Buffer) DefinedAt(x, y int) bool {
	c := b.mode.Channels()
	i := (y*b.width + x) * c
	switch b.mode {
	case ModeRGB:
		return true
	case ModeRGBA:
		return b.pix[i+3] != 0
	case ModeF32, ModeF32x3:
		return !math.IsNaN(float64(b.f32[i]))
	case ModeF64:
		return !math.IsNaN(b.f64[i])
	}
	return false
}

// CopyInto blits this buffer into dst with its top-left corner at
// (colOff, rowOff). The destination must be in the source mode's maskable
// counterpart; RGB sources are promoted to RGBA with alpha 255.
func (b *Buffer) CopyInto(dst *Buffer, rowOff, colOff int) error {
	if dst.mode != b.mode.Maskable() {
		return fmt.Errorf("cannot copy %s buffer into %s buffer", b.mode, dst.mode)
	}
	if rowOff < 0 || colOff < 0 || rowOff+b.height > dst.height || colOff+b.width > dst.width {
		return fmt.Errorf("copy of %dx%d buffer at (%d,%d) exceeds %dx%d destination",
			b.width, b.height, colOff, rowOff, dst.width, dst.height)
	}

	switch b.mode {
	case ModeRGB:
		for y := 0; y < b.height; y++ {
			src := b.pix[y*b.width*3:]
			out := dst.pix[((rowOff+y)*dst.width+colOff)*4:]
			for x := 0; x < b.width; x++ {
				out[x*4+0] = src[x*3+0]
				out[x*4+1] = src[x*3+1]
				out[x*4+2] = src[x*3+2]
				out[x*4+3] = 255
			}
		}
	case ModeRGBA:
		for y := 0; y < b.height; y++ {
			copy(dst.pix[((rowOff+y)*dst.width+colOff)*4:], b.pix[y*b.width*4:(y+1)*b.width*4])
		}
	case ModeF32, ModeF32x3:
		c := b.mode.Channels()
		for y := 0; y < b.height; y++ {
			copy(dst.f32[((rowOff+y)*dst.width+colOff)*c:], b.f32[y*b.width*c:(y+1)*b.width*c])
		}
	case ModeF64:
		for y := 0; y < b.height; y++ {
			copy(dst.f64[(rowOff+y)*dst.width+colOff:], b.f64[y*b.width:(y+1)*b.width])
		}
	}
	return nil
}

// Clone returns a deep copy of the buffer, including its range statistics.
func (b *Buffer) Clone() *Buffer {
	out := NewBuffer(b.mode, b.width, b.height)
	copy(out.pix, b.pix)
	copy(out.f32, b.f32)
	copy(out.f64, b.f64)
	out.dataMin, out.dataMax, out.hasRange = b.dataMin, b.dataMax, b.hasRange
	return out
}

// Equal reports bit-exact sample equality, treating NaNs at matching
// positions as equal. Range statistics are not compared.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.mode != other.mode || b.width != other.width || b.height != other.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != other.pix[i] {
			return false
		}
	}
	for i := range b.f32 {
		if math.Float32bits(b.f32[i]) != math.Float32bits(other.f32[i]) {
			return false
		}
	}
	for i := range b.f64 {
		if math.Float64bits(b.f64[i]) != math.Float64bits(other.f64[i]) {
			return false
		}
	}
	return true
}
