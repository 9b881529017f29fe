// Package imagery implements the pixel payloads carried by pyramid tiles:
// fixed-size buffers in a handful of bitmap and floating-point modes, with
// an "absent" sentinel (alpha=0 or NaN) marking pixels that have no source
// data, plus the 2x2 averaging reduction used when merging tile quartets.
package imagery

import "fmt"

// Mode describes a tile's pixel data format. All tiles in one pyramid
// share a single mode and dimensions.
type Mode int

const (
	// ModeRGB is 8-bit three-channel color with no alpha.
	ModeRGB Mode = iota
	// ModeRGBA is 8-bit four-channel color; alpha=0 marks absent pixels.
	ModeRGBA
	// ModeF32 is single-channel float32; NaN marks absent samples.
	ModeF32
	// ModeF64 is single-channel float64; NaN marks absent samples.
	ModeF64
	// ModeF32x3 is three-channel float32; NaN marks absent samples.
	ModeF32x3
)

// Channels returns the number of samples per pixel.
func (m Mode) Channels() int {
	switch m {
	case ModeRGB:
		return 3
	case ModeRGBA:
		return 4
	case ModeF32, ModeF64:
		return 1
	case ModeF32x3:
		return 3
	}
	panic(fmt.Sprintf("imagery: unhandled mode %d", m))
}

// IsFloat reports whether the mode stores floating-point samples. Float
// modes carry the (min, max) range side channel through merges.
func (m Mode) IsFloat() bool {
	switch m {
	case ModeF32, ModeF64, ModeF32x3:
		return true
	}
	return false
}

// Maskable returns the mode able to represent absent pixels for this mode.
// RGB has no alpha channel, so its maskable counterpart is RGBA; every
// other mode can hold its own sentinel.
func (m Mode) Maskable() Mode {
	if m == ModeRGB {
		return ModeRGBA
	}
	return m
}

func (m Mode) String() string {
	switch m {
	case ModeRGB:
		return "rgb"
	case ModeRGBA:
		return "rgba"
	case ModeF32:
		return "f32"
	case ModeF64:
		return "f64"
	case ModeF32x3:
		return "f32x3"
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rgb":
		return ModeRGB, nil
	case "rgba":
		return ModeRGBA, nil
	case "f32":
		return ModeF32, nil
	case "f64":
		return ModeF64, nil
	case "f32x3":
		return ModeF32x3, nil
	}
	return 0, fmt.Errorf("unknown tile mode: %q", s)
}
