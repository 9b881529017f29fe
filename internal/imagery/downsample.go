package imagery

import (
	"fmt"
	"math"
)

// DownsampleAverage reduces each non-overlapping 2x2 block of the input
// to one output pixel holding the mean of the block's defined samples.
// Absent samples are ignored; the output is the sentinel only when all
// four inputs are absent. A block with three absent samples and one
// defined sample therefore yields the defined value.
//
// The input's width and height must both be even. The output has the same
// mode and half the size in each dimension.
func DownsampleAverage(in *Buffer) (*Buffer, error) {
	if in.width%2 != 0 || in.height%2 != 0 {
		return nil, fmt.Errorf("cannot downsample %dx%d buffer: dimensions must be even", in.width, in.height)
	}
	out := NewBuffer(in.mode, in.width/2, in.height/2)

	switch in.mode {
	case ModeRGB:
		downsampleBitmap(in, out, 3, false)
	case ModeRGBA:
		downsampleBitmap(in, out, 4, true)
	case ModeF32, ModeF32x3:
		downsampleF32(in, out, in.mode.Channels())
	case ModeF64:
		downsampleF64(in, out)
	}
	return out, nil
}

func downsampleBitmap(in, out *Buffer, channels int, masked bool) {
	for oy := 0; oy < out.height; oy++ {
		for ox := 0; ox < out.width; ox++ {
			var sums [4]uint32
			defined := 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := 2*ox+dx, 2*oy+dy
					i := (y*in.width + x) * channels
					if masked && in.pix[i+3] == 0 {
						continue
					}
					defined++
					for c := 0; c < channels; c++ {
						sums[c] += uint32(in.pix[i+c])
					}
				}
			}
			o := (oy*out.width + ox) * channels
			if defined == 0 {
				// All four absent: emit the sentinel (zeroed, alpha=0).
				continue
			}
			n := uint32(defined)
			for c := 0; c < channels; c++ {
				out.pix[o+c] = uint8((sums[c] + n/2) / n)
			}
		}
	}
}

func downsampleF32(in, out *Buffer, channels int) {
	for oy := 0; oy < out.height; oy++ {
		for ox := 0; ox < out.width; ox++ {
			o := (oy*out.width + ox) * channels
			for c := 0; c < channels; c++ {
				var sum float64
				defined := 0
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						v := float64(in.f32[((2*oy+dy)*in.width+(2*ox+dx))*channels+c])
						if math.IsNaN(v) {
							continue
						}
						sum += v
						defined++
					}
				}
				if defined == 0 {
					out.f32[o+c] = float32(math.NaN())
				} else {
					out.f32[o+c] = float32(sum / float64(defined))
				}
			}
		}
	}
}

func downsampleF64(in, out *Buffer) {
	for oy := 0; oy < out.height; oy++ {
		for ox := 0; ox < out.width; ox++ {
			var sum float64
			defined := 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					v := in.f64[(2*oy+dy)*in.width+(2*ox+dx)]
					if math.IsNaN(v) {
						continue
					}
					sum += v
					defined++
				}
			}
			if defined == 0 {
				out.f64[oy*out.width+ox] = math.NaN()
			} else {
				out.f64[oy*out.width+ox] = sum / float64(defined)
			}
		}
	}
}
