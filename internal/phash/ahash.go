// Package phash computes the 64-bit average-hash (ahash) perceptual
// fingerprint the Change Detector compares via Hamming distance, and holds
// the per-window ChangeRecord table that turns a fingerprint into a verdict.
package phash

import (
	"image"
	"math/bits"
)

// Hash computes the average-hash of img: convert to luminance, downsample
// to 8x8 with a box filter, threshold against the mean, and pack the 64
// comparisons into a uint64 mask (bit i set iff pixel i >= mean).
//
// Satisfies P1: stable across runs, always exactly 64 bits of input.
func Hash(img image.Image) uint64 {
	const n = 8
	lum := downsampleLuma(img, n, n)

	var sum int
	for _, v := range lum {
		sum += int(v)
	}
	mean := sum / len(lum)

	var h uint64
	for i, v := range lum {
		if int(v) >= mean {
			h |= 1 << uint(i)
		}
	}
	return h
}

// downsampleLuma box-filters img down to w x h luminance samples in
// row-major order.
func downsampleLuma(img image.Image, w, h int) []uint8 {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	out := make([]uint8, w*h)
	if srcW == 0 || srcH == 0 {
		return out
	}

	for by := 0; by < h; by++ {
		y0 := bounds.Min.Y + by*srcH/h
		y1 := bounds.Min.Y + (by+1)*srcH/h
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for bx := 0; bx < w; bx++ {
			x0 := bounds.Min.X + bx*srcW/w
			x1 := bounds.Min.X + (bx+1)*srcW/w
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var total, count int
			for y := y0; y < y1 && y < bounds.Max.Y; y++ {
				for x := x0; x < x1 && x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// Rec. 601 luma, inputs are 16-bit per channel.
					l := (299*r + 587*g + 114*b) / 1000
					total += int(l >> 8)
					count++
				}
			}
			if count == 0 {
				count = 1
			}
			out[by*w+bx] = uint8(total / count)
		}
	}
	return out
}

// HammingDistance returns the number of differing bits between a and b.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
