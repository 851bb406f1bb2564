// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"math"
	"sync"
)

// kernels caches Gaussian kernels by sigma in hundredths of a pixel.
var kernels sync.Map // map[int][]float32

// gaussianKernel returns a normalized 1D kernel of size 2*ceil(3*sigma)+1.
// A non-positive sigma yields the identity kernel.
func gaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	key := int(math.Round(sigma * 100))
	if k, ok := kernels.Load(key); ok {
		return k.([]float32)
	}

	half := int(math.Ceil(sigma * 3))
	k := make([]float32, 2*half+1)
	twoSigmaSq := 2 * sigma * sigma
	var sum float64
	for i := range k {
		x := float64(i - half)
		v := math.Exp(-(x * x) / twoSigmaSq)
		k[i] = float32(v)
		sum += v
	}
	inv := float32(1 / sum)
	for i := range k {
		k[i] *= inv
	}
	kernels.Store(key, k)
	return k
}

// blurRGBA blurs img in place. Pixels outside img count as transparent.
func blurRGBA(img *image.RGBA, sigmaX, sigmaY float64) {
	b := img.Bounds()
	blurPlanes(img.Pix, img.Stride, b.Dx(), b.Dy(), 4, sigmaX, sigmaY)
}

// blurAlpha blurs mask in place. Pixels outside mask count as zero.
func blurAlpha(mask *image.Alpha, sigmaX, sigmaY float64) {
	b := mask.Bounds()
	blurPlanes(mask.Pix, mask.Stride, b.Dx(), b.Dy(), 1, sigmaX, sigmaY)
}

// blurPlanes runs a separable Gaussian blur over interleaved 8-bit
// channels: a horizontal pass into a float buffer, then a vertical pass
// back into pix.
func blurPlanes(pix []uint8, stride, w, h, channels int, sigmaX, sigmaY float64) {
	if w <= 0 || h <= 0 || (sigmaX <= 0 && sigmaY <= 0) {
		return
	}
	kx, ky := gaussianKernel(sigmaX), gaussianKernel(sigmaY)
	hx, hy := len(kx)/2, len(ky)/2
	row := w * channels
	tmp := make([]float32, row*h)

	for y := range h {
		src := pix[y*stride : y*stride+row]
		dst := tmp[y*row : (y+1)*row]
		for x := range w {
			lo, hi := max(x-hx, 0), min(x+hx, w-1)
			for c := range channels {
				var acc float32
				for sx := lo; sx <= hi; sx++ {
					acc += kx[sx-x+hx] * float32(src[sx*channels+c])
				}
				dst[x*channels+c] = acc
			}
		}
	}

	for y := range h {
		lo, hi := max(y-hy, 0), min(y+hy, h-1)
		dst := pix[y*stride : y*stride+row]
		for i := range row {
			var acc float32
			for sy := lo; sy <= hi; sy++ {
				acc += ky[sy-y+hy] * tmp[sy*row+i]
			}
			dst[i] = clampByte(acc)
		}
	}
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
