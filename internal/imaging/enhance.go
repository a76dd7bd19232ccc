package imaging

import (
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/convolution"
)

// laplacian3 is the 3×3 aperture Laplacian (second-derivative Sobel sum).
var laplacian3 = [9]float64{
	2, 0, 2,
	0, -8, 0,
	2, 0, 2,
}

// EnhanceEdges sharpens boundaries by adding the Laplacian response back onto
// the source image.
//
// The Laplacian is computed with border extension and saturated to the 8-bit
// range, so negative responses contribute nothing. The sum with the source is
// saturated at 255. The input buffer is left untouched.
func EnhanceEdges(b *Buffer) (*Buffer, error) {
	if err := RequireImage(b); err != nil {
		return nil, err
	}

	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, laplacian3[:])

	src := b.Image()
	lap := convolution.Convolve(src, k, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})
	return fromRGBA(blend.Add(src, lap)), nil
}
