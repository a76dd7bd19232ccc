package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// Default test pattern dimensions, matching the "Generate Test Image" action.
const (
	DefaultTestWidth  = 500
	DefaultTestHeight = 500
	DefaultTestRadius = 200
)

// BlurParams configures the isotropic Gaussian used to simulate optical blur.
type BlurParams struct {
	// KernelSize is the side length of the square kernel. Must be odd and > 0.
	KernelSize int `json:"kernel_size" yaml:"kernelSize"`

	// Sigma is the standard deviation of the Gaussian in pixels. Must be > 0.
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// DefaultBlur returns the 5×5, σ=2.0 smoothing filter.
func DefaultBlur() BlurParams {
	return BlurParams{KernelSize: 5, Sigma: 2.0}
}

// Validate checks that the kernel is odd and positive and sigma is positive.
func (p BlurParams) Validate() error {
	if p.KernelSize <= 0 || p.KernelSize%2 == 0 {
		return fmt.Errorf("%w: blur kernel size must be odd and positive, got %d", ErrInvalidDimensions, p.KernelSize)
	}
	if p.Sigma <= 0 || math.IsNaN(p.Sigma) || math.IsInf(p.Sigma, 0) {
		return fmt.Errorf("%w: blur sigma must be positive, got %v", ErrInvalidDimensions, p.Sigma)
	}
	return nil
}

// GenerateTestImage synthesizes the default 500×500 calibration target with a
// disk of radius 200.
func GenerateTestImage() *Buffer {
	b, _ := Synthesize(DefaultTestWidth, DefaultTestHeight, DefaultTestRadius)
	return b
}

// Synthesize produces a calibration image containing a blurred filled disk,
// using the default 5×5, σ=2.0 blur.
func Synthesize(width, height, radius int) (*Buffer, error) {
	return SynthesizeWithBlur(width, height, radius, DefaultBlur())
}

// SynthesizeWithBlur produces a width×height image containing a solid disk of
// the given radius centered at (width/2, height/2), then smooths it with the
// supplied Gaussian.
//
// The disk is drawn at maximum intensity (255) over a zero background. A
// radius larger than half the smaller dimension yields a disk clipped to the
// image edges. The output depends only on the arguments.
//
// # Errors
//
//   - ErrInvalidDimensions if width or height is not positive, radius is
//     negative, any of the three exceeds MaxDimension, or the blur
//     parameters are invalid.
func SynthesizeWithBlur(width, height, radius int, blur BlurParams) (*Buffer, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius must be non-negative, got %d", ErrInvalidDimensions, radius)
	}
	if width > MaxDimension || height > MaxDimension || radius > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d radius %d exceeds the %d pixel limit",
			ErrInvalidDimensions, width, height, radius, MaxDimension)
	}
	if err := blur.Validate(); err != nil {
		return nil, err
	}
	disk, err := NewBuffer(width, height)
	if err != nil {
		return nil, err
	}

	cx, cy := width/2, height/2
	r2 := radius * radius
	for y := 0; y < height; y++ {
		dy := y - cy
		for x := 0; x < width; x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				disk.Pix[y*width+x] = 255
			}
		}
	}

	return GaussianBlur(disk, blur)
}

// GaussianBlur convolves b with a normalized square Gaussian kernel. Border
// pixels are extended (clamped) rather than wrapped.
func GaussianBlur(b *Buffer, p BlurParams) (*Buffer, error) {
	if err := RequireImage(b); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	k := gaussianKernel(p.KernelSize, p.Sigma)
	out := convolution.Convolve(b.Image(), k, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})
	return fromRGBA(out), nil
}

// gaussianKernel builds a size×size Gaussian weight matrix normalized to sum 1.
func gaussianKernel(size int, sigma float64) *convolution.Kernel {
	k := convolution.NewKernel(size, size)
	half := size / 2
	denom := 2 * sigma * sigma
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x-half), float64(y-half)
			w := math.Exp(-(dx*dx + dy*dy) / denom)
			k.Matrix[y*size+x] = w
			sum += w
		}
	}
	for i := range k.Matrix {
		k.Matrix[i] /= sum
	}
	return k
}

// fromRGBA takes the red channel of a convolution result. The inputs to the
// convolutions in this package are gray, so all color channels are equal.
func fromRGBA(img *image.RGBA) *Buffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	b := &Buffer{Width: width, Height: height, Pix: make([]uint8, width*height)}
	for y := 0; y < height; y++ {
		off := y * img.Stride
		for x := 0; x < width; x++ {
			b.Pix[y*width+x] = img.Pix[off+x*4]
		}
	}
	return b
}
