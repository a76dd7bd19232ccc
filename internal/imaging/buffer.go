package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrNoImageLoaded is returned when an operation needs pixel data and the
	// buffer is nil, zero-sized, or could not be decoded.
	ErrNoImageLoaded = errors.New("no image loaded")

	// ErrDecodeFailure marks errors from the external decoder. It is always
	// joined with ErrNoImageLoaded.
	ErrDecodeFailure = errors.New("failed to decode image")

	// ErrInvalidDimensions is returned for non-positive sizes, negative radii
	// and pixel slices whose length does not match width*height.
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)

// MaxDimension bounds the side length of synthesized images and of scaled
// render output.
const MaxDimension = 16384

// Buffer is a dense, row-major grid of 8-bit single-channel intensity samples.
//
// The invariant len(Pix) == Width*Height holds for every Buffer produced by
// this package. Operations never mutate a Buffer they receive; transformations
// return a new Buffer.
type Buffer struct {
	// Width is the number of columns in pixels.
	Width int `json:"width"`

	// Height is the number of rows in pixels.
	Height int `json:"height"`

	// Pix holds Width*Height samples; the sample at (x, y) is Pix[y*Width+x].
	Pix []uint8 `json:"-"`
}

// NewBuffer allocates an all-zero buffer of the given size.
func NewBuffer(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}, nil
}

// FromPixels builds a buffer from an already-decoded dense 8-bit buffer.
// The samples are copied so later changes to pix do not leak into the buffer.
func FromPixels(width, height int, pix []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidDimensions, len(pix), width, height)
	}
	b := &Buffer{Width: width, Height: height, Pix: make([]uint8, len(pix))}
	copy(b.Pix, pix)
	return b, nil
}

// FromImage converts any image to a single-channel buffer.
//
// *image.Gray sources are copied directly. Everything else is reduced to
// luminance using the ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B),
// the same weighting used for edge detection throughout this package.
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, ErrNoImageLoaded
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	b, err := NewBuffer(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoImageLoaded, err)
	}

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+width]
			copy(b.Pix[y*width:(y+1)*width], row)
		}
		return b, nil
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, gr, bl, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum := float64(r>>8)*0.299 + float64(gr>>8)*0.587 + float64(bl>>8)*0.114
			b.Pix[y*width+x] = uint8(lum + 0.5)
		}
	}
	return b, nil
}

// Empty reports whether the buffer holds no usable image data.
func (b *Buffer) Empty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0 || len(b.Pix) != b.Width*b.Height
}

// RequireImage returns ErrNoImageLoaded when b is empty.
func RequireImage(b *Buffer) error {
	if b.Empty() {
		return ErrNoImageLoaded
	}
	return nil
}

// InBounds reports whether (x, y) addresses a sample inside the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// At returns the sample at (x, y). No bounds checking is performed; callers
// must use InBounds first when coordinates may fall outside the image.
func (b *Buffer) At(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}

// Pixels returns a copy of the samples in row-major order.
func (b *Buffer) Pixels() []uint8 {
	out := make([]uint8, len(b.Pix))
	copy(out, b.Pix)
	return out
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{Width: b.Width, Height: b.Height, Pix: b.Pixels()}
}

// ToGray returns the buffer as a standard library grayscale image. The pixel
// data is copied, so the result may be handed to encoders or display code.
func (b *Buffer) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	copy(g.Pix, b.Pix)
	return g
}

// bufferImage adapts a Buffer to image.Image for the convolution and encode
// helpers.
type bufferImage struct{ *Buffer }

func (bi bufferImage) ColorModel() color.Model { return color.GrayModel }

func (bi bufferImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, bi.Width, bi.Height)
}

func (bi bufferImage) At(x, y int) color.Color {
	if !bi.InBounds(x, y) {
		return color.Gray{}
	}
	return color.Gray{Y: bi.Buffer.At(x, y)}
}

// Image returns a read-only image.Image view over the buffer without copying.
func (b *Buffer) Image() image.Image {
	return bufferImage{b}
}
