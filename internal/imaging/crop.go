package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidROI is returned when a region of interest is empty or not fully
// contained in the image.
var ErrInvalidROI = errors.New("invalid region of interest")

// ROI is an axis-aligned rectangle in pixel coordinates. (X, Y) is the
// top-left corner (inclusive); the rectangle spans Width columns and Height
// rows.
type ROI struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Rect converts the ROI to a standard library rectangle.
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Validate checks that the ROI has a positive size and lies fully inside b.
func (r ROI) Validate(b *Buffer) error {
	if err := RequireImage(b); err != nil {
		return err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidROI, r.Width, r.Height)
	}
	// Compared by subtraction: X+Width can overflow for caller-supplied sizes.
	if r.X < 0 || r.Y < 0 || r.X > b.Width-r.Width || r.Y > b.Height-r.Height {
		return fmt.Errorf("%w: %dx%d at (%d,%d) outside image bounds %dx%d",
			ErrInvalidROI, r.Width, r.Height, r.X, r.Y, b.Width, b.Height)
	}
	return nil
}

// Samples returns a copy of the samples inside the ROI in row-major order.
// The ROI must already be validated against b.
func (r ROI) Samples(b *Buffer) []uint8 {
	out := make([]uint8, 0, r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		off := y * b.Width
		out = append(out, b.Pix[off+r.X:off+r.X+r.Width]...)
	}
	return out
}

// Crop extracts the ROI as a new buffer.
func Crop(b *Buffer, r ROI) (*Buffer, error) {
	if err := r.Validate(b); err != nil {
		return nil, err
	}
	return &Buffer{Width: r.Width, Height: r.Height, Pix: r.Samples(b)}, nil
}

// CropPreview renders the ROI for display, optionally scaled, as base64 PNG.
// It is used to show the region a CNR value was computed over.
func CropPreview(b *Buffer, r ROI, colormap string, scale float64) (*RenderResult, error) {
	if err := r.Validate(b); err != nil {
		return nil, err
	}
	full, err := Colorize(b, colormap)
	if err != nil {
		return nil, err
	}
	return encodePNG(imaging.Crop(full, r.Rect()), scale)
}
