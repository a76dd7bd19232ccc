package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownColormap is returned for a colormap name not in Colormaps.
var ErrUnknownColormap = errors.New("unknown colormap")

// RenderResult contains an encoded image ready for a display collaborator.
type RenderResult struct {
	// Width of the encoded image in pixels (after scaling).
	Width int `json:"width"`

	// Height of the encoded image in pixels (after scaling).
	Height int `json:"height"`

	// ImageBase64 is the image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`
}

// CircleOverlay describes a circle outline drawn on top of a rendered image.
type CircleOverlay struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`

	// Color is a hex color ("#RRGGBB" or "#RGB"). Empty means "#00FF00".
	Color string `json:"color,omitempty"`
}

// RenderOptions controls how a buffer is turned into a display image.
type RenderOptions struct {
	// Colormap is one of the names returned by Colormaps. Empty means "gray".
	Colormap string

	// Scale resizes the output (Lanczos). Values <= 0 or 1.0 leave it unscaled.
	Scale float64

	// Overlay, when set, is drawn as a one-pixel outline before scaling.
	Overlay *CircleOverlay

	// Grid, when non-zero, draws coordinate lines every Grid source pixels;
	// negative values are rejected.
	// GridLabels annotates each intersection with its coordinates.
	Grid       int
	GridLabels bool
}

// colormapStops lists the anchor colors of each map; intermediate entries are
// blended in CIE L*a*b* so perceived brightness changes smoothly.
var colormapStops = map[string][]string{
	"gray":      {"#000000", "#FFFFFF"},
	"heat":      {"#000000", "#8B0000", "#FF4500", "#FFD700", "#FFFFFF"},
	"diverging": {"#2166AC", "#F7F7F7", "#B2182B"},
	"ice":       {"#000000", "#08306B", "#4292C6", "#DEEBF7", "#FFFFFF"},
}

// Colormaps returns the supported colormap names in sorted order.
func Colormaps() []string {
	names := make([]string, 0, len(colormapStops))
	for name := range colormapStops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// colormapLUT expands a named colormap to 256 RGBA entries.
func colormapLUT(name string) ([256]color.RGBA, error) {
	var lut [256]color.RGBA
	if name == "" {
		name = "gray"
	}
	stops, ok := colormapStops[name]
	if !ok {
		return lut, fmt.Errorf("%w: %s", ErrUnknownColormap, name)
	}

	anchors := make([]colorful.Color, len(stops))
	for i, hex := range stops {
		c, err := colorful.Hex(hex)
		if err != nil {
			return lut, fmt.Errorf("invalid colormap stop %q: %w", hex, err)
		}
		anchors[i] = c
	}

	segments := float64(len(anchors) - 1)
	for v := 0; v < 256; v++ {
		pos := float64(v) / 255 * segments
		seg := int(math.Floor(pos))
		if seg >= len(anchors)-1 {
			seg = len(anchors) - 2
		}
		t := pos - float64(seg)
		c := anchors[seg].BlendLab(anchors[seg+1], t).Clamped()
		r, g, b := c.RGB255()
		lut[v] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	// Keep the gray map exact.
	if name == "gray" {
		for v := 0; v < 256; v++ {
			lut[v] = color.RGBA{R: uint8(v), G: uint8(v), B: uint8(v), A: 255}
		}
	}
	return lut, nil
}

// Colorize maps every sample through the named colormap.
func Colorize(b *Buffer, colormap string) (*image.RGBA, error) {
	if err := RequireImage(b); err != nil {
		return nil, err
	}
	lut, err := colormapLUT(colormap)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Pix {
		c := lut[v]
		o := i * 4
		out.Pix[o+0] = c.R
		out.Pix[o+1] = c.G
		out.Pix[o+2] = c.B
		out.Pix[o+3] = c.A
	}
	return out, nil
}

// Render colorizes a buffer, draws the optional overlay, scales it and encodes
// the result as base64 PNG.
func Render(b *Buffer, opts RenderOptions) (*RenderResult, error) {
	img, err := compose(b, opts)
	if err != nil {
		return nil, err
	}
	return encodePNG(img, opts.Scale)
}

// EncodePNG is Render without the base64 step, for transports that stream
// binary bodies.
func EncodePNG(b *Buffer, opts RenderOptions) ([]byte, error) {
	img, err := compose(b, opts)
	if err != nil {
		return nil, err
	}
	out, err := scaled(img, opts.Scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func compose(b *Buffer, opts RenderOptions) (*image.RGBA, error) {
	img, err := Colorize(b, opts.Colormap)
	if err != nil {
		return nil, err
	}
	if opts.Grid != 0 {
		if err := drawGrid(img, opts.Grid, opts.GridLabels); err != nil {
			return nil, err
		}
	}
	if opts.Overlay != nil {
		if err := drawCircle(img, *opts.Overlay); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// RenderEdgeMap encodes an edge map (edges white on black) as base64 PNG.
func RenderEdgeMap(m *EdgeMap) (*RenderResult, error) {
	return encodePNG(m.ToGray(), 1.0)
}

// drawCircle plots a one-pixel circle outline with enough angular steps that
// consecutive points are at most one pixel apart.
func drawCircle(img *image.RGBA, o CircleOverlay) error {
	hex := o.Color
	if hex == "" {
		hex = "#00FF00"
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("invalid overlay color %q: %w", hex, err)
	}
	r, g, bl := c.RGB255()
	col := color.RGBA{R: r, G: g, B: bl, A: 255}

	steps := int(math.Ceil(2*math.Pi*o.Radius)) + 8
	bounds := img.Bounds()
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		x := int(math.Round(o.CenterX + o.Radius*math.Cos(theta)))
		y := int(math.Round(o.CenterY + o.Radius*math.Sin(theta)))
		if image.Pt(x, y).In(bounds) {
			img.SetRGBA(x, y, col)
		}
	}
	return nil
}

// scaled resizes img by scale with a Lanczos filter. A scale <= 0 or exactly
// 1 returns img unchanged. Outputs wider or taller than MaxDimension are
// rejected with ErrInvalidDimensions.
func scaled(img image.Image, scale float64) (image.Image, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: scale must be finite, got %v", ErrInvalidDimensions, scale)
	}
	if scale <= 0 || scale == 1.0 {
		return img, nil
	}
	fw := float64(img.Bounds().Dx()) * scale
	fh := float64(img.Bounds().Dy()) * scale
	if fw > MaxDimension || fh > MaxDimension {
		return nil, fmt.Errorf("%w: scale %v gives %.0fx%.0f, limit is %d", ErrInvalidDimensions, scale, fw, fh, MaxDimension)
	}
	return imaging.Resize(img, max(1, int(fw)), max(1, int(fh)), imaging.Lanczos), nil
}

// encodePNG scales img and encodes it as base64 PNG.
func encodePNG(img image.Image, scale float64) (*RenderResult, error) {
	img, err := scaled(img, scale)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &RenderResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
