package imaging

import (
	"fmt"
	"image"
	"image/color"
)

var (
	gridLine       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	gridLabelFG    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gridLabelBG    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	gridGlyphWidth = 4
)

// gridGlyphs is a 3x5 pixel font for coordinate labels.
var gridGlyphs = map[rune][5]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
}

// drawGrid draws one-pixel lines every spacing pixels, in source-image
// coordinates, so ROI corners can be read off a rendered image. With labels
// each intersection is annotated "x,y".
func drawGrid(img *image.RGBA, spacing int, labels bool) error {
	if spacing <= 0 {
		return fmt.Errorf("%w: grid spacing must be positive, got %d", ErrInvalidDimensions, spacing)
	}
	b := img.Bounds()

	for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.SetRGBA(x, y, gridLine)
		}
	}
	for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, gridLine)
		}
	}

	if labels {
		for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
			for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
				drawLabel(img, x+2, y+2, fmt.Sprintf("%d,%d", x, y))
			}
		}
	}
	return nil
}

// drawLabel writes text with its top-left corner at (x, y) on a solid
// background, clipped to the image.
func drawLabel(img *image.RGBA, x, y int, text string) {
	bounds := img.Bounds()
	width := len(text) * gridGlyphWidth

	for dy := -1; dy < 7; dy++ {
		for dx := -1; dx < width; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.SetRGBA(p.X, p.Y, gridLabelBG)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := gridGlyphs[ch]
		if ok {
			for row, line := range glyph {
				for col, px := range line {
					if p := image.Pt(cx+col, y+row); px == '1' && p.In(bounds) {
						img.SetRGBA(p.X, p.Y, gridLabelFG)
					}
				}
			}
		}
		cx += gridGlyphWidth
	}
}
