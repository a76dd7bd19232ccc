package analysis

import (
	"context"
	"testing"

	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// fixedDetector returns a preset circle or error and counts calls.
type fixedDetector struct {
	circle detection.Circle
	err    error
	calls  int
}

func (d *fixedDetector) Detect(ctx context.Context, b *imaging.Buffer) (detection.Circle, error) {
	d.calls++
	if d.err != nil {
		return detection.Circle{}, d.err
	}
	return d.circle, nil
}

func (d *fixedDetector) Candidates(ctx context.Context, b *imaging.Buffer) ([]detection.Circle, error) {
	c, err := d.Detect(ctx, b)
	if err != nil {
		return nil, err
	}
	return []detection.Circle{c}, nil
}

// uniformBuffer returns a width×height buffer filled with v.
func uniformBuffer(t *testing.T, width, height int, v uint8) *imaging.Buffer {
	t.Helper()
	b, err := imaging.NewBuffer(width, height)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

// stepBuffer returns a buffer that is 0 for x < split and 255 otherwise.
func stepBuffer(t *testing.T, width, height, split int) *imaging.Buffer {
	t.Helper()
	b := uniformBuffer(t, width, height, 0)
	for y := 0; y < height; y++ {
		for x := split; x < width; x++ {
			b.Pix[y*width+x] = 255
		}
	}
	return b
}

func circleAt(x, y, r float64) detection.Circle {
	return detection.Circle{Center: detection.Point2D{X: x, Y: y}, Radius: r}
}
