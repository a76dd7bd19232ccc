package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// MaxAngularSamples bounds ProfileParams.AngularSamples.
const MaxAngularSamples = 1 << 16

// ProfileParams controls radial sampling.
type ProfileParams struct {
	// AngularSamples is the number of evenly spaced angles per radius.
	AngularSamples int `json:"angular_samples" yaml:"angularSamples"`

	// Margin extends sampling past the detected radius by this many pixels,
	// so the outer side of the edge is captured. Zero samples up to the
	// rounded radius exactly. Profile rejects margins longer than the image
	// diagonal.
	Margin int `json:"margin" yaml:"margin"`
}

// DefaultProfileParams returns one sample per degree and no margin.
func DefaultProfileParams() ProfileParams {
	return ProfileParams{AngularSamples: 360}
}

// Validate checks that the sampling parameters are usable.
func (p ProfileParams) Validate() error {
	if p.AngularSamples <= 0 || p.AngularSamples > MaxAngularSamples {
		return fmt.Errorf("%w: angular samples must be in [1, %d], got %d", ErrInvalidInput, MaxAngularSamples, p.AngularSamples)
	}
	if p.Margin < 0 {
		return fmt.Errorf("%w: margin must be non-negative, got %d", ErrInvalidInput, p.Margin)
	}
	return nil
}

// ProfilePoint is the angular mean intensity at one integer radius.
type ProfilePoint struct {
	Radius  int     `json:"radius"`
	Mean    float64 `json:"mean"`
	Samples int     `json:"samples"`
}

// RadialProfile is ordered by strictly increasing radius. Radii at which no
// sample fell inside the image are absent.
type RadialProfile []ProfilePoint

// Radii returns the radius of every entry.
func (p RadialProfile) Radii() []int {
	out := make([]int, len(p))
	for i, pt := range p {
		out[i] = pt.Radius
	}
	return out
}

// Means returns the mean intensity of every entry.
func (p RadialProfile) Means() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Mean
	}
	return out
}

// Profile samples the angular mean intensity of b at every integer radius
// from 0 to round(c.Radius)+p.Margin around c.Center.
//
// At radius r the k-th sample is taken at angle θ = 2πk/AngularSamples from
// the pixel nearest to (cx + r·cosθ, cy + r·sinθ). Out-of-bounds samples are
// skipped; a radius with no in-bounds sample is omitted from the profile.
//
// Both the radius and the margin must be at most the image diagonal.
//
// Radii are processed in parallel; each radius is summed sequentially so the
// result is identical to a single-threaded sweep. The context is checked once
// per radius.
func Profile(ctx context.Context, b *imaging.Buffer, c detection.Circle, p ProfileParams) (RadialProfile, error) {
	if err := imaging.RequireImage(b); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if c.Radius < 0 || math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) {
		return nil, fmt.Errorf("%w: circle radius must be a non-negative number, got %v", ErrInvalidInput, c.Radius)
	}
	if math.IsNaN(c.Center.X) || math.IsNaN(c.Center.Y) || math.IsInf(c.Center.X, 0) || math.IsInf(c.Center.Y, 0) {
		return nil, fmt.Errorf("%w: circle center must be finite", ErrInvalidInput)
	}
	diag := math.Ceil(math.Hypot(float64(b.Width), float64(b.Height)))
	if c.Radius > diag {
		return nil, fmt.Errorf("%w: circle radius %v exceeds the image diagonal %v", ErrInvalidInput, c.Radius, diag)
	}
	if float64(p.Margin) > diag {
		return nil, fmt.Errorf("%w: margin %d exceeds the image diagonal %v", ErrInvalidInput, p.Margin, diag)
	}

	n := p.AngularSamples
	cos := make([]float64, n)
	sin := make([]float64, n)
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		cos[k], sin[k] = math.Cos(theta), math.Sin(theta)
	}

	maxR := int(math.Round(c.Radius)) + p.Margin
	points := make([]ProfilePoint, maxR+1)

	parallel.Line(maxR+1, func(start, end int) {
		for r := start; r < end; r++ {
			if ctx.Err() != nil {
				return
			}
			var sum float64
			count := 0
			for k := 0; k < n; k++ {
				x := int(math.Round(c.Center.X + float64(r)*cos[k]))
				y := int(math.Round(c.Center.Y + float64(r)*sin[k]))
				if b.InBounds(x, y) {
					sum += float64(b.Pix[y*b.Width+x])
					count++
				}
			}
			points[r] = ProfilePoint{Radius: r, Samples: count}
			if count > 0 {
				points[r].Mean = sum / float64(count)
			}
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile := make(RadialProfile, 0, len(points))
	for _, pt := range points {
		if pt.Samples > 0 {
			profile = append(profile, pt)
		}
	}
	return profile, nil
}
