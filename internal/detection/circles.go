package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// ErrNoCircleDetected is returned when the transform yields no candidate
// circle.
var ErrNoCircleDetected = errors.New("no circles detected")

// Point2D is a sub-pixel position in image coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle is a detected circle together with the evidence behind it.
type Circle struct {
	// Center is the refined circle center.
	Center Point2D `json:"center"`

	// Radius is the estimated radius in pixels.
	Radius float64 `json:"radius"`

	// Votes is the 3×3 neighborhood vote total at the center cell.
	Votes int `json:"votes"`

	// Support is the number of edge pixels found within one pixel of the
	// estimated radius.
	Support int `json:"support"`
}

// Params configures edge extraction and the circle transform.
//
// The zero values of MinDist, MinRadius and MaxRadius mean "derive from the
// image": MinDist falls back to rows/MinDistDivisor and MaxRadius to the image
// diagonal.
type Params struct {
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds.
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`

	// AccumulatorThreshold is the vote count a center cell must exceed.
	AccumulatorThreshold int `json:"accumulator_threshold"`

	// MinDistDivisor derives the minimum center separation as rows/divisor
	// when MinDist is zero.
	MinDistDivisor int `json:"min_dist_divisor"`

	// MinDist is the minimum distance between detected centers in pixels.
	MinDist float64 `json:"min_dist"`

	// MinRadius and MaxRadius bound the radius search in pixels.
	MinRadius int `json:"min_radius"`
	MaxRadius int `json:"max_radius"`
}

// DefaultParams returns the reference configuration: Canny (100, 200),
// accumulator threshold 100, minimum separation rows/8 and an unbounded
// radius range.
func DefaultParams() Params {
	return Params{
		LowThreshold:         100,
		HighThreshold:        200,
		AccumulatorThreshold: 100,
		MinDistDivisor:       8,
	}
}

// Validate checks the parameters for values no image could satisfy.
func (p Params) Validate() error {
	switch {
	case p.LowThreshold < 0 || p.HighThreshold < 0:
		return fmt.Errorf("edge thresholds must be non-negative, got (%v, %v)", p.LowThreshold, p.HighThreshold)
	case p.AccumulatorThreshold < 0:
		return fmt.Errorf("accumulator threshold must be non-negative, got %d", p.AccumulatorThreshold)
	case p.MinDistDivisor < 0 || p.MinDist < 0:
		return fmt.Errorf("minimum distance must be non-negative")
	case p.MinRadius < 0 || p.MaxRadius < 0:
		return fmt.Errorf("radius bounds must be non-negative, got [%d, %d]", p.MinRadius, p.MaxRadius)
	case p.MaxRadius > 0 && p.MaxRadius < p.MinRadius:
		return fmt.Errorf("max radius %d is below min radius %d", p.MaxRadius, p.MinRadius)
	}
	return nil
}

// minDist resolves the center separation for an image with the given rows.
func (p Params) minDist(rows int) float64 {
	if p.MinDist > 0 {
		return p.MinDist
	}
	if p.MinDistDivisor > 0 {
		return math.Max(1, float64(rows/p.MinDistDivisor))
	}
	return 1
}

// radiusRange resolves the radius search bounds for a width×height image.
func (p Params) radiusRange(width, height int) (int, int) {
	lo := max(p.MinRadius, 1)
	hi := p.MaxRadius
	if hi <= 0 {
		hi = int(math.Ceil(math.Hypot(float64(width), float64(height))))
	}
	return lo, hi
}

// Detector finds circles in an intensity buffer.
type Detector interface {
	// Detect returns the best-ranked circle.
	Detect(ctx context.Context, b *imaging.Buffer) (Circle, error)

	// Candidates returns every circle found, best first.
	Candidates(ctx context.Context, b *imaging.Buffer) ([]Circle, error)
}

// Rank orders circles best first: more accumulator votes, then more edge
// support, then larger radius, then top-to-bottom and left-to-right by center.
func Rank(circles []Circle) {
	sort.SliceStable(circles, func(i, j int) bool {
		a, b := circles[i], circles[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.Radius != b.Radius {
			return a.Radius > b.Radius
		}
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		return a.Center.X < b.Center.X
	})
}

// best ranks the candidates and returns the first one.
func best(circles []Circle) (Circle, error) {
	if len(circles) == 0 {
		return Circle{}, ErrNoCircleDetected
	}
	Rank(circles)
	return circles[0], nil
}
