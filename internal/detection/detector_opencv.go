//go:build opencv

package detection

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// New returns the default circle detector for this build. With the opencv
// build tag it is the OpenCV-backed detector.
func New(params Params) Detector {
	return NewOpenCVDetector(params)
}

// Backend names the detector implementation compiled into this binary.
const Backend = "opencv"

// OpenCVDetector runs OpenCV's HOUGH_GRADIENT transform over the pure-Go
// Canny edge map, so both backends vote on the same edge pixels.
//
// OpenCV does not report accumulator scores, so Votes is left at zero and
// candidates are ranked by the edge support measured on the pure-Go Canny map
// with the same thresholds.
type OpenCVDetector struct {
	params Params
}

// NewOpenCVDetector creates an OpenCV-backed detector.
func NewOpenCVDetector(params Params) *OpenCVDetector {
	return &OpenCVDetector{params: params}
}

// Detect returns the highest-ranked circle in b.
func (d *OpenCVDetector) Detect(ctx context.Context, b *imaging.Buffer) (Circle, error) {
	circles, err := d.Candidates(ctx, b)
	if err != nil {
		return Circle{}, err
	}
	return best(circles)
}

// Candidates returns all circles found by OpenCV, ranked best first.
func (d *OpenCVDetector) Candidates(ctx context.Context, b *imaging.Buffer) ([]Circle, error) {
	if err := imaging.RequireImage(b); err != nil {
		return nil, err
	}
	if err := d.params.Validate(); err != nil {
		return nil, err
	}

	edges, err := imaging.Canny(b, d.params.LowThreshold, d.params.HighThreshold)
	if err != nil {
		return nil, err
	}

	edgeMat, err := gocv.NewMatFromBytes(b.Height, b.Width, gocv.MatTypeCV8U, edges.ToGray().Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap edge map: %w", err)
	}
	defer edgeMat.Close()

	out := gocv.NewMat()
	defer out.Close()

	gocv.HoughCirclesWithParams(edgeMat, &out, gocv.HoughGradient,
		1, d.params.minDist(b.Height),
		d.params.HighThreshold, float64(d.params.AccumulatorThreshold),
		d.params.MinRadius, d.params.MaxRadius)

	if out.Empty() || out.Cols() == 0 {
		return nil, nil
	}

	points := edgePoints(edges)
	minR, maxR := d.params.radiusRange(b.Width, b.Height)

	circles := make([]Circle, 0, out.Cols())
	for i := 0; i < out.Cols(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := Circle{
			Center: Point2D{
				X: float64(out.GetFloatAt(0, i*3)),
				Y: float64(out.GetFloatAt(0, i*3+1)),
			},
			Radius: float64(out.GetFloatAt(0, i*3+2)),
		}
		_, c.Support = estimateRadius(points, c.Center, max(minR, int(c.Radius)-1), min(maxR, int(c.Radius)+1))
		circles = append(circles, c)
	}

	Rank(circles)
	return circles, nil
}
