package detection

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

const (
	// fitBand is the half-width, in pixels, of the distance band around the
	// current radius estimate whose edge pixels feed the circle fit.
	fitBand = 2.0

	// fitIterations bounds the fit/re-estimate loop in refineCenter.
	fitIterations = 5
)

// HoughDetector is a pure-Go Hough gradient circle detector.
//
// # Algorithm
//
//  1. Edge Detection: Canny with the configured threshold pair
//  2. Accumulator Voting: every edge pixel votes along its gradient line, in
//     both directions, for all distances in the radius range
//  3. Center Selection: each cell is scored by the vote total of its 3×3
//     neighborhood, since gradient direction error spreads the votes for one
//     center over several cells. Cells whose score exceeds the accumulator
//     threshold and that are local maxima against their four neighbors
//     become candidates at the 3×3 vote-weighted centroid, thinned so that
//     no two centers are closer than the minimum distance (stronger wins)
//  4. Center Refinement: a least-squares circle fit to the edge pixels
//     within fitBand of the estimated radius, repeated until the center
//     settles; candidates are thinned again afterwards
//  5. Radius Estimation: for each center, the 3-pixel distance window holding
//     the most edge pixels; the radius is the mean distance inside it
//  6. Ranking: see Rank
type HoughDetector struct {
	params Params
}

// NewHoughDetector creates a detector with the given parameters.
func NewHoughDetector(params Params) *HoughDetector {
	return &HoughDetector{params: params}
}

// Params returns the detector configuration.
func (d *HoughDetector) Params() Params {
	return d.params
}

// Detect returns the highest-ranked circle in b.
//
// # Errors
//
//   - imaging.ErrNoImageLoaded if b is empty
//   - ErrNoCircleDetected if no candidate passes the thresholds
//   - ctx.Err() if the context is canceled during voting
func (d *HoughDetector) Detect(ctx context.Context, b *imaging.Buffer) (Circle, error) {
	circles, err := d.Candidates(ctx, b)
	if err != nil {
		return Circle{}, err
	}
	return best(circles)
}

// Candidates returns all circles in b, ranked best first. An image without
// circles yields an empty slice and no error.
func (d *HoughDetector) Candidates(ctx context.Context, b *imaging.Buffer) ([]Circle, error) {
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

	width, height := b.Width, b.Height
	minR, maxR := d.params.radiusRange(width, height)

	points := edgePoints(edges)
	acc, err := vote(ctx, edges, minR, maxR)
	if err != nil {
		return nil, err
	}

	minDist := d.params.minDist(height)
	centers := findPeaks(neighborhoodScore(acc, width, height), acc, width, height, d.params.AccumulatorThreshold)
	centers = thinCenters(centers, minDist)
	for i := range centers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		centers[i].center = refineCenter(points, centers[i].center, minR, maxR)
	}
	centers = thinCenters(centers, minDist)

	circles := make([]Circle, 0, len(centers))
	for _, c := range centers {
		radius, support := estimateRadius(points, c.center, minR, maxR)
		if support == 0 {
			continue
		}
		circles = append(circles, Circle{
			Center:  c.center,
			Radius:  radius,
			Votes:   c.votes,
			Support: support,
		})
	}

	Rank(circles)
	return circles, nil
}

// vote fills the center accumulator. Each edge pixel walks its gradient line
// outward in both directions and increments every cell it enters at a distance
// in [minR, maxR].
func vote(ctx context.Context, m *imaging.EdgeMap, minR, maxR int) ([]int, error) {
	width, height := m.Width, m.Height
	acc := make([]int, width*height)

	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			i := y*width + x
			if !m.Edges[i] {
				continue
			}
			gx, gy := m.GX[i], m.GY[i]
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			ux, uy := gx/mag, gy/mag

			for _, sign := range [2]float64{1, -1} {
				last := -1
				for r := minR; r <= maxR; r++ {
					cx := int(math.Round(float64(x) + sign*float64(r)*ux))
					cy := int(math.Round(float64(y) + sign*float64(r)*uy))
					if cx < 0 || cx >= width || cy < 0 || cy >= height {
						break
					}
					cell := cy*width + cx
					if cell != last {
						acc[cell]++
						last = cell
					}
				}
			}
		}
	}
	return acc, nil
}

type center struct {
	center Point2D
	votes  int
	x, y   int
}

// neighborhoodScore sums every accumulator cell with its 3×3 neighborhood.
// Cells outside the accumulator count as zero.
func neighborhoodScore(acc []int, width, height int) []int {
	rows := make([]int, len(acc))
	for y := 0; y < height; y++ {
		row := acc[y*width : (y+1)*width]
		for x := range row {
			v := row[x]
			if x > 0 {
				v += row[x-1]
			}
			if x < width-1 {
				v += row[x+1]
			}
			rows[y*width+x] = v
		}
	}

	score := make([]int, len(acc))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			v := rows[i]
			if y > 0 {
				v += rows[i-width]
			}
			if y < height-1 {
				v += rows[i+width]
			}
			score[i] = v
		}
	}
	return score
}

// findPeaks returns cells whose score is above threshold, beats the left and
// upper neighbors and is not beaten by the right and lower neighbors. The
// asymmetric comparison keeps exactly one cell of a flat plateau. Centers are
// refined against the raw accumulator.
func findPeaks(score, acc []int, width, height, threshold int) []center {
	var peaks []center
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			v := score[i]
			if v <= threshold {
				continue
			}
			if v > score[i-1] && v >= score[i+1] && v > score[i-width] && v >= score[i+width] {
				peaks = append(peaks, center{
					center: refine(acc, width, x, y),
					votes:  v,
					x:      x,
					y:      y,
				})
			}
		}
	}
	return peaks
}

// refine computes the vote-weighted centroid of the 3×3 neighborhood.
func refine(acc []int, width, x, y int) Point2D {
	var sum, sx, sy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			w := float64(acc[(y+dy)*width+x+dx])
			sum += w
			sx += w * float64(x+dx)
			sy += w * float64(y+dy)
		}
	}
	if sum == 0 {
		return Point2D{X: float64(x), Y: float64(y)}
	}
	return Point2D{X: sx / sum, Y: sy / sum}
}

// refineCenter alternates radius estimation and circle fitting until the
// center moves less than a thousandth of a pixel. A failed fit keeps the last
// good center.
func refineCenter(points []Point2D, c Point2D, minR, maxR int) Point2D {
	for i := 0; i < fitIterations; i++ {
		r, n := estimateRadius(points, c, minR, maxR)
		if n == 0 {
			break
		}
		next, ok := fitCircle(points, c, r, fitBand)
		if !ok {
			break
		}
		moved := math.Hypot(next.X-c.X, next.Y-c.Y)
		c = next
		if moved < 1e-3 {
			break
		}
	}
	return c
}

// fitCircle is an algebraic (Kåsa) least-squares circle fit over the points
// whose distance from c lies within band of r. Coordinates are taken relative
// to c to keep the system well conditioned. It reports false when fewer than
// three points qualify or the system has no solution.
func fitCircle(points []Point2D, c Point2D, r, band float64) (Point2D, bool) {
	var rows, rhs []float64
	for _, p := range points {
		u, v := p.X-c.X, p.Y-c.Y
		if math.Abs(math.Hypot(u, v)-r) > band {
			continue
		}
		rows = append(rows, u, v, 1)
		rhs = append(rhs, -(u*u + v*v))
	}
	n := len(rhs)
	if n < 3 {
		return c, false
	}

	// u² + v² + D·u + E·v + F = 0 has its center at (-D/2, -E/2).
	var sol mat.VecDense
	if err := sol.SolveVec(mat.NewDense(n, 3, rows), mat.NewVecDense(n, rhs)); err != nil {
		return c, false
	}
	cx, cy := c.X-sol.AtVec(0)/2, c.Y-sol.AtVec(1)/2
	if math.IsNaN(cx) || math.IsNaN(cy) || math.IsInf(cx, 0) || math.IsInf(cy, 0) {
		return c, false
	}
	return Point2D{X: cx, Y: cy}, true
}

// thinCenters drops centers closer than minDist to a stronger center.
func thinCenters(centers []center, minDist float64) []center {
	sort.SliceStable(centers, func(i, j int) bool {
		if centers[i].votes != centers[j].votes {
			return centers[i].votes > centers[j].votes
		}
		if centers[i].y != centers[j].y {
			return centers[i].y < centers[j].y
		}
		return centers[i].x < centers[j].x
	})

	minDist2 := minDist * minDist
	kept := make([]center, 0, len(centers))
	for _, c := range centers {
		near := false
		for _, k := range kept {
			dx, dy := c.center.X-k.center.X, c.center.Y-k.center.Y
			if dx*dx+dy*dy < minDist2 {
				near = true
				break
			}
		}
		if !near {
			kept = append(kept, c)
		}
	}
	return kept
}

// edgePoints lists the coordinates of every edge pixel.
func edgePoints(m *imaging.EdgeMap) []Point2D {
	points := make([]Point2D, 0, m.Count())
	for i, e := range m.Edges {
		if e {
			points = append(points, Point2D{X: float64(i % m.Width), Y: float64(i / m.Width)})
		}
	}
	return points
}

// estimateRadius histograms edge-pixel distances from c into 1-pixel bins and
// picks the 3-bin window with the most pixels. Ties go to the smaller radius.
// It returns the mean distance inside the window and the window count.
func estimateRadius(points []Point2D, c Point2D, minR, maxR int) (float64, int) {
	if maxR < minR {
		return 0, 0
	}
	counts := make([]int, maxR+2)
	sums := make([]float64, maxR+2)
	for _, p := range points {
		d := math.Hypot(p.X-c.X, p.Y-c.Y)
		bin := int(math.Round(d))
		if bin < minR || bin > maxR {
			continue
		}
		counts[bin]++
		sums[bin] += d
	}

	bestBin, bestCount := -1, 0
	for k := minR; k <= maxR; k++ {
		n := counts[k] + counts[k+1]
		if k > 0 {
			n += counts[k-1]
		}
		if n > bestCount {
			bestBin, bestCount = k, n
		}
	}
	if bestBin < 0 {
		return 0, 0
	}

	var sum float64
	for k := max(bestBin-1, 0); k <= bestBin+1; k++ {
		sum += sums[k]
	}
	return sum / float64(bestCount), bestCount
}
