package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// EdgeMap is the output of Canny edge detection on an intensity buffer.
//
// Edges marks the thinned, hysteresis-filtered edge pixels. GX and GY keep the
// raw Sobel responses for every pixel so that gradient-based consumers (the
// Hough circle transform) can read edge orientation without recomputing it.
type EdgeMap struct {
	Width  int
	Height int

	// Edges is row-major; Edges[y*Width+x] is true for an edge pixel.
	Edges []bool

	// GX and GY are the horizontal and vertical Sobel responses.
	GX []float64
	GY []float64
}

// IsEdge reports whether (x, y) is an edge pixel. Out-of-bounds coordinates
// are never edges.
func (m *EdgeMap) IsEdge(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Edges[y*m.Width+x]
}

// Count returns the number of edge pixels.
func (m *EdgeMap) Count() int {
	n := 0
	for _, e := range m.Edges {
		if e {
			n++
		}
	}
	return n
}

// ToGray renders the edge map with edges in white (255) on black.
func (m *EdgeMap) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, e := range m.Edges {
		if e {
			g.Pix[i] = 255
		}
	}
	return g
}

// Canny performs Canny edge detection on an intensity buffer.
//
// Parameters:
//   - b: Source buffer. Must not be empty.
//   - low: Low hysteresis threshold on gradient magnitude.
//   - high: High hysteresis threshold on gradient magnitude.
//
// Thresholds use the scale of a 3×3 Sobel operator applied to raw 8-bit
// samples, so the classic (100, 200) pair behaves as it does in OpenCV.
//
// # Algorithm
//
//  1. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²). Rows are processed in parallel.
//
//  2. Non-maximum suppression: keep only pixels that are local maxima along
//     the gradient direction (quantized to four sectors).
//
//  3. Hysteresis thresholding:
//     - Pixels at or above high are strong edges (always kept)
//     - Pixels between low and high are kept only when connected, through
//     other kept pixels, to a strong edge (8-connectivity)
//     - Pixels below low are discarded
//
// No pre-smoothing is applied; callers that need it blur the buffer first.
func Canny(b *Buffer, low, high float64) (*EdgeMap, error) {
	if err := RequireImage(b); err != nil {
		return nil, err
	}
	if low > high {
		low, high = high, low
	}

	width, height := b.Width, b.Height
	n := width * height
	gradX := make([]float64, n)
	gradY := make([]float64, n)
	magnitude := make([]float64, n)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				var gx, gy float64
				for ky := -1; ky <= 1; ky++ {
					py := clamp(y+ky, 0, height-1)
					for kx := -1; kx <= 1; kx++ {
						px := clamp(x+kx, 0, width-1)
						v := float64(b.Pix[py*width+px])
						gx += v * sobelX[ky+1][kx+1]
						gy += v * sobelY[ky+1][kx+1]
					}
				}
				i := y*width + x
				gradX[i] = gx
				gradY[i] = gy
				magnitude[i] = math.Sqrt(gx*gx + gy*gy)
			}
		}
	})

	// Non-maximum suppression
	suppressed := make([]float64, n)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < low {
				continue
			}
			angle := math.Atan2(gradY[i], gradX[i])

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			} else {
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			// Ties break toward the earlier neighbor so plateaus stay one pixel wide.
			if mag > n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	edges := make([]bool, n)
	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= high && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				j := ny*width + nx
				if !edges[j] && suppressed[j] >= low {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}

	return &EdgeMap{
		Width:  width,
		Height: height,
		Edges:  edges,
		GX:     gradX,
		GY:     gradY,
	}, nil
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
