package detection

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// createRingBuffer draws a dark ring (inner <= distance <= outer) on a white
// background and softens it with the default blur.
func createRingBuffer(t *testing.T, width, height, cx, cy, inner, outer int) *imaging.Buffer {
	t.Helper()
	b, err := imaging.NewBuffer(width, height)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
			if d2 < inner*inner || d2 > outer*outer {
				b.Pix[y*width+x] = 255
			}
		}
	}
	out, err := imaging.GaussianBlur(b, imaging.DefaultBlur())
	if err != nil {
		t.Fatalf("GaussianBlur failed: %v", err)
	}
	return out
}

func TestHoughDetector_SynthesizedDisk(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		radius int
	}{
		{"10 percent", 500, 500, 50},
		{"20 percent", 500, 500, 100},
		{"default target", 500, 500, 200},
		{"45 percent", 500, 500, 225},
		{"non-square", 600, 400, 120},
	}

	d := NewHoughDetector(DefaultParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := imaging.Synthesize(tt.w, tt.h, tt.radius)
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}

			c, err := d.Detect(context.Background(), b)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}

			wantX, wantY := float64(tt.w/2), float64(tt.h/2)
			if math.Hypot(c.Center.X-wantX, c.Center.Y-wantY) > 2 {
				t.Errorf("center: got (%.2f, %.2f), want (%.0f, %.0f)±2", c.Center.X, c.Center.Y, wantX, wantY)
			}
			if math.Abs(c.Radius-float64(tt.radius)) > 0.05*float64(tt.radius) {
				t.Errorf("radius: got %.2f, want %d±5%%", c.Radius, tt.radius)
			}
			if c.Votes <= DefaultParams().AccumulatorThreshold {
				t.Errorf("votes %d should exceed the accumulator threshold", c.Votes)
			}
			if c.Support == 0 {
				t.Error("support should be positive")
			}
		})
	}
}

func TestHoughDetector_DarkRing(t *testing.T) {
	b := createRingBuffer(t, 300, 300, 150, 140, 98, 102)

	c, err := NewHoughDetector(DefaultParams()).Detect(context.Background(), b)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if math.Hypot(c.Center.X-150, c.Center.Y-140) > 2 {
		t.Errorf("center: got (%.2f, %.2f), want (150, 140)", c.Center.X, c.Center.Y)
	}
	if math.Abs(c.Radius-100) > 5 {
		t.Errorf("radius: got %.2f, want ~100", c.Radius)
	}
}

func TestHoughDetector_NoCircle(t *testing.T) {
	tests := []struct {
		name string
		fill func(b *imaging.Buffer)
	}{
		{"uniform", func(b *imaging.Buffer) {
			for i := range b.Pix {
				b.Pix[i] = 90
			}
		}},
		{"vertical step", func(b *imaging.Buffer) {
			for y := 0; y < b.Height; y++ {
				for x := b.Width / 2; x < b.Width; x++ {
					b.Pix[y*b.Width+x] = 255
				}
			}
		}},
	}

	d := NewHoughDetector(DefaultParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := imaging.NewBuffer(100, 100)
			tt.fill(b)

			_, err := d.Detect(context.Background(), b)
			if !errors.Is(err, ErrNoCircleDetected) {
				t.Errorf("expected ErrNoCircleDetected, got %v", err)
			}

			all, err := d.Candidates(context.Background(), b)
			if err != nil {
				t.Errorf("Candidates should not fail: %v", err)
			}
			if len(all) != 0 {
				t.Errorf("expected no candidates, got %d", len(all))
			}
		})
	}
}

func TestHoughDetector_NoImage(t *testing.T) {
	d := NewHoughDetector(DefaultParams())
	if _, err := d.Detect(context.Background(), nil); !errors.Is(err, imaging.ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded, got %v", err)
	}
	if _, err := d.Detect(context.Background(), &imaging.Buffer{}); !errors.Is(err, imaging.ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded for empty buffer, got %v", err)
	}
}

func TestHoughDetector_Canceled(t *testing.T) {
	b, _ := imaging.Synthesize(200, 200, 60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHoughDetector(DefaultParams()).Detect(ctx, b)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHoughDetector_RadiusBounds(t *testing.T) {
	b, _ := imaging.Synthesize(500, 500, 150)

	p := DefaultParams()
	p.MinRadius = 10
	p.MaxRadius = 100
	c, err := NewHoughDetector(p).Candidates(context.Background(), b)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	for _, circle := range c {
		if circle.Radius > 101 {
			t.Errorf("radius %.1f outside the configured bound", circle.Radius)
		}
	}
}

func TestNew(t *testing.T) {
	if New(DefaultParams()) == nil {
		t.Fatal("New returned nil")
	}
	if Backend == "" {
		t.Error("Backend should name the implementation")
	}
}

func TestRank(t *testing.T) {
	circles := []Circle{
		{Center: Point2D{X: 5, Y: 5}, Radius: 10, Votes: 120, Support: 40},
		{Center: Point2D{X: 1, Y: 1}, Radius: 30, Votes: 300, Support: 10},
		{Center: Point2D{X: 2, Y: 2}, Radius: 20, Votes: 120, Support: 90},
		{Center: Point2D{X: 9, Y: 3}, Radius: 20, Votes: 120, Support: 90},
		{Center: Point2D{X: 0, Y: 3}, Radius: 20, Votes: 120, Support: 90},
		{Center: Point2D{X: 0, Y: 0}, Radius: 25, Votes: 120, Support: 90},
	}
	Rank(circles)

	want := []Point2D{{1, 1}, {0, 0}, {2, 2}, {0, 3}, {9, 3}, {5, 5}}
	for i, c := range circles {
		if c.Center != want[i] {
			t.Errorf("rank %d: got %+v, want center %+v", i, c, want[i])
		}
	}
}

func TestBest(t *testing.T) {
	if _, err := best(nil); !errors.Is(err, ErrNoCircleDetected) {
		t.Errorf("expected ErrNoCircleDetected, got %v", err)
	}

	// Input order must not decide the winner.
	c, err := best([]Circle{{Votes: 150, Radius: 1}, {Votes: 400, Radius: 2}})
	if err != nil {
		t.Fatalf("best failed: %v", err)
	}
	if c.Votes != 400 {
		t.Errorf("got %+v, want the 400-vote circle", c)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"negative low", func(p *Params) { p.LowThreshold = -1 }, true},
		{"negative accumulator", func(p *Params) { p.AccumulatorThreshold = -1 }, true},
		{"negative min dist", func(p *Params) { p.MinDist = -1 }, true},
		{"negative radius", func(p *Params) { p.MinRadius = -1 }, true},
		{"inverted radius range", func(p *Params) { p.MinRadius = 50; p.MaxRadius = 10 }, true},
		{"unbounded max", func(p *Params) { p.MinRadius = 50; p.MaxRadius = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParams_Derived(t *testing.T) {
	p := DefaultParams()
	if got := p.minDist(500); got != 62 {
		t.Errorf("minDist(500): got %v, want 62", got)
	}
	if got := p.minDist(4); got != 1 {
		t.Errorf("minDist(4): got %v, want 1", got)
	}
	p.MinDist = 7.5
	if got := p.minDist(500); got != 7.5 {
		t.Errorf("explicit minDist: got %v, want 7.5", got)
	}

	lo, hi := DefaultParams().radiusRange(300, 400)
	if lo != 1 || hi != 500 {
		t.Errorf("radiusRange: got [%d, %d], want [1, 500]", lo, hi)
	}
}

func TestNeighborhoodScore(t *testing.T) {
	acc := []int{
		1, 2, 3,
		4, 5, 6,
	}
	want := []int{12, 21, 16, 12, 21, 16}
	got := neighborhoodScore(acc, 3, 2)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("score[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFindPeaks_SingleCell(t *testing.T) {
	// One hot cell spreads a 3×3 plateau of equal scores; only its upper-left
	// cell survives and the centroid lands back on the hot cell.
	acc := make([]int, 7*7)
	acc[3*7+3] = 200
	score := neighborhoodScore(acc, 7, 7)

	peaks := findPeaks(score, acc, 7, 7, 100)
	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}
	if peaks[0].x != 2 || peaks[0].y != 2 || peaks[0].votes != 200 {
		t.Errorf("peak: got %+v", peaks[0])
	}
	if math.Abs(peaks[0].center.X-3) > 1e-9 || math.Abs(peaks[0].center.Y-3) > 1e-9 {
		t.Errorf("refined center: got %+v, want (3, 3)", peaks[0].center)
	}

	if got := findPeaks(score, acc, 7, 7, 200); len(got) != 0 {
		t.Errorf("threshold must be exceeded, got %d peaks", len(got))
	}
}

func TestFindPeaks_SpreadVotes(t *testing.T) {
	// Votes smeared over a 3×3 block: no single cell reaches the threshold
	// but the neighborhood total does.
	acc := make([]int, 9*9)
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			acc[y*9+x] = 40
		}
	}
	acc[4*9+4] = 60

	peaks := findPeaks(neighborhoodScore(acc, 9, 9), acc, 9, 9, 100)
	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}
	if peaks[0].votes != 380 {
		t.Errorf("votes: got %d, want 380", peaks[0].votes)
	}
	if math.Hypot(peaks[0].center.X-4, peaks[0].center.Y-4) > 1e-9 {
		t.Errorf("center: got %+v, want (4, 4)", peaks[0].center)
	}
}

func TestFitCircle(t *testing.T) {
	var points []Point2D
	for k := 0; k < 360; k += 3 {
		th := float64(k) * math.Pi / 180
		points = append(points, Point2D{X: 52 + 30*math.Cos(th), Y: 47 + 30*math.Sin(th)})
	}

	// Start 3 px off; the band still captures most of the circle.
	c, ok := fitCircle(points, Point2D{X: 50, Y: 45}, 30, 4)
	if !ok {
		t.Fatal("fitCircle reported failure")
	}
	if math.Hypot(c.X-52, c.Y-47) > 0.5 {
		t.Errorf("center: got %+v, want near (52, 47)", c)
	}

	got := refineCenter(points, Point2D{X: 50, Y: 45}, 1, 100)
	if math.Hypot(got.X-52, got.Y-47) > 1e-6 {
		t.Errorf("refined center: got %+v, want (52, 47)", got)
	}

	if _, ok := fitCircle(points[:2], Point2D{X: 52, Y: 47}, 30, 2); ok {
		t.Error("two points must not produce a fit")
	}
}

func TestThinCenters(t *testing.T) {
	centers := []center{
		{center: Point2D{X: 10, Y: 10}, votes: 150},
		{center: Point2D{X: 12, Y: 10}, votes: 300},
		{center: Point2D{X: 50, Y: 50}, votes: 120},
	}
	kept := thinCenters(centers, 5)
	if len(kept) != 2 {
		t.Fatalf("got %d centers, want 2", len(kept))
	}
	if kept[0].votes != 300 || kept[1].votes != 120 {
		t.Errorf("kept: got %+v", kept)
	}
}

func TestEstimateRadius(t *testing.T) {
	var points []Point2D
	for k := 0; k < 360; k += 5 {
		th := float64(k) * math.Pi / 180
		points = append(points, Point2D{X: 40 * math.Cos(th), Y: 40 * math.Sin(th)})
	}
	points = append(points, Point2D{X: 3, Y: 0}, Point2D{X: 0, Y: 70})

	r, support := estimateRadius(points, Point2D{}, 1, 100)
	if math.Abs(r-40) > 1e-6 {
		t.Errorf("radius: got %v, want 40", r)
	}
	if support != 72 {
		t.Errorf("support: got %d, want 72", support)
	}

	if _, n := estimateRadius(nil, Point2D{}, 1, 100); n != 0 {
		t.Errorf("no points: support %d, want 0", n)
	}
}
