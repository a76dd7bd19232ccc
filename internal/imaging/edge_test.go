package imaging

import (
	"errors"
	"math"
	"testing"
)

// stepBuffer returns a buffer that is 0 for x < split and 255 otherwise.
func stepBuffer(t *testing.T, width, height, split int) *Buffer {
	t.Helper()
	b, err := NewBuffer(width, height)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	for y := 0; y < height; y++ {
		for x := split; x < width; x++ {
			b.Pix[y*width+x] = 255
		}
	}
	return b
}

func TestCanny_UniformImage(t *testing.T) {
	b, _ := NewBuffer(50, 50)
	for i := range b.Pix {
		b.Pix[i] = 128
	}

	m, err := Canny(b, 100, 200)
	if err != nil {
		t.Fatalf("Canny failed: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("uniform image should have no edges, got %d", m.Count())
	}
}

func TestCanny_StepEdge(t *testing.T) {
	b := stepBuffer(t, 100, 100, 50)

	m, err := Canny(b, 100, 200)
	if err != nil {
		t.Fatalf("Canny failed: %v", err)
	}

	for y := 1; y < 99; y++ {
		if !m.IsEdge(49, y) {
			t.Errorf("expected edge at (49,%d)", y)
		}
		if m.IsEdge(50, y) {
			t.Errorf("edge should be one pixel wide, (50,%d) also set", y)
		}
	}
	for x := 0; x < 100; x++ {
		if x != 49 && m.IsEdge(x, 50) {
			t.Errorf("unexpected edge at (%d,50)", x)
		}
	}
}

func TestCanny_GradientsKept(t *testing.T) {
	b := stepBuffer(t, 20, 20, 10)
	m, err := Canny(b, 100, 200)
	if err != nil {
		t.Fatalf("Canny failed: %v", err)
	}
	i := 10*20 + 9
	if m.GX[i] != 1020 {
		t.Errorf("GX at step: got %v, want 1020", m.GX[i])
	}
	if m.GY[i] != 0 {
		t.Errorf("GY at vertical step: got %v, want 0", m.GY[i])
	}
}

func TestCanny_SwappedThresholds(t *testing.T) {
	b := stepBuffer(t, 40, 40, 20)
	a, _ := Canny(b, 100, 200)
	c, _ := Canny(b, 200, 100)
	if a.Count() != c.Count() {
		t.Errorf("threshold order changed the result: %d vs %d", a.Count(), c.Count())
	}
}

func TestCanny_DiskBoundary(t *testing.T) {
	const radius = 60
	b, err := Synthesize(200, 200, radius)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	m, err := Canny(b, 100, 200)
	if err != nil {
		t.Fatalf("Canny failed: %v", err)
	}
	if m.Count() == 0 {
		t.Fatal("expected edges on the disk boundary")
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.IsEdge(x, y) {
				continue
			}
			d := math.Hypot(float64(x-100), float64(y-100))
			if math.Abs(d-radius) > 3 {
				t.Fatalf("edge at (%d,%d) is %.1f from center, want %d±3", x, y, d, radius)
			}
		}
	}
}

func TestCanny_EmptyBuffer(t *testing.T) {
	if _, err := Canny(nil, 100, 200); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded, got %v", err)
	}
	if _, err := Canny(&Buffer{}, 100, 200); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded for zero buffer, got %v", err)
	}
}

func TestEdgeMap_IsEdgeOutOfBounds(t *testing.T) {
	m := &EdgeMap{Width: 2, Height: 2, Edges: []bool{true, true, true, true}}
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if m.IsEdge(p[0], p[1]) {
			t.Errorf("IsEdge(%d,%d) should be false", p[0], p[1])
		}
	}
}

func TestEdgeMap_ToGray(t *testing.T) {
	m := &EdgeMap{Width: 2, Height: 1, Edges: []bool{true, false}}
	g := m.ToGray()
	if g.Pix[0] != 255 || g.Pix[1] != 0 {
		t.Errorf("ToGray: got %v, want [255 0]", g.Pix)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}
