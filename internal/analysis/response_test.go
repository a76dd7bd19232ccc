package analysis

import (
	"reflect"
	"testing"
)

func profileOf(radii []int, means []float64) RadialProfile {
	p := make(RadialProfile, len(radii))
	for i := range radii {
		p[i] = ProfilePoint{Radius: radii[i], Mean: means[i], Samples: 1}
	}
	return p
}

func TestDerive_Length(t *testing.T) {
	for n := 0; n <= 6; n++ {
		radii := make([]int, n)
		means := make([]float64, n)
		for i := range radii {
			radii[i] = i
			means[i] = float64(i * i)
		}
		got := Derive(profileOf(radii, means))
		want := n - 1
		if n < 2 {
			want = 0
		}
		if len(got) != want {
			t.Errorf("n=%d: len %d, want %d", n, len(got), want)
		}
		if got == nil {
			t.Errorf("n=%d: response should be non-nil", n)
		}
	}
}

func TestDerive_Values(t *testing.T) {
	tests := []struct {
		name  string
		radii []int
		means []float64
		want  ResponseFunction
	}{
		{"falling edge", []int{0, 1, 2, 3}, []float64{255, 255, 100, 0}, ResponseFunction{0, -155, -100}},
		{"gap bridged", []int{0, 1, 3}, []float64{10, 8, 2}, ResponseFunction{-2, -6}},
		{"rising", []int{4, 5}, []float64{1, 3.5}, ResponseFunction{2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(profileOf(tt.radii, tt.means))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindEdge(t *testing.T) {
	radii := []int{10, 11, 12, 13, 14, 15, 16, 17}
	means := []float64{200, 200, 199, 195, 185, 179, 178, 178}
	p := profileOf(radii, means)
	r := Derive(p)

	peak, ok := FindEdge(p, r)
	if !ok {
		t.Fatal("expected a peak")
	}
	want := EdgePeak{Index: 3, Radius: 14, Value: -10, Width: 2}
	if peak != want {
		t.Errorf("got %+v, want %+v", peak, want)
	}
}

func TestFindEdge_NoFall(t *testing.T) {
	p := profileOf([]int{0, 1, 2}, []float64{1, 2, 3})
	peak, ok := FindEdge(p, Derive(p))
	if !ok {
		t.Fatal("expected ok for a non-empty response")
	}
	if peak.Width != 0 || peak.Value != 1 {
		t.Errorf("got %+v, want zero width at value 1", peak)
	}
}

func TestFindEdge_Invalid(t *testing.T) {
	if _, ok := FindEdge(nil, nil); ok {
		t.Error("empty response should report false")
	}
	p := profileOf([]int{0, 1, 2}, []float64{3, 2, 1})
	if _, ok := FindEdge(p, ResponseFunction{-1}); ok {
		t.Error("mismatched lengths should report false")
	}
}
