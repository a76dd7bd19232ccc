package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

func TestEngine_NoImage(t *testing.T) {
	det := &fixedDetector{circle: circleAt(5, 5, 2)}
	e := NewEngine(det, DefaultProfileParams(), nil)

	if _, err := e.Analyze(context.Background(), nil); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded, got %v", err)
	}
	if det.calls != 0 {
		t.Errorf("detector should not run without an image, ran %d times", det.calls)
	}
}

func TestEngine_DetectorError(t *testing.T) {
	det := &fixedDetector{err: detection.ErrNoCircleDetected}
	e := NewEngine(det, DefaultProfileParams(), nil)

	_, err := e.Analyze(context.Background(), uniformBuffer(t, 20, 20, 3))
	if !errors.Is(err, ErrNoCircleDetected) {
		t.Errorf("expected ErrNoCircleDetected, got %v", err)
	}
}

func TestEngine_InvalidParams(t *testing.T) {
	det := &fixedDetector{circle: circleAt(5, 5, 2)}
	e := NewEngine(det, DefaultProfileParams(), nil)

	_, err := e.AnalyzeWith(context.Background(), uniformBuffer(t, 20, 20, 3), ProfileParams{AngularSamples: -1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if det.calls != 0 {
		t.Error("detector should not run with invalid parameters")
	}
}

func TestEngine_FixedCircle(t *testing.T) {
	b := uniformBuffer(t, 40, 40, 50)
	det := &fixedDetector{circle: circleAt(20, 20, 8)}
	e := NewEngine(det, DefaultProfileParams(), nil)

	r, err := e.Analyze(context.Background(), b)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(r.Profile) != 9 {
		t.Errorf("profile len: got %d, want 9", len(r.Profile))
	}
	if len(r.Response) != len(r.Profile)-1 {
		t.Errorf("response len %d, profile len %d", len(r.Response), len(r.Profile))
	}
	for i, v := range r.Response {
		if v != 0 {
			t.Errorf("response[%d]: got %v, want 0 on a uniform image", i, v)
		}
	}
}

func TestEngine_SynthesizedDisk(t *testing.T) {
	tests := []struct {
		name   string
		radius int
	}{
		{"r50", 50},
		{"r100", 100},
		{"r200", 200},
	}

	e := NewEngine(detection.NewHoughDetector(detection.DefaultParams()), DefaultProfileParams(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := imaging.Synthesize(500, 500, tt.radius)
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}

			r, err := e.Analyze(context.Background(), b)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if len(r.Response) != len(r.Profile)-1 {
				t.Errorf("response len %d, profile len %d", len(r.Response), len(r.Profile))
			}
			if !r.HasEdge {
				t.Fatal("expected an edge")
			}
			if d := r.Edge.Radius - tt.radius; d < -3 || d > 3 {
				t.Errorf("edge radius: got %d, want %d±3", r.Edge.Radius, tt.radius)
			}
			if r.Edge.Value >= 0 {
				t.Errorf("edge value should be negative, got %v", r.Edge.Value)
			}
		})
	}
}

func TestEngine_Canceled(t *testing.T) {
	b, _ := imaging.Synthesize(200, 200, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(detection.NewHoughDetector(detection.DefaultParams()), DefaultProfileParams(), nil)
	if _, err := e.Analyze(ctx, b); KindOf(err) != KindCanceled {
		t.Errorf("expected a canceled error, got %v", err)
	}
}
