package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"reflect"
	"testing"
)

func decodeRendered(t *testing.T, r *RenderResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	return img
}

func TestRender_Gray(t *testing.T) {
	b := stepBuffer(t, 40, 30, 20)

	r, err := Render(b, RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.MimeType != "image/png" {
		t.Errorf("MimeType: got %q", r.MimeType)
	}
	if r.Width != 40 || r.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", r.Width, r.Height)
	}

	img := decodeRendered(t, r)
	if got := color.GrayModel.Convert(img.At(5, 5)).(color.Gray).Y; got != 0 {
		t.Errorf("dark pixel: got %d, want 0", got)
	}
	if got := color.GrayModel.Convert(img.At(35, 5)).(color.Gray).Y; got != 255 {
		t.Errorf("bright pixel: got %d, want 255", got)
	}
}

func TestRender_Scale(t *testing.T) {
	b, _ := NewBuffer(40, 30)

	tests := []struct {
		scale         float64
		width, height int
	}{
		{0, 40, 30},
		{1, 40, 30},
		{2, 80, 60},
		{0.5, 20, 15},
	}
	for _, tt := range tests {
		r, err := Render(b, RenderOptions{Scale: tt.scale})
		if err != nil {
			t.Fatalf("Render(scale=%v) failed: %v", tt.scale, err)
		}
		if r.Width != tt.width || r.Height != tt.height {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, r.Width, r.Height, tt.width, tt.height)
		}
	}
}

func TestRender_Errors(t *testing.T) {
	b, _ := NewBuffer(10, 10)

	if _, err := Render(b, RenderOptions{Colormap: "rainbow"}); !errors.Is(err, ErrUnknownColormap) {
		t.Errorf("unknown colormap: got %v, want ErrUnknownColormap", err)
	}
	if _, err := Render(b, RenderOptions{Overlay: &CircleOverlay{Radius: 2, Color: "nope"}}); err == nil {
		t.Error("expected error for invalid overlay color")
	}
	if _, err := Render(nil, RenderOptions{}); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded, got %v", err)
	}

	for _, scale := range []float64{MaxDimension, 1e300, math.Inf(1), math.NaN()} {
		if _, err := Render(b, RenderOptions{Scale: scale}); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("scale %v: got %v, want ErrInvalidDimensions", scale, err)
		}
		if _, err := EncodePNG(b, RenderOptions{Scale: scale}); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("EncodePNG scale %v: got %v, want ErrInvalidDimensions", scale, err)
		}
		if _, err := CropPreview(b, ROI{X: 0, Y: 0, Width: 5, Height: 5}, "gray", scale*4); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("CropPreview scale %v: got %v, want ErrInvalidDimensions", scale, err)
		}
	}
}

func TestCompose_Overlay(t *testing.T) {
	b, _ := NewBuffer(100, 100)

	img, err := compose(b, RenderOptions{Overlay: &CircleOverlay{CenterX: 50, CenterY: 50, Radius: 20}})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	want := color.RGBA{0, 255, 0, 255}
	for _, p := range []image.Point{{70, 50}, {30, 50}, {50, 70}, {50, 30}} {
		if got := img.RGBAAt(p.X, p.Y); got != want {
			t.Errorf("overlay at %v: got %v, want %v", p, got, want)
		}
	}
	if got := img.RGBAAt(50, 50); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("center should be untouched, got %v", got)
	}
}

func TestCompose_OverlayOutsideImage(t *testing.T) {
	b, _ := NewBuffer(10, 10)
	if _, err := compose(b, RenderOptions{Overlay: &CircleOverlay{CenterX: 5, CenterY: 5, Radius: 50}}); err != nil {
		t.Errorf("off-image overlay should be clipped, got %v", err)
	}
}

func TestColormapLUT(t *testing.T) {
	gray, err := colormapLUT("gray")
	if err != nil {
		t.Fatalf("gray: %v", err)
	}
	for _, v := range []int{0, 1, 128, 255} {
		want := color.RGBA{uint8(v), uint8(v), uint8(v), 255}
		if gray[v] != want {
			t.Errorf("gray[%d]: got %v, want %v", v, gray[v], want)
		}
	}

	heat, err := colormapLUT("heat")
	if err != nil {
		t.Fatalf("heat: %v", err)
	}
	if heat[0].R > 5 || heat[0].G > 5 || heat[0].B > 5 {
		t.Errorf("heat[0] should be black, got %v", heat[0])
	}
	if heat[255].R < 250 || heat[255].G < 250 || heat[255].B < 250 {
		t.Errorf("heat[255] should be white, got %v", heat[255])
	}

	empty, err := colormapLUT("")
	if err != nil || empty != gray {
		t.Errorf("empty name should select gray, err=%v", err)
	}
}

func TestColormaps(t *testing.T) {
	want := []string{"diverging", "gray", "heat", "ice"}
	if got := Colormaps(); !reflect.DeepEqual(got, want) {
		t.Errorf("Colormaps: got %v, want %v", got, want)
	}
}

func TestEncodePNG(t *testing.T) {
	b, _ := NewBuffer(12, 8)
	data, err := EncodePNG(b, RenderOptions{Colormap: "ice", Scale: 2})
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if cfg.Width != 24 || cfg.Height != 16 {
		t.Errorf("dimensions: got %dx%d, want 24x16", cfg.Width, cfg.Height)
	}
}

func TestRenderEdgeMap(t *testing.T) {
	m := &EdgeMap{Width: 3, Height: 2, Edges: make([]bool, 6)}
	m.Edges[4] = true

	r, err := RenderEdgeMap(m)
	if err != nil {
		t.Fatalf("RenderEdgeMap failed: %v", err)
	}
	img := decodeRendered(t, r)
	if got := color.GrayModel.Convert(img.At(1, 1)).(color.Gray).Y; got != 255 {
		t.Errorf("edge pixel: got %d, want 255", got)
	}
	if got := color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y; got != 0 {
		t.Errorf("background pixel: got %d, want 0", got)
	}
}
