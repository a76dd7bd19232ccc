package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// RegionStats describes the intensity distribution inside a region.
type RegionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Pixels int     `json:"pixels"`
}

// QualityReport bundles the global noise level with the CNR of one region.
type QualityReport struct {
	NoiseLevel float64 `json:"noise_level"`
	CNR        float64 `json:"cnr"`
}

// NoiseLevel returns the population standard deviation of every sample in b.
func NoiseLevel(b *imaging.Buffer) (float64, error) {
	if err := imaging.RequireImage(b); err != nil {
		return 0, err
	}
	_, std := meanStdDev(toFloats(b.Pix))
	return std, nil
}

// CNR returns mean/std-dev of the samples inside roi. A region with zero
// standard deviation yields +Inf rather than an error.
//
// # Errors
//
//   - ErrNoImageLoaded if b is empty
//   - ErrInvalidROI if roi is empty or not fully inside b
func CNR(b *imaging.Buffer, roi imaging.ROI) (float64, error) {
	s, err := RegionStatistics(b, roi)
	if err != nil {
		return 0, err
	}
	return ratio(s.Mean, s.StdDev), nil
}

// RegionStatistics summarizes the samples inside roi.
func RegionStatistics(b *imaging.Buffer, roi imaging.ROI) (*RegionStats, error) {
	if err := roi.Validate(b); err != nil {
		return nil, err
	}
	values := toFloats(roi.Samples(b))
	mean, std := meanStdDev(values)
	return &RegionStats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Pixels: len(values),
	}, nil
}

// Report computes the noise level of b and the CNR of roi.
func Report(b *imaging.Buffer, roi imaging.ROI) (*QualityReport, error) {
	noise, err := NoiseLevel(b)
	if err != nil {
		return nil, err
	}
	cnr, err := CNR(b, roi)
	if err != nil {
		return nil, err
	}
	return &QualityReport{NoiseLevel: noise, CNR: cnr}, nil
}

// ratio divides mean by std, mapping a zero std to +Inf.
func ratio(mean, std float64) float64 {
	if std == 0 {
		return math.Inf(1)
	}
	return mean / std
}

// meanStdDev returns the population mean and standard deviation. A single
// sample has zero spread.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.PopMeanStdDev(values, nil)
}

func toFloats(pix []uint8) []float64 {
	out := make([]float64, len(pix))
	for i, v := range pix {
		out[i] = float64(v)
	}
	return out
}
