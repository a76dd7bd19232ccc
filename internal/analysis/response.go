package analysis

import (
	"gonum.org/v1/gonum/floats"
)

// ResponseFunction holds the first differences of a radial profile.
type ResponseFunction []float64

// Derive returns the first differences of the profile means in profile order:
// entry i is profile[i+1].Mean - profile[i].Mean. Gaps left by omitted radii
// are bridged without rescaling. Profiles with fewer than two entries yield an
// empty (non-nil) response.
func Derive(profile RadialProfile) ResponseFunction {
	if len(profile) < 2 {
		return ResponseFunction{}
	}
	out := make(ResponseFunction, len(profile)-1)
	for i := range out {
		out[i] = profile[i+1].Mean - profile[i].Mean
	}
	return out
}

// EdgePeak summarizes the strongest falling edge in a response function.
type EdgePeak struct {
	// Index is the position of the most negative response entry.
	Index int `json:"index"`

	// Radius is the outer radius of the difference at Index.
	Radius int `json:"radius"`

	// Value is the response at Index.
	Value float64 `json:"value"`

	// Width is the number of consecutive entries around Index whose response
	// is at or below half of Value (full width at half maximum). Zero when
	// the response never falls.
	Width int `json:"width"`
}

// FindEdge locates the most negative entry of response and measures the width
// of the lobe around it. It reports false when response is empty or does not
// match profile.
func FindEdge(profile RadialProfile, response ResponseFunction) (EdgePeak, bool) {
	if len(response) == 0 || len(profile) != len(response)+1 {
		return EdgePeak{}, false
	}

	idx := floats.MinIdx(response)
	peak := EdgePeak{
		Index:  idx,
		Radius: profile[idx+1].Radius,
		Value:  response[idx],
	}
	if peak.Value >= 0 {
		return peak, true
	}

	half := peak.Value / 2
	lo, hi := idx, idx
	for lo > 0 && response[lo-1] <= half {
		lo--
	}
	for hi < len(response)-1 && response[hi+1] <= half {
		hi++
	}
	peak.Width = hi - lo + 1
	return peak, true
}
