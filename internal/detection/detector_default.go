//go:build !opencv

package detection

// New returns the default circle detector for this build. Without the opencv
// build tag it is the pure-Go HoughDetector.
func New(params Params) Detector {
	return NewHoughDetector(params)
}

// Backend names the detector implementation compiled into this binary.
const Backend = "hough-go"
