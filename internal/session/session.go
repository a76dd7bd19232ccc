// Package session owns the pipeline context shared by the transports: the
// current image, the last analysis result and a human-readable status line.
//
// All compute is delegated to packages imaging, detection and analysis. The
// session only decides what is kept:
//
//   - Replacing the image (generate, synthesize, load, ingest, enhance)
//     discards the previous analysis, since it describes another image.
//   - A failed analysis clears the previous result instead of leaving it
//     visible as if it were current.
//   - A failed load clears the image, leaving the session with no image.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/edge-response-mcp/internal/analysis"
	"github.com/ironsheep/edge-response-mcp/internal/config"
	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
	"github.com/ironsheep/edge-response-mcp/internal/logging"
)

// Status messages reported after each operation.
const (
	StatusReady            = "Ready"
	StatusGenerated        = "Test image generated"
	StatusSynthesized      = "Test image synthesized"
	StatusLoaded           = "Image loaded"
	StatusLoadFailed       = "Failed to load image"
	StatusNoImage          = "No image loaded"
	StatusNoCircle         = "No circles detected"
	StatusResponseComputed = "Response function calculated"
	StatusEnhanced         = "Edge enhancement applied"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	HasImage  bool   `json:"has_image"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Source    string `json:"source,omitempty"`
	HasResult bool   `json:"has_result"`
	Status    string `json:"status"`
	Backend   string `json:"detector_backend"`
}

// Session is safe for concurrent use; operations are serialized.
type Session struct {
	mu sync.Mutex

	cfg      *config.Config
	detector detection.Detector
	engine   *analysis.Engine
	cache    *imaging.ImageCache
	log      *logrus.Logger

	image  *imaging.Buffer
	source string
	result *analysis.Result
	status string
}

// New creates a session using the default detector backend configured from
// cfg. A nil cfg uses config.DefaultConfig; a nil logger discards output.
func New(cfg *config.Config, logger *logrus.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewWithDetector(cfg, detection.New(cfg.DetectionParams()), logger)
}

// NewWithDetector creates a session around an explicit detector.
func NewWithDetector(cfg *config.Config, detector detection.Detector, logger *logrus.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		cfg:      cfg,
		detector: detector,
		engine:   analysis.NewEngine(detector, cfg.ProfileParams(), logger),
		cache:    imaging.NewImageCache(),
		log:      logger,
		status:   StatusReady,
	}
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Detector returns the circle detector used by Analyze.
func (s *Session) Detector() detection.Detector {
	return s.detector
}

// GenerateTestImage replaces the image with the configured calibration target.
func (s *Session) GenerateTestImage() (*imaging.Buffer, error) {
	syn := s.cfg.Synthesis
	b, err := imaging.SynthesizeWithBlur(syn.Width, syn.Height, syn.Radius, s.cfg.BlurParams())
	if err != nil {
		return nil, s.fail(err, fmt.Sprintf("Failed to generate test image: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(b, "test-pattern", StatusGenerated)
	return b, nil
}

// Synthesize replaces the image with a blurred disk of the given geometry.
// Invalid dimensions leave the session unchanged apart from the status.
func (s *Session) Synthesize(width, height, radius int) (*imaging.Buffer, error) {
	b, err := imaging.SynthesizeWithBlur(width, height, radius, s.cfg.BlurParams())
	if err != nil {
		return nil, s.fail(err, fmt.Sprintf("Failed to synthesize test image: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(b, fmt.Sprintf("synthetic %dx%d r=%d", width, height, radius), StatusSynthesized)
	return b, nil
}

// Load decodes the image at path. Decoded files are cached by path; pass
// reload to decode the file again. On failure the current image and result
// are cleared and the error wraps imaging.ErrNoImageLoaded.
func (s *Session) Load(path string, reload bool) (*imaging.Buffer, error) {
	if reload {
		s.cache.Evict(path)
	}
	b, err := s.cache.Load(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.image, s.source, s.result = nil, "", nil
		s.status = StatusLoadFailed
		s.log.WithError(err).WithField("path", path).Warn("image load failed")
		return nil, err
	}
	s.replace(b, path, StatusLoaded)
	return b, nil
}

// Ingest replaces the image with an already-decoded buffer.
func (s *Session) Ingest(b *imaging.Buffer, source string) error {
	if err := imaging.RequireImage(b); err != nil {
		return s.fail(err, StatusNoImage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(b.Clone(), source, StatusLoaded)
	return nil
}

// Analyze runs detect → profile → derive on the current image with the
// configured profile parameters.
func (s *Session) Analyze(ctx context.Context) (*analysis.Result, error) {
	return s.AnalyzeWith(ctx, s.cfg.ProfileParams())
}

// AnalyzeWith runs the pipeline with explicit profile parameters. The result
// is stored on success; any failure clears the stored result.
func (s *Session) AnalyzeWith(ctx context.Context, p analysis.ProfileParams) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.engine.AnalyzeWith(ctx, s.image, p)
	if err != nil {
		s.result = nil
		s.status = statusFor(err)
		s.log.WithError(err).WithField("kind", analysis.KindOf(err)).Warn("response function not calculated")
		return nil, err
	}

	s.result = r
	s.status = StatusResponseComputed
	s.log.WithFields(logrus.Fields{
		"center_x":    r.Circle.Center.X,
		"center_y":    r.Circle.Center.Y,
		"radius":      r.Circle.Radius,
		"profile_len": len(r.Profile),
	}).Info("response function calculated")
	return r, nil
}

// EnhanceEdges replaces the image with its Laplacian-sharpened version.
func (s *Session) EnhanceEdges() (*imaging.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := imaging.EnhanceEdges(s.image)
	if err != nil {
		s.status = statusFor(err)
		return nil, err
	}
	s.replace(out, s.source, StatusEnhanced)
	return out, nil
}

// NoiseLevel computes the standard deviation of the current image.
func (s *Session) NoiseLevel() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := analysis.NoiseLevel(s.image)
	if err != nil {
		s.status = statusFor(err)
		return 0, err
	}
	s.status = fmt.Sprintf("Noise Level: %f", v)
	return v, nil
}

// CNR computes the contrast-to-noise ratio inside roi, or inside the
// configured default region when roi is nil. A uniform region yields +Inf.
func (s *Session) CNR(roi *imaging.ROI) (float64, imaging.ROI, error) {
	region := s.cfg.DefaultROI()
	if roi != nil {
		region = *roi
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := analysis.CNR(s.image, region)
	if err != nil {
		s.status = statusFor(err)
		return 0, region, err
	}
	s.status = fmt.Sprintf("CNR: %f", v)
	return v, region, nil
}

// Image returns the current image, or nil when none is loaded. The buffer is
// never modified by the session, so callers may read it without locking.
func (s *Session) Image() *imaging.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Result returns the last successful analysis of the current image, or nil.
func (s *Session) Result() *analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Status returns the message describing the last operation.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		HasImage:  s.image != nil,
		Source:    s.source,
		HasResult: s.result != nil,
		Status:    s.status,
		Backend:   detection.Backend,
	}
	if s.image != nil {
		snap.Width, snap.Height = s.image.Width, s.image.Height
	}
	return snap
}

// replace installs a new image and drops the analysis of the old one.
// Callers hold s.mu.
func (s *Session) replace(b *imaging.Buffer, source, status string) {
	s.image = b
	s.source = source
	s.result = nil
	s.status = status
	s.log.WithFields(logrus.Fields{
		"width":  b.Width,
		"height": b.Height,
		"source": source,
	}).Info(status)
}

// fail records status for an operation that did not touch the image.
func (s *Session) fail(err error, status string) error {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.log.WithError(err).Warn(status)
	return err
}

// statusFor maps a compute error to the status line shown to the user.
func statusFor(err error) string {
	switch analysis.KindOf(err) {
	case analysis.KindNoImageLoaded:
		return StatusNoImage
	case analysis.KindNoCircleDetected:
		return StatusNoCircle
	case analysis.KindInvalidROI:
		return fmt.Sprintf("Invalid ROI: %v", err)
	case analysis.KindCanceled:
		return "Operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// CNRReading is a JSON-safe form of a contrast-to-noise ratio. JSON has no
// infinity, so a uniform region reports a null CNR with Infinite set.
type CNRReading struct {
	CNR      *float64    `json:"cnr"`
	Infinite bool        `json:"infinite"`
	ROI      imaging.ROI `json:"roi"`
}

// NewCNRReading wraps a value returned by CNR.
func NewCNRReading(v float64, roi imaging.ROI) CNRReading {
	r := CNRReading{ROI: roi}
	if math.IsInf(v, 1) {
		r.Infinite = true
		return r
	}
	r.CNR = &v
	return r
}
