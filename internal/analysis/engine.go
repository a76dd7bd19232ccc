package analysis

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// Result is the output of one detect → profile → derive run.
type Result struct {
	Circle   detection.Circle `json:"circle"`
	Profile  RadialProfile    `json:"profile"`
	Response ResponseFunction `json:"response"`

	// Edge is the strongest falling edge of Response; valid when HasEdge.
	Edge    EdgePeak `json:"edge"`
	HasEdge bool     `json:"has_edge"`
}

// Engine composes circle detection, radial profiling and differentiation.
// It keeps no state between calls and is safe for concurrent use when its
// detector is.
type Engine struct {
	detector detection.Detector
	params   ProfileParams
	log      *logrus.Logger
}

// NewEngine creates an engine. A nil logger discards log output.
func NewEngine(detector detection.Detector, params ProfileParams, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Engine{detector: detector, params: params, log: logger}
}

// Params returns the engine's default profile parameters.
func (e *Engine) Params() ProfileParams {
	return e.params
}

// Analyze runs the pipeline with the engine's profile parameters.
func (e *Engine) Analyze(ctx context.Context, b *imaging.Buffer) (*Result, error) {
	return e.AnalyzeWith(ctx, b, e.params)
}

// AnalyzeWith runs the pipeline with explicit profile parameters.
//
// # Errors
//
//   - ErrNoImageLoaded if b is empty (nothing else is computed)
//   - ErrNoCircleDetected if the detector finds no candidate
//   - ErrInvalidInput if p is invalid
//   - the context error if ctx is canceled
func (e *Engine) AnalyzeWith(ctx context.Context, b *imaging.Buffer, p ProfileParams) (*Result, error) {
	if err := imaging.RequireImage(b); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	circle, err := e.detector.Detect(ctx, b)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"width":    b.Width,
		"height":   b.Height,
		"center_x": circle.Center.X,
		"center_y": circle.Center.Y,
		"radius":   circle.Radius,
		"votes":    circle.Votes,
	}).Debug("circle detected")

	profile, err := Profile(ctx, b, circle, p)
	if err != nil {
		return nil, err
	}
	response := Derive(profile)
	edge, ok := FindEdge(profile, response)

	e.log.WithFields(logrus.Fields{
		"profile_len": len(profile),
		"edge_radius": edge.Radius,
		"edge_width":  edge.Width,
	}).Debug("response function derived")

	return &Result{
		Circle:   circle,
		Profile:  profile,
		Response: response,
		Edge:     edge,
		HasEdge:  ok,
	}, nil
}
