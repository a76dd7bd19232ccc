package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/edge-response-mcp/internal/analysis"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
	"github.com/ironsheep/edge-response-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "erf_load_image", "erf_cnr").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// toolErrorData is attached to -32000 responses so clients can branch on
// the failure class without parsing the message.
type toolErrorData struct {
	Kind    analysis.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// and data {"kind": ..., "message": ...}.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		kind := analysis.KindOf(err)
		s.log.WithError(err).WithField("tool", params.Name).WithField("kind", kind).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", toolErrorData{
			Kind:    kind,
			Message: err.Error(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the session, which owns the current image and result
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image sources
	case "erf_generate_test_image":
		return s.handleGenerateTestImage()
	case "erf_synthesize":
		return s.handleSynthesize(args)
	case "erf_load_image":
		return s.handleLoadImage(args)
	case "erf_edge_enhance":
		return s.handleEdgeEnhance()

	// Analysis
	case "erf_calculate_response":
		return s.handleCalculateResponse(ctx, args)
	case "erf_noise_level":
		return s.handleNoiseLevel()
	case "erf_cnr":
		return s.handleCNR(args)

	// Display
	case "erf_render_image":
		return s.handleRenderImage(args)
	case "erf_edge_map":
		return s.handleEdgeMap(args)
	case "erf_roi_preview":
		return s.handleROIPreview(args)

	case "erf_status":
		return s.sess.Snapshot(), nil

	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", analysis.ErrInvalidInput, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes optional tool arguments; absent arguments leave v
// at its zero value.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrInvalidInput, err)
	}
	return nil
}

// === Image Source Handlers ===

// imageInfo describes the current image after a tool replaced it.
type imageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Source string `json:"source"`
	Status string `json:"status"`
}

func (s *Server) imageInfo(b *imaging.Buffer) imageInfo {
	snap := s.sess.Snapshot()
	return imageInfo{Width: b.Width, Height: b.Height, Source: snap.Source, Status: snap.Status}
}

func (s *Server) handleGenerateTestImage() (interface{}, error) {
	b, err := s.sess.GenerateTestImage()
	if err != nil {
		return nil, err
	}
	return s.imageInfo(b), nil
}

type synthesizeArgs struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Radius int `json:"radius"`
}

func (s *Server) handleSynthesize(args json.RawMessage) (interface{}, error) {
	var a synthesizeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	b, err := s.sess.Synthesize(a.Width, a.Height, a.Radius)
	if err != nil {
		return nil, err
	}
	return s.imageInfo(b), nil
}

type loadImageArgs struct {
	Path   string `json:"path"`
	Reload bool   `json:"reload"`
}

func (s *Server) handleLoadImage(args json.RawMessage) (interface{}, error) {
	var a loadImageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", analysis.ErrInvalidInput)
	}
	b, err := s.sess.Load(a.Path, a.Reload)
	if err != nil {
		return nil, err
	}
	return s.imageInfo(b), nil
}

func (s *Server) handleEdgeEnhance() (interface{}, error) {
	b, err := s.sess.EnhanceEdges()
	if err != nil {
		return nil, err
	}
	return s.imageInfo(b), nil
}

// === Analysis Handlers ===

type calculateResponseArgs struct {
	Margin         *int `json:"margin"`
	AngularSamples *int `json:"angular_samples"`
}

type responseResult struct {
	*analysis.Result
	Status string `json:"status"`
}

func (s *Server) handleCalculateResponse(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a calculateResponseArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	p := s.sess.Config().ProfileParams()
	if a.Margin != nil {
		p.Margin = *a.Margin
	}
	if a.AngularSamples != nil {
		p.AngularSamples = *a.AngularSamples
	}

	r, err := s.sess.AnalyzeWith(ctx, p)
	if err != nil {
		return nil, err
	}
	return responseResult{Result: r, Status: s.sess.Status()}, nil
}

type noiseResult struct {
	NoiseLevel float64 `json:"noise_level"`
	Status     string  `json:"status"`
}

func (s *Server) handleNoiseLevel() (interface{}, error) {
	v, err := s.sess.NoiseLevel()
	if err != nil {
		return nil, err
	}
	return noiseResult{NoiseLevel: v, Status: s.sess.Status()}, nil
}

// roiArgs holds an optional region. Either all four fields are given or
// none is.
type roiArgs struct {
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

func (a roiArgs) roi() (*imaging.ROI, error) {
	switch {
	case a.X == nil && a.Y == nil && a.Width == nil && a.Height == nil:
		return nil, nil
	case a.X == nil || a.Y == nil || a.Width == nil || a.Height == nil:
		return nil, fmt.Errorf("%w: x, y, width and height must be given together", analysis.ErrInvalidInput)
	}
	return &imaging.ROI{X: *a.X, Y: *a.Y, Width: *a.Width, Height: *a.Height}, nil
}

type cnrResult struct {
	session.CNRReading
	Status string `json:"status"`
}

func (s *Server) handleCNR(args json.RawMessage) (interface{}, error) {
	var a roiArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	roi, err := a.roi()
	if err != nil {
		return nil, err
	}

	v, region, err := s.sess.CNR(roi)
	if err != nil {
		return nil, err
	}
	return cnrResult{CNRReading: session.NewCNRReading(v, region), Status: s.sess.Status()}, nil
}

// === Display Handlers ===

type renderImageArgs struct {
	Colormap   string  `json:"colormap"`
	Overlay    bool    `json:"overlay"`
	Scale      float64 `json:"scale"`
	Grid       int     `json:"grid"`
	GridLabels bool    `json:"grid_labels"`
}

type renderResult struct {
	*imaging.RenderResult
	Colormap string `json:"colormap"`
	Overlay  bool   `json:"overlay"`
}

func (s *Server) handleRenderImage(args json.RawMessage) (interface{}, error) {
	var a renderImageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Colormap == "" {
		a.Colormap = "gray"
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	b := s.sess.Image()
	opts := imaging.RenderOptions{
		Colormap:   a.Colormap,
		Scale:      a.Scale,
		Grid:       a.Grid,
		GridLabels: a.GridLabels,
	}
	overlaid := false
	if a.Overlay {
		if r := s.sess.Result(); r != nil {
			opts.Overlay = &imaging.CircleOverlay{
				CenterX: r.Circle.Center.X,
				CenterY: r.Circle.Center.Y,
				Radius:  r.Circle.Radius,
			}
			overlaid = true
		}
	}

	out, err := imaging.Render(b, opts)
	if err != nil {
		return nil, err
	}
	return renderResult{RenderResult: out, Colormap: a.Colormap, Overlay: overlaid}, nil
}

type edgeMapArgs struct {
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`
}

type edgeMapResult struct {
	*imaging.RenderResult
	EdgeCount     int     `json:"edge_count"`
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`
}

func (s *Server) handleEdgeMap(args json.RawMessage) (interface{}, error) {
	var a edgeMapArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	cfg := s.sess.Config()
	if a.LowThreshold == 0 {
		a.LowThreshold = cfg.Edge.LowThreshold
	}
	if a.HighThreshold == 0 {
		a.HighThreshold = cfg.Edge.HighThreshold
	}

	m, err := imaging.Canny(s.sess.Image(), a.LowThreshold, a.HighThreshold)
	if err != nil {
		return nil, err
	}
	out, err := imaging.RenderEdgeMap(m)
	if err != nil {
		return nil, err
	}
	return edgeMapResult{
		RenderResult:  out,
		EdgeCount:     m.Count(),
		LowThreshold:  a.LowThreshold,
		HighThreshold: a.HighThreshold,
	}, nil
}

type roiPreviewArgs struct {
	roiArgs
	Colormap string  `json:"colormap"`
	Scale    float64 `json:"scale"`
}

type roiPreviewResult struct {
	*imaging.RenderResult
	ROI   imaging.ROI           `json:"roi"`
	Stats *analysis.RegionStats `json:"stats"`
}

func (s *Server) handleROIPreview(args json.RawMessage) (interface{}, error) {
	var a roiPreviewArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	roi, err := a.roi()
	if err != nil {
		return nil, err
	}
	region := s.sess.Config().DefaultROI()
	if roi != nil {
		region = *roi
	}

	b := s.sess.Image()
	stats, err := analysis.RegionStatistics(b, region)
	if err != nil {
		return nil, err
	}
	out, err := imaging.CropPreview(b, region, a.Colormap, a.Scale)
	if err != nil {
		return nil, err
	}
	return roiPreviewResult{RenderResult: out, ROI: region, Stats: stats}, nil
}
