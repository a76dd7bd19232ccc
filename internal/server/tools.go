package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// noArgs is the schema of tools that take no arguments.
func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// roiProperties returns the optional x/y/width/height region properties.
func roiProperties() map[string]interface{} {
	return map[string]interface{}{
		"x": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge of the region (inclusive)",
		},
		"y": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge of the region (inclusive)",
		},
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Region width in pixels",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Region height in pixels",
		},
	}
}

var colormapProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"diverging", "gray", "heat", "ice"},
	"default":     "gray",
	"description": "Colormap used for display",
}

var scaleProperty = map[string]interface{}{
	"type":        "number",
	"default":     1.0,
	"description": "Output scale factor (Lanczos resampling)",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	roiPreview := roiProperties()
	roiPreview["colormap"] = colormapProperty
	roiPreview["scale"] = scaleProperty

	return []Tool{
		// Image sources
		{
			Name:        "erf_generate_test_image",
			Description: "Replace the current image with the default test pattern: a 500x500 blurred bright disk of radius 200 on a black background.",
			InputSchema: noArgs(),
		},
		{
			Name:        "erf_synthesize",
			Description: "Replace the current image with a blurred bright disk centered in a width x height canvas.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas height in pixels",
					},
					"radius": map[string]interface{}{
						"type":        "integer",
						"description": "Disk radius in pixels",
					},
				},
				"required": []string{"width", "height", "radius"},
			},
		},
		{
			Name:        "erf_load_image",
			Description: "Load an image file as 8-bit grayscale and make it the current image. A failed load leaves no image loaded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"reload": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Re-read the file even if it was loaded before",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "erf_edge_enhance",
			Description: "Replace the current image with its Laplacian-sharpened version. Discards any previous analysis.",
			InputSchema: noArgs(),
		},

		// Analysis
		{
			Name:        "erf_calculate_response",
			Description: "Detect the dominant circle, sample its radial intensity profile and return the edge response function (first differences of the profile).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"margin": map[string]interface{}{
						"type":        "integer",
						"default":     0,
						"description": "Extra radii sampled beyond the detected radius",
					},
					"angular_samples": map[string]interface{}{
						"type":        "integer",
						"default":     360,
						"description": "Number of equally spaced angles per radius",
					},
				},
			},
		},
		{
			Name:        "erf_noise_level",
			Description: "Population standard deviation of every pixel of the current image.",
			InputSchema: noArgs(),
		},
		{
			Name:        "erf_cnr",
			Description: "Contrast-to-noise ratio (mean / standard deviation) inside a region. Omit all region fields to use the configured default region. A uniform region reports cnr null with infinite true.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": roiProperties(),
			},
		},

		// Display
		{
			Name:        "erf_render_image",
			Description: "Render the current image as a base64 PNG, optionally with the detected circle drawn on top.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"colormap": colormapProperty,
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Draw the circle from the last response calculation",
					},
					"scale": scaleProperty,
					"grid": map[string]interface{}{
						"type":        "integer",
						"description": "Draw coordinate lines every N source pixels (0 = none)",
					},
					"grid_labels": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Label grid intersections with x,y coordinates",
					},
				},
			},
		},
		{
			Name:        "erf_edge_map",
			Description: "Run Canny edge detection on the current image and return the edge map as a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"low_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Hysteresis low threshold (default from configuration)",
					},
					"high_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Hysteresis high threshold (default from configuration)",
					},
				},
			},
		},
		{
			Name:        "erf_roi_preview",
			Description: "Crop a region of the current image for display and report its intensity statistics.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": roiPreview,
			},
		},
		{
			Name:        "erf_status",
			Description: "Report the session state: image size and source, whether a result is held, and the last status message.",
			InputSchema: noArgs(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
