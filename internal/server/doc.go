// Package server implements the MCP (Model Context Protocol) front end of the
// edge response engine.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image sources (each replaces the current image and discards the last result):
//   - erf_generate_test_image: Default blurred disk test pattern
//   - erf_synthesize: Blurred disk with explicit size and radius
//   - erf_load_image: Load a file as 8-bit grayscale
//   - erf_edge_enhance: Laplacian sharpening of the current image
//
// Analysis:
//   - erf_calculate_response: Circle detection, radial profile, response function
//   - erf_noise_level: Global standard deviation
//   - erf_cnr: Contrast-to-noise ratio of a region
//
// Display:
//   - erf_render_image: Colormapped PNG with optional circle overlay
//   - erf_edge_map: Canny edge map as PNG
//   - erf_roi_preview: Region crop with statistics
//
// State:
//   - erf_status: Session snapshot
//
// All tools act on one shared session.Session, so results of one call are
// visible to the next.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and data {"kind": ..., "message": ...}, where kind is one of the
// analysis.ErrorKind values (NoImageLoaded, NoCircleDetected, InvalidROI,
// InvalidInput, Canceled, Internal). A handler panic is answered with
// -32603 (Internal error) instead of taking the server down.
//
// # Usage
//
//	sess := session.New(cfg, logger)
//	srv := server.New(sess, logger, version)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
