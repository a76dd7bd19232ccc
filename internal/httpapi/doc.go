// Package httpapi serves the edge response session over HTTP with gin.
//
// Routes:
//
//	GET  /health               liveness and version
//	GET  /status               session snapshot
//	POST /image/generate       default test pattern
//	POST /image/synthesize     {"width", "height", "radius"}
//	POST /image/load           {"path", "reload"}
//	POST /image/upload         raw encoded image body (?name=)
//	POST /image/enhance        Laplacian sharpening
//	GET  /image.png            ?colormap=&overlay=true&scale=&grid=&labels=true
//	GET  /edges.png            Canny edge map, X-Edge-Count header
//	POST /analysis/response    {"margin", "angular_samples"}, both optional
//	GET  /analysis/response    last result
//	GET  /metrics/noise        global standard deviation
//	POST /metrics/cnr          {"x", "y", "width", "height"}, all or none
//
// Failures are reported as {"error": kind, "message": text} with the status
// code chosen by StatusCode.
package httpapi
