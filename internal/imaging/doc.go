// Package imaging provides the intensity-image primitives of the edge-response
// analyzer.
//
// The central type is Buffer, a dense row-major grid of 8-bit single-channel
// samples. Everything else in this package either produces a Buffer
// (decoding, synthesis, edge enhancement) or derives something from one
// (Canny edge maps, display renderings, regions of interest).
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Sample (x, y) lives at Pix[y*Width+x]
//   - An ROI spans [X, X+Width) × [Y, Y+Height)
//
// # Ownership
//
// Buffers are never modified in place by this package. Synthesis, blurring
// and enhancement always return a new Buffer, so a Buffer can be shared
// between goroutines as long as callers do not write to Pix themselves.
//
// # Synthetic Targets
//
// Synthesize draws a filled disk of maximum intensity centered at
// (width/2, height/2) over a zero background and smooths it with a 5×5
// Gaussian (σ = 2.0) to imitate optical blur. The result is deterministic and
// is the standard input for exercising circle detection and radial profiling
// without external files.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty or unset buffers (ErrNoImageLoaded)
//   - Undecodable files (ErrDecodeFailure, joined with ErrNoImageLoaded)
//   - Non-positive sizes or negative radii (ErrInvalidDimensions)
//   - Regions that leave the image (ErrInvalidROI)
//
// # Display Output
//
// Render and CropPreview turn buffers into base64 PNG for a display
// collaborator, optionally mapped through a colormap (gray, heat, diverging,
// ice) and annotated with the detected circle or a labelled coordinate grid
// for picking regions of interest.
package imaging
