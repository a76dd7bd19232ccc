// Package detection locates the dominant circular edge in an intensity image.
//
// The package implements the Hough gradient circle transform on top of the
// Canny edge map from package imaging. It is the first stage of edge-response
// analysis: the detected center and radius define the polar grid over which
// the radial profile is sampled.
//
// # Algorithm Overview
//
//  1. Edge Detection: Canny with a configurable low/high threshold pair
//     (default 100/200)
//  2. Accumulator Voting: each edge pixel votes along its gradient direction,
//     so votes concentrate at the centers of circular edges
//  3. Center Selection: cells whose 3×3 neighborhood vote total exceeds the
//     threshold (default 100) and is a local maximum, separated by at least
//     rows/8 pixels
//  4. Center Refinement: least-squares circle fit to the edge pixels near
//     the estimated radius
//  5. Radius Estimation: the distance band around each center that contains
//     the most edge pixels
//
// # Ranking
//
// Detect never relies on the order in which candidates are produced. All
// candidates are sorted by Rank: accumulator votes first, then edge support,
// then radius, then position. The first ranked circle is the result.
//
// # Backends
//
// New returns the pure-Go HoughDetector. Binaries built with the opencv tag
// use OpenCV's HoughCircles through gocv instead; that backend reports no
// accumulator scores, so its candidates are ranked by edge support alone.
//
// # Coordinate System
//
// Centers are sub-pixel positions in image coordinates:
//   - Origin (0, 0) at the top-left pixel center
//   - X increases rightward
//   - Y increases downward
//
// # Errors
//
//   - imaging.ErrNoImageLoaded when the buffer is empty
//   - ErrNoCircleDetected when no candidate survives the thresholds
//   - the context error when detection is canceled
package detection
