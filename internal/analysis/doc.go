// Package analysis turns an intensity image into an edge response function
// and image-quality figures.
//
// The pipeline is
//
//	Buffer → detection.Detector → Circle → Profile → RadialProfile → Derive → ResponseFunction
//
// Every stage is a pure function of its inputs. Engine composes them and
// returns a fresh Result per call; it never stores results. Deciding whether
// a result replaces, or a failure clears, previously shown output is the job
// of the caller (see package session).
//
// # Radial Profile
//
// Profile averages intensity over AngularSamples points (default 360) on each
// integer radius from 0 to the rounded circle radius plus an optional margin.
// Sample coordinates are rounded to the nearest pixel. Radii whose samples all
// fall outside the image are left out, so a profile may skip radii.
//
// # Response Function
//
// Derive first-differences consecutive profile entries. A profile of n
// entries yields n-1 differences; a gap in radii is bridged without
// rescaling. For a bright disk on a dark background the response has a single
// negative lobe at the disk boundary, located by FindEdge.
//
// # Quality Metrics
//
//   - NoiseLevel: population standard deviation of the whole image
//   - CNR: mean over standard deviation inside a region; +Inf when the region
//     is perfectly uniform
//
// # Errors
//
// KindOf maps any error returned here to a stable ErrorKind for transports.
package analysis
