package analysis

import (
	"context"
	"errors"

	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/imaging"
)

// Errors re-exported so callers of this package need not import imaging or
// detection to classify failures.
var (
	ErrNoImageLoaded    = imaging.ErrNoImageLoaded
	ErrNoCircleDetected = detection.ErrNoCircleDetected
	ErrInvalidROI       = imaging.ErrInvalidROI

	// ErrInvalidInput reports arguments no image could satisfy, such as a
	// negative radius or a non-positive angular sample count.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind is a stable, transport-independent name for a failure class.
type ErrorKind string

// Error kinds reported to presentation layers.
const (
	KindNone             ErrorKind = ""
	KindNoImageLoaded    ErrorKind = "NoImageLoaded"
	KindNoCircleDetected ErrorKind = "NoCircleDetected"
	KindInvalidROI       ErrorKind = "InvalidROI"
	KindInvalidInput     ErrorKind = "InvalidInput"
	KindCanceled         ErrorKind = "Canceled"
	KindInternal         ErrorKind = "Internal"
)

// KindOf classifies err. A nil error has KindNone; anything unrecognized is
// KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrNoImageLoaded):
		return KindNoImageLoaded
	case errors.Is(err, ErrNoCircleDetected):
		return KindNoCircleDetected
	case errors.Is(err, ErrInvalidROI):
		return KindInvalidROI
	case errors.Is(err, ErrInvalidInput), errors.Is(err, imaging.ErrInvalidDimensions),
		errors.Is(err, imaging.ErrUnknownColormap):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
