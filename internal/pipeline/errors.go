package pipeline

import "errors"

// Window failure kinds. Each aborts the analysis of one lookback window;
// the orchestrator moves on to the next candidate window.
var (
	// ErrInsufficientData: fewer bars than the clustering minimum.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateDetection: too few swings even after the full relaxation
	// search, or a density curve with no peaks.
	ErrDegenerateDetection = errors.New("degenerate detection")

	// ErrDegenerateEstimation: density estimation produced no grid.
	ErrDegenerateEstimation = errors.New("degenerate estimation")
)

// retryable reports whether err should move the search to the next window.
func retryable(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateDetection) ||
		errors.Is(err, ErrDegenerateEstimation)
}
