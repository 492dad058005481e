package reporting

import "errors"

var (
	// ErrInvalidRange indicates a missing or malformed date, or a start after the end.
	ErrInvalidRange = errors.New("reporting: invalid date range")
	// ErrInvalidGranularity indicates an unrecognised time-series bucket size.
	ErrInvalidGranularity = errors.New("reporting: invalid granularity")
	// ErrInvalidMetric indicates an unrecognised time-series metric.
	ErrInvalidMetric = errors.New("reporting: invalid metric")
	// ErrInvalidDimension indicates an unrecognised group-by dimension.
	ErrInvalidDimension = errors.New("reporting: invalid group-by dimension")
	// ErrInvalidBound indicates an unrecognised range bound selector.
	ErrInvalidBound = errors.New("reporting: invalid range bound")
)

// IsRequestError reports whether err was caused by the caller's parameters
// rather than by storage.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, ErrInvalidMetric) ||
		errors.Is(err, ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidBound)
}
