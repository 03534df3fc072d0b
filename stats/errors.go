package stats

import "errors"

// Expected data conditions are surfaced as typed errors inspected with
// errors.Is — never as panics. A skipped analysis is not a failed run.
var (
	// ErrInsufficientData marks a test that cannot run on the available
	// rows (too few observations, too few levels, degenerate table).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrCannotTest marks a comparison where both the primary test and
	// its fallback were unusable.
	ErrCannotTest = errors.New("could not test")
)
