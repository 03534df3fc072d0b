package model

import "errors"

// Fit problems are typed so the pipeline can tell "skip and move on"
// apart from "the model could not be fitted". Neither ever crosses a
// stage boundary as a panic.
var (
	// ErrInsufficientData marks a model with zero complete cases or
	// fewer than 2 outcome/group levels after filtering.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrFitFailure marks numerical non-convergence or a singular
	// design, caught at the fitting boundary.
	ErrFitFailure = errors.New("model could not be fitted")
)
