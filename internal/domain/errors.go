package domain

import "errors"

// Configuration errors. These abort the current computation; callers must not
// fall back to a mid-scale score when one is returned.
var (
	ErrMalformedMetric = errors.New("malformed metric spec")
	ErrUnknownLabel    = errors.New("unknown categorical label")
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrValueKind       = errors.New("value kind does not match metric rule")
	ErrMissingInput    = errors.New("missing input for metric without default")
	ErrZeroWeights     = errors.New("weights sum to zero")
	ErrNegativeWeight  = errors.New("negative weight")
	ErrWeightOverflow  = errors.New("weights sum is not finite")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownRegion   = errors.New("unknown region")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Data errors. These are fatal to the load step that produced them.
var (
	ErrMissingColumn = errors.New("missing expected column")
	ErrInvalidFIPS   = errors.New("invalid county fips")
)
