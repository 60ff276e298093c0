package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Weight computation errors (invalid numeric input)
	ErrDomain        = errors.New("invalid weight input")
	ErrPositivity    = fmt.Errorf("%w: propensity at boundary", ErrDomain)
	ErrResidualScale = fmt.Errorf("%w: non-positive residual scale", ErrDomain)
	ErrZeroDensity   = fmt.Errorf("%w: zero exposure density", ErrDomain)

	// Outcome estimation errors
	ErrEstimation        = errors.New("estimation failed")
	ErrRankDeficient     = fmt.Errorf("%w: rank-deficient design matrix", ErrEstimation)
	ErrDegenerateWeights = fmt.Errorf("%w: degenerate weight vector", ErrEstimation)

	// Bootstrap errors
	ErrBootstrap        = errors.New("bootstrap failed")
	ErrFailureThreshold = fmt.Errorf("%w: replicate failure fraction above threshold", ErrBootstrap)
	ErrMissingStdErr    = fmt.Errorf("%w: studentized interval requires replicate standard errors", ErrBootstrap)

	// Lookup errors
	ErrNotFound = errors.New("resource not found")

	// Table errors
	ErrColumnNotFound = errors.New("column not found")
	ErrLengthMismatch = errors.New("column length mismatch")
	ErrEmptyTable     = errors.New("empty table")
)

// Error constructors with context
func NewPositivityError(row int, propensity float64) error {
	return fmt.Errorf("%w: fitted propensity %g at observation %d", ErrPositivity, propensity, row)
}

func NewZeroDensityError(row int, exposure float64) error {
	return fmt.Errorf("%w: exposure %g at observation %d", ErrZeroDensity, exposure, row)
}

func NewColumnNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Error checking helpers
func IsDomainError(err error) bool {
	return errors.Is(err, ErrDomain)
}

func IsEstimationError(err error) bool {
	return errors.Is(err, ErrEstimation)
}

func IsBootstrapError(err error) bool {
	return errors.Is(err, ErrBootstrap)
}
