package array5d

import (
	"github.com/cockroachdb/errors"

	"pixelclassifier/pkg/point5d"
)

var (
	// ErrInvariantViolation is returned when an array does not satisfy the
	// shape predicate of the kind it is tagged with.
	ErrInvariantViolation = errors.New("shape invariant violated")

	// ErrShapeMismatch is returned when two arrays that must have the same
	// shape do not. The wrapping message names both shapes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndivisibleStep is returned when an iteration step does not evenly
	// divide the iterated axis.
	ErrIndivisibleStep = errors.New("step does not divide axis extent")

	// ErrOutOfBounds is returned when a region does not fit inside the array.
	ErrOutOfBounds = point5d.ErrOutOfBounds

	// ErrInvalidAxis is returned for axis keys outside "tcxyz".
	ErrInvalidAxis = point5d.ErrInvalidAxis
)
