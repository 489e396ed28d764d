package referenceframe

import "github.com/pkg/errors"

// NewIncorrectDoFError returns an error indicating that a configuration has
// the wrong number of joints for the model.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("expected %d joints but got %d", expected, actual)
}

// NewLimitViolationError returns an error indicating that a joint value is
// outside its motion limits.
func NewLimitViolationError(joint int, value float64, limit Limit) error {
	return errors.Errorf("joint %d value %.4f out of limits [%.4f, %.4f]", joint, value, limit.Min, limit.Max)
}
