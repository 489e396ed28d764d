package lattice

import "github.com/pkg/errors"

var (
	errInCollision     = errors.New("state is in collision")
	errUnknownGoalType = errors.New("unknown goal type")
	errGoalStateAngles = errors.New("the goal state has no canonical configuration")
)

// NewInvalidStateIDError returns an error indicating a state id outside the
// range of allocated vertices. Receiving one is a programming error in the
// caller.
func NewInvalidStateIDError(stateID int) error {
	return errors.Errorf("state id %d out of range", stateID)
}

// NewBackwardSearchUnsupportedError returns an error indicating that the
// lattice cannot enumerate predecessors.
func NewBackwardSearchUnsupportedError() error {
	return errors.New("predecessor queries are not supported by the lattice")
}

// NewKinematicsUnavailableError wraps a forward kinematics failure from the
// robot model.
func NewKinematicsUnavailableError(err error) error {
	return errors.Wrap(err, "kinematics unavailable")
}

// NewActionSourceUnavailableError wraps a failure of the action source to
// produce a primitive list.
func NewActionSourceUnavailableError(err error) error {
	return errors.Wrap(err, "action source unavailable")
}

// NewGoalHasNoSuccessorError returns an error indicating that an id path
// contains the goal state in a non-terminal position.
func NewGoalHasNoSuccessorError() error {
	return errors.New("cannot determine goal state successor during path extraction")
}

// NewPathReconstructionFailedError returns an error indicating that no valid
// action connects a path predecessor to the goal region.
func NewPathReconstructionFailedError() error {
	return errors.New("failed to find valid goal successor during path extraction")
}

// NewInvalidConfigurationError wraps a start or goal configuration rejection.
func NewInvalidConfigurationError(role string, err error) error {
	return errors.Wrapf(err, "invalid %s configuration", role)
}
