package referenceframe

import (
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"go.viam.com/latticeplan/spatialmath"
	"go.viam.com/latticeplan/utils"
)

// Limit represents the limits of motion for one joint. Continuous joints are
// represented with infinite limits.
type Limit struct {
	Min float64
	Max float64
}

// Continuous reports whether the limit describes an unbounded revolute joint.
func (l Limit) Continuous() bool {
	return math.IsInf(l.Min, -1) && math.IsInf(l.Max, 1)
}

// Model is the kinematic contract the planning graph needs from a robot: its
// joint limits and the pose of the planning link under a configuration.
type Model interface {
	// Name returns the name of the model.
	Name() string

	// DoF returns a slice with length equal to the number of joints. Each
	// element describes the min and max movement limit of that joint.
	DoF() []Limit

	// CheckJointLimits returns an error describing any limit violated by the
	// given configuration.
	CheckJointLimits(angles []float64) error

	// PlanningLinkFK computes the pose of the planning link under the given
	// configuration.
	PlanningLinkFK(angles []float64) (spatialmath.Pose, error)
}

// SimpleModel is a planar serial chain of revolute joints, each rotating
// about Z with its link extending along X. It is sufficient for planning
// experiments and tests; real arms supply their own Model.
type SimpleModel struct {
	name        string
	limits      []Limit
	linkLengths []float64
}

// NewSimpleModel creates a planar serial-chain model with one link length per
// joint.
func NewSimpleModel(name string, limits []Limit, linkLengths []float64) (*SimpleModel, error) {
	if len(limits) != len(linkLengths) {
		return nil, NewIncorrectDoFError(len(linkLengths), len(limits))
	}
	return &SimpleModel{name: name, limits: limits, linkLengths: linkLengths}, nil
}

// Name returns the name of the model.
func (m *SimpleModel) Name() string {
	return m.name
}

// DoF returns the motion limits of each joint.
func (m *SimpleModel) DoF() []Limit {
	return m.limits
}

// CheckJointLimits returns an error describing every limit violated by the
// given configuration.
func (m *SimpleModel) CheckJointLimits(angles []float64) error {
	if len(angles) != len(m.limits) {
		return NewIncorrectDoFError(len(angles), len(m.limits))
	}
	var err error
	for i, a := range angles {
		lim := m.limits[i]
		if lim.Continuous() {
			continue
		}
		if a < lim.Min || a > lim.Max {
			err = multierr.Append(err, NewLimitViolationError(i, a, lim))
		}
	}
	return err
}

// PlanningLinkFK computes the pose of the final link. The position is the
// chain tip in the XY plane and the orientation yaw is the accumulated joint
// angle.
func (m *SimpleModel) PlanningLinkFK(angles []float64) (spatialmath.Pose, error) {
	if len(angles) != len(m.limits) {
		return spatialmath.Pose{}, NewIncorrectDoFError(len(angles), len(m.limits))
	}
	var pt r3.Vector
	theta := 0.0
	for i, a := range angles {
		theta += a
		pt.X += m.linkLengths[i] * math.Cos(theta)
		pt.Y += m.linkLengths[i] * math.Sin(theta)
	}
	return spatialmath.NewPose(pt, &spatialmath.EulerAngles{Yaw: utils.NormalizeAngle(theta)}), nil
}

// LinkPositions returns the world position of each link tip in order. Useful
// for collision models that approximate links by their endpoints.
func (m *SimpleModel) LinkPositions(angles []float64) ([]r3.Vector, error) {
	if len(angles) != len(m.limits) {
		return nil, NewIncorrectDoFError(len(angles), len(m.limits))
	}
	positions := make([]r3.Vector, 0, len(angles))
	var pt r3.Vector
	theta := 0.0
	for i, a := range angles {
		theta += a
		pt.X += m.linkLengths[i] * math.Cos(theta)
		pt.Y += m.linkLengths[i] * math.Sin(theta)
		positions = append(positions, pt)
	}
	return positions, nil
}
