package lattice

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/latticeplan/spatialmath"
)

// GoalType tags the variant of a goal constraint.
type GoalType int

// The supported goal variants.
const (
	// GoalTypeJointState accepts configurations within per-joint tolerances
	// of a target configuration.
	GoalTypeJointState GoalType = iota
	// GoalTypeXYZ accepts configurations whose tip position lies in a box
	// around a target position.
	GoalTypeXYZ
	// GoalTypeXYZRPY additionally constrains the tip orientation.
	GoalTypeXYZRPY
)

// GoalConstraint specifies the active goal region.
type GoalConstraint struct {
	Type GoalType

	// Joint-space target and per-joint tolerances, for GoalTypeJointState.
	Angles          []float64
	AngleTolerances []float64

	// 6-DoF pose target and box tolerances, for the cartesian variants.
	Pose         spatialmath.Pose
	XYZTolerance [3]float64
	// Only RPYTolerance[0] is consulted: orientation acceptance uses a single
	// scalar angular distance.
	RPYTolerance [3]float64

	// XYZOffset is a tip offset expressed in the end-effector frame; goal
	// criteria are evaluated at the offset point.
	XYZOffset r3.Vector
}

func (gc *GoalConstraint) validate(numJoints int) error {
	switch gc.Type {
	case GoalTypeJointState:
		if len(gc.Angles) != numJoints {
			return errors.Errorf("joint goal needs %d angles, got %d", numJoints, len(gc.Angles))
		}
		if len(gc.AngleTolerances) != numJoints {
			return errors.Errorf("joint goal needs %d tolerances, got %d", numJoints, len(gc.AngleTolerances))
		}
	case GoalTypeXYZ, GoalTypeXYZRPY:
		if gc.Pose.Orientation == nil {
			return errors.New("cartesian goal needs an orientation")
		}
	default:
		return errors.Errorf("unknown goal type %d", gc.Type)
	}
	return nil
}

// isGoal evaluates goal region membership for a configuration and its
// tip-offset planning link pose.
func (l *Lattice) isGoal(angles []float64, pose spatialmath.Pose) bool {
	if !l.goalSet {
		return false
	}
	switch l.goal.Type {
	case GoalTypeJointState:
		for i := range l.goal.Angles {
			if math.Abs(angles[i]-l.goal.Angles[i]) > l.goal.AngleTolerances[i] {
				return false
			}
		}
		return true
	case GoalTypeXYZ, GoalTypeXYZRPY:
		dx := math.Abs(pose.Point.X - l.tgtOffPose.Point.X)
		dy := math.Abs(pose.Point.Y - l.tgtOffPose.Point.Y)
		dz := math.Abs(pose.Point.Z - l.tgtOffPose.Point.Z)
		if dx > l.goal.XYZTolerance[0] || dy > l.goal.XYZTolerance[1] || dz > l.goal.XYZTolerance[2] {
			return false
		}
		l.markNearGoal(pose)
		if l.goal.Type == GoalTypeXYZ {
			return true
		}
		theta := spatialmath.OrientationDistance(pose.Orientation, l.tgtOffPose.Orientation)
		return theta <= l.goal.RPYTolerance[0]
	default:
		l.graphLogger.Error("unknown goal type")
		return false
	}
}

// markNearGoal records the elapsed time when the search first reaches the
// positional goal box.
func (l *Lattice) markNearGoal(pose spatialmath.Pose) {
	if l.nearGoal {
		return
	}
	l.nearGoal = true
	l.expandsLogger.Infof(
		"search is at (%0.2f %0.2f %0.2f), within %0.3fm of the goal (%0.2f %0.2f %0.2f) after %0.4f sec (%d expansions)",
		pose.Point.X, pose.Point.Y, pose.Point.Z,
		l.goal.XYZTolerance[0],
		l.tgtOffPose.Point.X, l.tgtOffPose.Point.Y, l.tgtOffPose.Point.Z,
		l.clk.Since(l.goalSetTime).Seconds(),
		len(l.expanded),
	)
}
