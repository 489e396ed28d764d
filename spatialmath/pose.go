package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/latticeplan/utils"
)

// Pose is the position and orientation of a frame of reference in 3D
// Euclidean space. Positions are in meters, orientations in radians.
type Pose struct {
	Point       r3.Vector
	Orientation *EulerAngles
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return Pose{Orientation: NewEulerAngles()}
}

// NewPose returns a pose from a point and an orientation.
func NewPose(point r3.Vector, o *EulerAngles) Pose {
	return Pose{Point: point, Orientation: o}
}

// NewPoseFromPoint returns a pose at the given point with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{Point: point, Orientation: NewEulerAngles()}
}

// TransformPoint rotates the given point by the pose orientation and offsets
// it by the pose position, yielding the point expressed in the pose's parent
// frame.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return rotateVectorByQuaternion(p.Orientation.Quaternion(), pt).Add(p.Point)
}

// AlmostCoincident compares the translation and orientation of two poses
// within a small epsilon.
func AlmostCoincident(a, b Pose) bool {
	const epsilon = 1e-8
	return utils.Float64AlmostEqual(a.Point.X, b.Point.X, epsilon) &&
		utils.Float64AlmostEqual(a.Point.Y, b.Point.Y, epsilon) &&
		utils.Float64AlmostEqual(a.Point.Z, b.Point.Z, epsilon) &&
		OrientationDistance(a.Orientation, b.Orientation) < epsilon
}

// OrientationDistance returns the angle of the rotation between two
// orientations, computed as normalize(2*acos(q . qg)).
func OrientationDistance(a, b *EulerAngles) float64 {
	q := a.Quaternion()
	qg := b.Quaternion()
	dot := q.Real*qg.Real + q.Imag*qg.Imag + q.Jmag*qg.Jmag + q.Kmag*qg.Kmag
	// antipodal quaternions represent the same rotation
	dot = math.Min(math.Abs(dot), 1.0)
	return math.Abs(utils.NormalizeAngle(2 * math.Acos(dot)))
}

// rotateVectorByQuaternion computes q * v * q^-1 treating v as a pure
// quaternion.
func rotateVectorByQuaternion(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}
