package lattice

import (
	"math"

	"go.viam.com/latticeplan/referenceframe"
	"go.viam.com/latticeplan/utils"
)

// discretizer maps between continuous joint vectors and integer bin
// coordinates. Continuous joints bin a normalized angle on a ring; limited
// joints bin the offset from their minimum limit. Angles are counterclockwise
// from 0 to 2pi in radians and 0 is the center of bin 0.
type discretizer struct {
	delta      []float64
	binsPerRev []int
	continuous []bool
	minLimits  []float64
}

func newDiscretizer(params *PlanningParams, dof []referenceframe.Limit) *discretizer {
	d := &discretizer{
		delta:      params.CoordDelta,
		binsPerRev: make([]int, params.NumJoints),
		continuous: make([]bool, params.NumJoints),
		minLimits:  make([]float64, params.NumJoints),
	}
	for i, lim := range dof {
		d.continuous[i] = lim.Continuous()
		if !d.continuous[i] {
			d.minLimits[i] = lim.Min
		}
		if len(params.CoordVals) == params.NumJoints {
			d.binsPerRev[i] = params.CoordVals[i]
		} else {
			d.binsPerRev[i] = int(math.Round(2 * math.Pi / d.delta[i]))
		}
	}
	return d
}

func (d *discretizer) numJoints() int {
	return len(d.delta)
}

// anglesToCoord projects a joint vector to the nearest bin center of each
// joint.
func (d *discretizer) anglesToCoord(angles []float64) []int {
	coord := make([]int, len(angles))
	for i, a := range angles {
		if d.continuous[i] {
			pos := utils.NormalizeAnglePositive(a)
			coord[i] = int(math.Floor((pos + d.delta[i]*0.5) / d.delta[i]))
			// the top bin is the same as bin 0, closing the ring
			if coord[i] == d.binsPerRev[i] {
				coord[i] = 0
			}
		} else {
			coord[i] = int(math.Floor((a-d.minLimits[i])/d.delta[i] + 0.5))
		}
	}
	return coord
}

// coordToAngles returns the bin-center representative of a coordinate.
func (d *discretizer) coordToAngles(coord []int) []float64 {
	angles := make([]float64, len(coord))
	for i, c := range coord {
		if d.continuous[i] {
			angles[i] = float64(c) * d.delta[i]
		} else {
			angles[i] = d.minLimits[i] + float64(c)*d.delta[i]
		}
	}
	return angles
}
