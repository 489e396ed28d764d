// Package collision defines the validity-checking contract consumed by the
// planning graph, plus simple checkers for experiments and tests.
package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/latticeplan/referenceframe"
)

// Checker validates configurations and swept joint-space segments against a
// collision model. Distances are clearance to the nearest obstacle in meters
// and are best-effort.
type Checker interface {
	// StateValid reports whether a configuration is collision free, along
	// with the obstacle clearance at that configuration.
	StateValid(angles []float64) (bool, float64)

	// StateToStateValid reports whether the swept segment between two
	// configurations is collision free, along with the number of interpolation
	// steps on the segment, the number of checks performed, and the minimum
	// clearance observed.
	StateToStateValid(from, to []float64) (bool, int, int, float64)
}

// PermissiveChecker accepts every configuration. It reports infinite
// clearance and performs no interpolation.
type PermissiveChecker struct{}

// NewPermissiveChecker returns a checker that accepts everything.
func NewPermissiveChecker() *PermissiveChecker {
	return &PermissiveChecker{}
}

// StateValid always reports valid.
func (c *PermissiveChecker) StateValid(angles []float64) (bool, float64) {
	return true, math.Inf(1)
}

// StateToStateValid always reports valid.
func (c *PermissiveChecker) StateToStateValid(from, to []float64) (bool, int, int, float64) {
	return true, 0, 0, math.Inf(1)
}

// Sphere is a spherical obstacle in the world frame.
type Sphere struct {
	Center r3.Vector
	Radius float64
}

// SphereChecker validates a SimpleModel against spherical obstacles by
// checking each link endpoint, interpolating swept segments in joint space at
// a fixed resolution.
type SphereChecker struct {
	model      *referenceframe.SimpleModel
	obstacles  []Sphere
	resolution float64
}

// NewSphereChecker creates a checker over the given model and obstacles.
// Swept segments are interpolated so no joint moves more than resolution
// radians between consecutive checks.
func NewSphereChecker(model *referenceframe.SimpleModel, obstacles []Sphere, resolution float64) *SphereChecker {
	if resolution <= 0 {
		resolution = 0.05
	}
	return &SphereChecker{model: model, obstacles: obstacles, resolution: resolution}
}

// StateValid reports whether no link endpoint intersects an obstacle, along
// with the minimum clearance across endpoints.
func (c *SphereChecker) StateValid(angles []float64) (bool, float64) {
	positions, err := c.model.LinkPositions(angles)
	if err != nil {
		return false, 0
	}
	clearance := math.Inf(1)
	for _, pt := range positions {
		for _, obs := range c.obstacles {
			d := pt.Sub(obs.Center).Norm() - obs.Radius
			if d < clearance {
				clearance = d
			}
			if d < 0 {
				return false, clearance
			}
		}
	}
	return true, clearance
}

// StateToStateValid interpolates the segment in joint space and checks every
// intermediate configuration.
func (c *SphereChecker) StateToStateValid(from, to []float64) (bool, int, int, float64) {
	maxDiff := 0.0
	for i := range from {
		if d := math.Abs(to[i] - from[i]); d > maxDiff {
			maxDiff = d
		}
	}
	steps := int(math.Ceil(maxDiff/c.resolution)) + 1

	clearance := math.Inf(1)
	checks := 0
	waypoint := make([]float64, len(from))
	for s := 0; s <= steps; s++ {
		frac := float64(s) / float64(steps)
		for i := range from {
			waypoint[i] = from[i] + (to[i]-from[i])*frac
		}
		ok, d := c.StateValid(waypoint)
		checks++
		if d < clearance {
			clearance = d
		}
		if !ok {
			return false, steps, checks, clearance
		}
	}
	return true, steps, checks, clearance
}
