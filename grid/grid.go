// Package grid provides the occupancy grid the planning graph discretizes
// end-effector positions against.
package grid

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Grid is the discretization contract consumed by the planning graph.
type Grid interface {
	// WorldToGrid converts a world position in meters to a grid cell.
	WorldToGrid(x, y, z float64) (int, int, int)

	// Resolution returns the edge length of a cell in meters.
	Resolution() float64

	// ReferenceFrame returns the name of the frame the grid is fixed in.
	ReferenceFrame() string
}

// OccupancyGrid is a uniform cartesian grid anchored at an origin in a named
// reference frame.
type OccupancyGrid struct {
	resolution     float64
	origin         r3.Vector
	referenceFrame string
}

// NewOccupancyGrid creates a grid with the given cell resolution in meters,
// world origin, and reference frame name.
func NewOccupancyGrid(resolution float64, origin r3.Vector, referenceFrame string) (*OccupancyGrid, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("grid resolution must be positive, got %f", resolution)
	}
	return &OccupancyGrid{resolution: resolution, origin: origin, referenceFrame: referenceFrame}, nil
}

// WorldToGrid converts a world position in meters to a grid cell.
func (g *OccupancyGrid) WorldToGrid(x, y, z float64) (int, int, int) {
	return int(math.Floor((x - g.origin.X) / g.resolution)),
		int(math.Floor((y - g.origin.Y) / g.resolution)),
		int(math.Floor((z - g.origin.Z) / g.resolution))
}

// GridToWorld returns the world position of the center of the given cell.
func (g *OccupancyGrid) GridToWorld(ix, iy, iz int) (float64, float64, float64) {
	return g.origin.X + (float64(ix)+0.5)*g.resolution,
		g.origin.Y + (float64(iy)+0.5)*g.resolution,
		g.origin.Z + (float64(iz)+0.5)*g.resolution
}

// Resolution returns the edge length of a cell in meters.
func (g *OccupancyGrid) Resolution() float64 {
	return g.resolution
}

// ReferenceFrame returns the name of the frame the grid is fixed in.
func (g *OccupancyGrid) ReferenceFrame() string {
	return g.referenceFrame
}
