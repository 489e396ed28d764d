package lattice

import (
	"math"

	"go.viam.com/latticeplan/grid"
)

// Heuristic estimates cost-to-go between lattice vertices. Implementations
// may query vertex data back from the lattice; the lattice never calls a
// heuristic during construction or teardown.
type Heuristic interface {
	// GetGoalHeuristic estimates the cost from a vertex to the goal.
	GetGoalHeuristic(stateID int) float64

	// GetStartHeuristic estimates the cost from the start to a vertex.
	GetStartHeuristic(stateID int) float64

	// GetFromToHeuristic estimates the cost between two vertices.
	GetFromToHeuristic(fromID, toID int) float64

	// MetricGoalDistance returns the metric distance in meters from a world
	// position to the goal.
	MetricGoalDistance(x, y, z float64) float64

	// MetricStartDistance returns the metric distance in meters from a world
	// position to the start.
	MetricStartDistance(x, y, z float64) float64
}

// Observer is notified when the lattice start or goal bindings change.
type Observer interface {
	StartChanged(stateID int)
	GoalChanged(goal GoalConstraint)
}

// AddHeuristic appends a heuristic to the registry. Index 0 is privileged:
// the lattice's own heuristic queries delegate to it. A heuristic that also
// implements Observer is registered for start/goal notifications.
func (l *Lattice) AddHeuristic(h Heuristic) {
	l.heuristics = append(l.heuristics, h)
	if obs, ok := h.(Observer); ok {
		l.AddObserver(obs)
	}
}

// NumHeuristics returns the number of registered heuristics.
func (l *Lattice) NumHeuristics() int {
	return len(l.heuristics)
}

// Heuristic returns the heuristic at the given registry index.
func (l *Lattice) Heuristic(i int) Heuristic {
	return l.heuristics[i]
}

// AddObserver registers for start/goal change notifications.
func (l *Lattice) AddObserver(obs Observer) {
	l.observers = append(l.observers, obs)
}

// EuclideanHeuristic estimates cost-to-go by straight-line distance between
// end-effector cells, scaled to edge-cost units.
type EuclideanHeuristic struct {
	lattice     *Lattice
	grid        grid.Grid
	costPerCell float64
	goalCell    [3]int
	startCell   [3]int
}

// NewEuclideanHeuristic creates a euclidean end-effector heuristic over the
// given grid, charging the lattice's cost multiplier per cell.
func NewEuclideanHeuristic(l *Lattice, g grid.Grid) *EuclideanHeuristic {
	return &EuclideanHeuristic{
		lattice:     l,
		grid:        g,
		costPerCell: float64(l.params.CostMultiplier),
	}
}

// StartChanged caches the end-effector cell of the new start vertex.
func (h *EuclideanHeuristic) StartChanged(stateID int) {
	if info, err := h.lattice.State(stateID); err == nil {
		h.startCell = info.EECell
	}
}

// GoalChanged caches the cell of the new goal position.
func (h *EuclideanHeuristic) GoalChanged(goal GoalConstraint) {
	h.goalCell = h.lattice.GoalCell()
}

func cellDistance(a, b [3]int) float64 {
	dx := float64(a[0] - b[0])
	dy := float64(a[1] - b[1])
	dz := float64(a[2] - b[2])
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// GetGoalHeuristic estimates the cost from a vertex to the goal.
func (h *EuclideanHeuristic) GetGoalHeuristic(stateID int) float64 {
	if stateID == h.lattice.GoalID() {
		return 0
	}
	info, err := h.lattice.State(stateID)
	if err != nil {
		return 0
	}
	return cellDistance(info.EECell, h.goalCell) * h.costPerCell
}

// GetStartHeuristic estimates the cost from the start to a vertex.
func (h *EuclideanHeuristic) GetStartHeuristic(stateID int) float64 {
	info, err := h.lattice.State(stateID)
	if err != nil {
		return 0
	}
	return cellDistance(info.EECell, h.startCell) * h.costPerCell
}

// GetFromToHeuristic estimates the cost between two vertices.
func (h *EuclideanHeuristic) GetFromToHeuristic(fromID, toID int) float64 {
	from, err := h.lattice.State(fromID)
	if err != nil {
		return 0
	}
	to, err := h.lattice.State(toID)
	if err != nil {
		return 0
	}
	return cellDistance(from.EECell, to.EECell) * h.costPerCell
}

// MetricGoalDistance returns the distance in meters between the center of
// the cell containing a world position and the goal cell center.
func (h *EuclideanHeuristic) MetricGoalDistance(x, y, z float64) float64 {
	return h.metricDistance(x, y, z, h.goalCell)
}

// MetricStartDistance returns the distance in meters between the center of
// the cell containing a world position and the start cell center.
func (h *EuclideanHeuristic) MetricStartDistance(x, y, z float64) float64 {
	return h.metricDistance(x, y, z, h.startCell)
}

func (h *EuclideanHeuristic) metricDistance(x, y, z float64, cell [3]int) float64 {
	res := h.grid.Resolution()
	ix, iy, iz := h.grid.WorldToGrid(x, y, z)
	dx := float64(ix-cell[0]) * res
	dy := float64(iy-cell[1]) * res
	dz := float64(iz-cell[2]) * res
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
