package lattice

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/latticeplan/grid"
	"go.viam.com/latticeplan/referenceframe"
	"go.viam.com/latticeplan/spatialmath"
)

// fakeModel is a configurable robot model whose FK maps the first joints
// directly onto cartesian axes unless overridden.
type fakeModel struct {
	limits []referenceframe.Limit
	fk     func(angles []float64) (spatialmath.Pose, error)
}

func (m *fakeModel) Name() string {
	return "fake"
}

func (m *fakeModel) DoF() []referenceframe.Limit {
	return m.limits
}

func (m *fakeModel) CheckJointLimits(angles []float64) error {
	if len(angles) != len(m.limits) {
		return referenceframe.NewIncorrectDoFError(len(angles), len(m.limits))
	}
	var err error
	for i, a := range angles {
		lim := m.limits[i]
		if lim.Continuous() {
			continue
		}
		if a < lim.Min || a > lim.Max {
			err = multierr.Append(err, referenceframe.NewLimitViolationError(i, a, lim))
		}
	}
	return err
}

func (m *fakeModel) PlanningLinkFK(angles []float64) (spatialmath.Pose, error) {
	if m.fk != nil {
		return m.fk(angles)
	}
	pt := r3.Vector{X: angles[0]}
	if len(angles) > 1 {
		pt.Y = angles[1]
	}
	return spatialmath.NewPoseFromPoint(pt), nil
}

// fakeChecker accepts everything unless a reject function is installed.
type fakeChecker struct {
	rejectState   func(angles []float64) bool
	rejectSegment func(from, to []float64) bool
}

func (c *fakeChecker) StateValid(angles []float64) (bool, float64) {
	if c.rejectState != nil && c.rejectState(angles) {
		return false, 0
	}
	return true, math.Inf(1)
}

func (c *fakeChecker) StateToStateValid(from, to []float64) (bool, int, int, float64) {
	if c.rejectSegment != nil && c.rejectSegment(from, to) {
		return false, 1, 1, 0
	}
	return true, 1, 1, math.Inf(1)
}

// scriptedActions returns the same action list at every configuration.
type scriptedActions struct {
	actions []Action
	err     error
}

func (s *scriptedActions) Actions(angles []float64) ([]Action, error) {
	return s.actions, s.err
}

// constHeuristic returns a fixed value for every query.
type constHeuristic struct {
	value float64
}

func (h *constHeuristic) GetGoalHeuristic(stateID int) float64        { return h.value }
func (h *constHeuristic) GetStartHeuristic(stateID int) float64       { return h.value }
func (h *constHeuristic) GetFromToHeuristic(fromID, toID int) float64 { return h.value }
func (h *constHeuristic) MetricGoalDistance(x, y, z float64) float64  { return h.value }
func (h *constHeuristic) MetricStartDistance(x, y, z float64) float64 { return h.value }

func testGrid(t *testing.T) grid.Grid {
	t.Helper()
	g, err := grid.NewOccupancyGrid(0.1, r3.Vector{X: -10, Y: -10, Z: -10}, "world")
	test.That(t, err, test.ShouldBeNil)
	return g
}

// twoJointLattice builds the two-joint identity lattice: both joints limited
// to [0, 1] with unit bins, FK mapping joints onto x and y.
func twoJointLattice(t *testing.T, checker *fakeChecker, actions ActionSource) *Lattice {
	t.Helper()
	model := &fakeModel{limits: []referenceframe.Limit{{Min: 0, Max: 1}, {Min: 0, Max: 1}}}
	params := NewBasicPlanningParams(2, []float64{1.0, 1.0})
	l, err := NewLattice(model, checker, testGrid(t), actions, params, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return l
}

func xyzGoal(point r3.Vector, tol float64) GoalConstraint {
	return GoalConstraint{
		Type:         GoalTypeXYZ,
		Pose:         spatialmath.NewPoseFromPoint(point),
		XYZTolerance: [3]float64{tol, tol, tol},
	}
}

func TestSingleStepToGoal(t *testing.T) {
	// one primitive from the start lands exactly on the goal tip position
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)

	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 1}, 0)), test.ShouldBeNil)

	succs, costs, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldResemble, []int{l.GoalID()})
	test.That(t, costs, test.ShouldResemble, []float64{float64(l.params.CostMultiplier)})

	path, err := l.ExtractPath([]int{l.StartID(), l.GoalID()})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldResemble, [][]float64{{0, 0}, {1, 0}})
}

func TestGoalAbsorption(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 1}, 0)), test.ShouldBeNil)

	succs, costs, err := l.GetSuccs(l.GoalID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldBeEmpty)
	test.That(t, costs, test.ShouldBeEmpty)

	lazySuccs, _, _, err := l.GetLazySuccs(l.GoalID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lazySuccs, test.ShouldBeEmpty)
}

func TestAbsorbingGoalDedup(t *testing.T) {
	// two distinct primitives land on distinct coords, both inside the goal box
	actions := &scriptedActions{actions: []Action{{{1, 0}}, {{1, 1}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)

	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 1, Y: 0.5}, 0.5)), test.ShouldBeNil)

	succs, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldResemble, []int{l.GoalID(), l.GoalID()})

	// goal sink + start + two interned goal-region vertices
	test.That(t, l.NumStates(), test.ShouldEqual, 4)
}

func TestCollisionInvalidatesAction(t *testing.T) {
	// second waypoint pair of the only primitive is in collision
	actions := &scriptedActions{actions: []Action{{{0.5, 0}, {1, 0}}}}
	checker := &fakeChecker{rejectSegment: func(from, to []float64) bool {
		return from[0] == 0.5 && to[0] == 1
	}}
	l := twoJointLattice(t, checker, actions)

	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	// goal far from every successor so the lazy edge is a regular vertex
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)

	succs, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldBeEmpty)

	lazySuccs, lazyCosts, trueFlags, err := l.GetLazySuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(lazySuccs), test.ShouldEqual, 1)
	test.That(t, lazyCosts[0], test.ShouldAlmostEqual, float64(l.params.CostMultiplier))
	test.That(t, trueFlags, test.ShouldResemble, []bool{false})

	cost, err := l.GetTrueCost(l.StartID(), lazySuccs[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cost, test.ShouldEqual, -1)
}

func TestLazyTrueConsistency(t *testing.T) {
	// with a permissive checker, eager and lazy expansions agree and
	// GetTrueCost confirms each lazy edge at the same cost
	actions := &scriptedActions{actions: []Action{{{1, 0}}, {{0, 1}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)

	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)

	succs, costs, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	lazySuccs, lazyCosts, _, err := l.GetLazySuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lazySuccs, test.ShouldResemble, succs)
	test.That(t, lazyCosts, test.ShouldResemble, costs)

	for i, succ := range lazySuccs {
		trueCost, err := l.GetTrueCost(l.StartID(), succ)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, trueCost, test.ShouldAlmostEqual, lazyCosts[i])
	}
}

func TestExpansionLogging(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)

	_, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	_, _, _, err = l.GetLazySuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	_, _, err = l.GetSuccs(l.GoalID())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, l.ExpandedIDs(), test.ShouldResemble, []int{l.StartID(), l.StartID(), l.GoalID()})

	// the goal has no recoverable configuration; everything else does
	states := l.ExpandedStates()
	test.That(t, len(states), test.ShouldEqual, 2)
	test.That(t, len(states[0]), test.ShouldEqual, 7)
	test.That(t, states[0][0], test.ShouldAlmostEqual, 0)
}

func TestHeuristicDelegation(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)

	// with no registered heuristics every query returns 0 and caches 0
	h, err := l.GetGoalHeuristic(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldEqual, 0)
	h, err = l.GetStartHeuristic(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldEqual, 0)
	h, err = l.GetFromToHeuristic(l.StartID(), l.GoalID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldEqual, 0)
	test.That(t, l.StartDistance(0, 0, 0), test.ShouldEqual, 0)
	test.That(t, l.GoalDistance(0, 0, 0), test.ShouldEqual, 0)

	// index 0 is privileged and its value is returned, not dropped
	l.AddHeuristic(&constHeuristic{value: 42})
	l.AddHeuristic(&constHeuristic{value: 7})
	test.That(t, l.NumHeuristics(), test.ShouldEqual, 2)
	h, err = l.GetGoalHeuristic(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldEqual, 42)

	info, err := l.State(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.ID, test.ShouldEqual, l.StartID())

	// the cache holds the last observed value
	entry, err := l.table.byID(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entry.heur, test.ShouldEqual, 42)
}

func TestExtractGoalOnlyPath(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)

	path, err := l.ExtractPath([]int{l.GoalID()})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldResemble, [][]float64{{0, 0}})
}

func TestExtractPathErrors(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 1}, 0)), test.ShouldBeNil)
	_, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)

	// a non-terminal goal id has no successor
	_, err = l.ExtractPath([]int{l.GoalID(), l.StartID()})
	test.That(t, err, test.ShouldNotBeNil)

	// a goal edge that cannot be revalidated fails reconstruction
	actions.actions = []Action{{{0, 1}}}
	_, err = l.ExtractPath([]int{l.StartID(), l.GoalID()})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOrientationTolerance(t *testing.T) {
	// FK pins the tip at the origin with roll equal to joint 0
	model := &fakeModel{
		limits: []referenceframe.Limit{{Min: -1, Max: 1}},
		fk: func(angles []float64) (spatialmath.Pose, error) {
			return spatialmath.NewPose(r3.Vector{}, &spatialmath.EulerAngles{Roll: angles[0]}), nil
		},
	}
	params := NewBasicPlanningParams(1, []float64{0.01})
	l, err := NewLattice(model, &fakeChecker{}, testGrid(t), &scriptedActions{}, params, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	goal := GoalConstraint{
		Type:         GoalTypeXYZRPY,
		Pose:         spatialmath.NewZeroPose(),
		XYZTolerance: [3]float64{0.1, 0.1, 0.1},
		RPYTolerance: [3]float64{0.1, 0, 0},
	}
	test.That(t, l.SetGoal(goal), test.ShouldBeNil)

	pose, err := l.computePlanningFrameFK([]float64{0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.isGoal([]float64{0.05}, pose), test.ShouldBeTrue)

	pose, err = l.computePlanningFrameFK([]float64{0.2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.isGoal([]float64{0.2}, pose), test.ShouldBeFalse)
}

func TestJointStateGoal(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)

	goal := GoalConstraint{
		Type:            GoalTypeJointState,
		Angles:          []float64{1, 0},
		AngleTolerances: []float64{0.01, 0.01},
	}
	test.That(t, l.SetGoal(goal), test.ShouldBeNil)
	test.That(t, l.GoalConstraints().Type, test.ShouldEqual, GoalTypeJointState)
	test.That(t, l.GoalConfiguration(), test.ShouldResemble, []float64{1, 0})

	succs, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldResemble, []int{l.GoalID()})

	path, err := l.ExtractPath([]int{l.StartID(), l.GoalID()})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldResemble, [][]float64{{0, 0}, {1, 0}})
}

func TestTipOffsetGoal(t *testing.T) {
	// the goal is expressed 0.25 beyond the tip along x
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)

	goal := xyzGoal(r3.Vector{X: 1}, 0.01)
	goal.XYZOffset = r3.Vector{X: 0.25}
	test.That(t, l.SetGoal(goal), test.ShouldBeNil)

	// the target-offset pose leads the planning link by the offset
	test.That(t, l.TargetOffsetPose(spatialmath.NewPoseFromPoint(r3.Vector{X: 1})).Point.X, test.ShouldAlmostEqual, 1.25)

	// the offset shifts the goal criterion and the successor tip alike, so
	// the planning-link goal configuration is unchanged
	succs, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldResemble, []int{l.GoalID()})
}

func TestSetStartValidation(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}

	// out of limits
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{2, 0}), test.ShouldNotBeNil)

	// in collision
	checker := &fakeChecker{rejectState: func(angles []float64) bool { return true }}
	l = twoJointLattice(t, checker, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldNotBeNil)

	// wrong dimension
	l = twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0}), test.ShouldNotBeNil)
	test.That(t, l.StartID(), test.ShouldEqual, -1)

	// valid start binds the vertex and is re-bindable
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	firstID := l.StartID()
	test.That(t, l.SetStart([]float64{1, 1}), test.ShouldBeNil)
	test.That(t, l.StartID(), test.ShouldNotEqual, firstID)
	test.That(t, l.StartConfiguration(), test.ShouldResemble, []float64{1, 1})
}

func TestGetPredsUnsupported(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	_, _, err := l.GetPreds(0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInvalidStateIDs(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)

	_, _, err := l.GetSuccs(99)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = l.GetGoalHeuristic(-1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = l.GetTrueCost(0, 99)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = l.StateIDToAngles(99)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestActionSourceFailure(t *testing.T) {
	actions := &scriptedActions{err: errInCollision}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)

	// the expansion is a dead end, not an error
	succs, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, succs, test.ShouldBeEmpty)
}

func TestClear(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)
	_, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.NumStates(), test.ShouldBeGreaterThan, 1)

	l.Clear()
	test.That(t, l.NumStates(), test.ShouldEqual, 1)
	test.That(t, l.StartID(), test.ShouldEqual, -1)
	test.That(t, l.ExpandedIDs(), test.ShouldBeEmpty)
}

func TestHashBijection(t *testing.T) {
	// every interned coordinate maps to a unique stable id and back
	actions := &scriptedActions{actions: []Action{{{1, 0}}, {{0, 1}}, {{1, 1}}}}
	l := twoJointLattice(t, &fakeChecker{}, actions)
	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)
	_, _, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)

	for id := 1; id < l.NumStates(); id++ {
		info, err := l.State(id)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, l.table.lookup(info.Coord).id, test.ShouldEqual, id)
	}
}

func TestPrimitiveAwareCost(t *testing.T) {
	actions := &scriptedActions{actions: []Action{{{1, 0}}}}
	model := &fakeModel{limits: []referenceframe.Limit{{Min: 0, Max: 1}, {Min: 0, Max: 1}}}
	params := NewBasicPlanningParams(2, []float64{1.0, 1.0})
	params.UsePrimitiveCost = true
	params.MaxMprimOffset = 0.4
	l, err := NewLattice(model, &fakeChecker{}, testGrid(t), actions, params, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, l.SetStart([]float64{0, 0}), test.ShouldBeNil)
	test.That(t, l.SetGoal(xyzGoal(r3.Vector{X: 5}, 0.01)), test.ShouldBeNil)

	// displacement 1.0 at offset 0.4 charges ceil(2.5) = 3 primitives
	_, costs, err := l.GetSuccs(l.StartID())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, costs, test.ShouldResemble, []float64{3 * float64(l.params.CostMultiplier)})
}
