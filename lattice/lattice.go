// Package lattice implements the search graph of a lattice-based arm motion
// planner: a discrete graph over joint-angle space whose edges are motion
// primitives, consumed by a heuristic best-first search.
package lattice

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"

	"go.viam.com/latticeplan/collision"
	"go.viam.com/latticeplan/grid"
	"go.viam.com/latticeplan/referenceframe"
	"go.viam.com/latticeplan/spatialmath"
	"go.viam.com/latticeplan/utils"
)

// Lattice is the planning graph. It owns the vertex table and all per-query
// mutable state; the robot model, collision checker, grid, action source, and
// heuristics are non-owning references. All methods must be called from a
// single goroutine.
type Lattice struct {
	graphLogger   golog.Logger
	expandsLogger golog.Logger

	params  *PlanningParams
	model   referenceframe.Model
	checker collision.Checker
	grid    grid.Grid
	actions ActionSource

	disc  *discretizer
	table *stateTable

	heuristics []Heuristic
	observers  []Observer

	goal        GoalConstraint
	tgtOffPose  spatialmath.Pose
	goalCell    [3]int
	goalSet     bool
	nearGoal    bool
	goalSetTime time.Time
	clk         clock.Clock

	goalState  *latticeState
	startState *latticeState

	expanded []int
}

// NewLattice creates a lattice over the given collaborators. The reserved
// goal vertex is allocated immediately with id 0; it is kept out of the
// coordinate index so that no real configuration can collide with it.
func NewLattice(
	model referenceframe.Model,
	checker collision.Checker,
	g grid.Grid,
	actions ActionSource,
	params *PlanningParams,
	logger golog.Logger,
) (*Lattice, error) {
	if err := params.Validate(len(model.DoF())); err != nil {
		return nil, err
	}
	l := &Lattice{
		graphLogger:   logger.Named(params.GraphLog),
		expandsLogger: logger.Named(params.ExpandsLog),
		params:        params,
		model:         model,
		checker:       checker,
		grid:          g,
		actions:       actions,
		disc:          newDiscretizer(params, model.DoF()),
		table:         newStateTable(),
		clk:           clock.New(),
	}
	l.goalState = l.table.create(nil, nil, 0, [3]int{}, false)
	l.graphLogger.Debugf("goal state has state id %d", l.goalState.id)
	return l, nil
}

// GoalID returns the id of the reserved absorbing goal vertex.
func (l *Lattice) GoalID() int {
	return l.goalState.id
}

// StartID returns the id of the start vertex, or -1 if no start has been set.
func (l *Lattice) StartID() int {
	if l.startState == nil {
		return -1
	}
	return l.startState.id
}

// NumStates returns the number of allocated vertices.
func (l *Lattice) NumStates() int {
	return l.table.count()
}

// Clear drops every vertex, the coordinate index, and the expansion log, then
// reallocates the reserved goal vertex. Start and goal bindings are reset.
func (l *Lattice) Clear() {
	l.table = newStateTable()
	l.goalState = l.table.create(nil, nil, 0, [3]int{}, false)
	l.startState = nil
	l.expanded = nil
	l.goalSet = false
	l.nearGoal = false
}

// computePlanningFrameFK computes the pose of the planning link and offsets
// its position by the goal tip offset expressed in the end-effector frame.
// The orientation is the planning link orientation, unchanged.
func (l *Lattice) computePlanningFrameFK(angles []float64) (spatialmath.Pose, error) {
	pose, err := l.model.PlanningLinkFK(angles)
	if err != nil {
		return spatialmath.Pose{}, NewKinematicsUnavailableError(err)
	}
	return l.targetOffsetPose(pose), nil
}

// targetOffsetPose applies the goal tip offset to a planning link pose.
func (l *Lattice) targetOffsetPose(pose spatialmath.Pose) spatialmath.Pose {
	return spatialmath.Pose{
		Point:       pose.TransformPoint(l.goal.XYZOffset),
		Orientation: pose.Orientation,
	}
}

func (l *Lattice) eeCell(pose spatialmath.Pose) [3]int {
	ix, iy, iz := l.grid.WorldToGrid(pose.Point.X, pose.Point.Y, pose.Point.Z)
	return [3]int{ix, iy, iz}
}

// cost returns the edge cost between a parent and successor vertex. The
// default policy is a flat cost per edge; the primitive-aware policy charges
// proportionally to the largest angular displacement.
func (l *Lattice) cost(parent, succ *latticeState, succIsGoal bool) float64 {
	if l.params.UsePrimitiveCost {
		return l.actionCost(parent.state, succ.state)
	}
	return float64(l.params.CostMultiplier)
}

// actionCost charges ceil(maxDisplacement/maxMprimOffset) cost units, where
// the displacement is taken over the first six joints excluding the wrist
// roll at index 4.
func (l *Lattice) actionCost(from, to []float64) float64 {
	if len(from) != len(to) {
		return -1
	}
	maxDiff := 0.0
	for i := 0; i < len(from) && i < 6; i++ {
		if i == 4 {
			continue
		}
		if diff := utils.ShortestAngleDist(from[i], to[i]); diff > maxDiff {
			maxDiff = diff
		}
	}
	numPrims := math.Ceil(maxDiff / l.params.MaxMprimOffset)
	return numPrims * float64(l.params.CostMultiplier)
}

// GetSuccs generates the validated successors of a vertex. Each successor
// that satisfies the goal predicate is emitted as the reserved goal id; the
// goal vertex itself is absorbing and has no successors. An action source
// failure yields an empty successor set; an action whose kinematics fail is
// skipped.
func (l *Lattice) GetSuccs(stateID int) ([]int, []float64, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return nil, nil, err
	}
	l.expanded = append(l.expanded, stateID)

	// goal state is absorbing
	if entry == l.goalState {
		return nil, nil, nil
	}

	l.expandsLogger.Debugf("expanding state %d coord %v angles %v ee %v", stateID, entry.coord, entry.state, entry.eeCell)

	actions, err := l.actions.Actions(entry.state)
	if err != nil {
		l.expandsLogger.Warnf("failed to get actions: %v", NewActionSourceUnavailableError(err))
		return nil, nil, nil
	}

	var succs []int
	var costs []float64
	goalSuccCount := 0
	for i, action := range actions {
		if len(action) == 0 {
			continue
		}
		ok, dist := l.checkAction(entry.state, action)
		if !ok {
			continue
		}
		last := action[len(action)-1]
		pose, err := l.computePlanningFrameFK(last)
		if err != nil {
			l.expandsLogger.Warnf("failed to compute FK for planning frame: %v", err)
			continue
		}
		succCoord := l.disc.anglesToCoord(last)
		succEntry := l.table.getOrCreate(succCoord, last, dist, l.eeCell(pose))

		succIsGoal := l.isGoal(last, pose)
		if succIsGoal {
			goalSuccCount++
			succs = append(succs, l.goalState.id)
		} else {
			succs = append(succs, succEntry.id)
		}
		costs = append(costs, l.cost(entry, succEntry, succIsGoal))

		l.expandsLogger.Debugf("  succ %d: id %d coord %v cost %v", i, succEntry.id, succCoord, costs[len(costs)-1])
	}

	if goalSuccCount > 0 {
		l.expandsLogger.Debugf("got %d goal successors", goalSuccCount)
	}
	return succs, costs, nil
}

// GetLazySuccs generates successors without validating limits or collisions.
// Every emitted edge carries a false true-cost flag; the search must confirm
// it with GetTrueCost before committing to it.
func (l *Lattice) GetLazySuccs(stateID int) ([]int, []float64, []bool, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return nil, nil, nil, err
	}
	l.expanded = append(l.expanded, stateID)

	// goal state is absorbing
	if entry == l.goalState {
		return nil, nil, nil, nil
	}

	l.expandsLogger.Debugf("lazily expanding state %d coord %v", stateID, entry.coord)

	actions, err := l.actions.Actions(entry.state)
	if err != nil {
		l.expandsLogger.Warnf("failed to get actions: %v", NewActionSourceUnavailableError(err))
		return nil, nil, nil, nil
	}

	var succs []int
	var costs []float64
	var trueCosts []bool
	for _, action := range actions {
		if len(action) == 0 {
			continue
		}
		last := action[len(action)-1]
		pose, err := l.computePlanningFrameFK(last)
		if err != nil {
			l.expandsLogger.Warnf("failed to compute FK for planning frame: %v", err)
			continue
		}
		succCoord := l.disc.anglesToCoord(last)
		succEntry := l.table.getOrCreate(succCoord, last, 0, l.eeCell(pose))

		succIsGoal := l.isGoal(last, pose)
		if succIsGoal {
			succs = append(succs, l.goalState.id)
		} else {
			succs = append(succs, succEntry.id)
		}
		costs = append(costs, l.cost(entry, succEntry, succIsGoal))
		trueCosts = append(trueCosts, false)
	}
	return succs, costs, trueCosts, nil
}

// GetTrueCost validates the edge between a parent and child emitted by
// GetLazySuccs and returns the minimum surviving edge cost, or -1 if no
// action connecting them survives validation. Ties keep the first action
// found.
func (l *Lattice) GetTrueCost(parentID, childID int) (float64, error) {
	parent, err := l.table.byID(parentID)
	if err != nil {
		return -1, err
	}
	child, err := l.table.byID(childID)
	if err != nil {
		return -1, err
	}

	l.expandsLogger.Debugf("evaluating cost of transition %d -> %d", parentID, childID)

	actions, err := l.actions.Actions(parent.state)
	if err != nil {
		l.expandsLogger.Warnf("failed to get actions: %v", NewActionSourceUnavailableError(err))
		return -1, nil
	}

	goalEdge := child == l.goalState

	bestCost := math.Inf(1)
	for _, action := range actions {
		if len(action) == 0 {
			continue
		}
		last := action[len(action)-1]
		pose, err := l.computePlanningFrameFK(last)
		if err != nil {
			l.expandsLogger.Warnf("failed to compute FK for planning frame: %v", err)
			continue
		}
		succCoord := l.disc.anglesToCoord(last)

		if goalEdge {
			// skip actions which don't end up at a goal state
			if !l.isGoal(last, pose) {
				continue
			}
		} else if coordKey(succCoord) != coordKey(child.coord) {
			// skip actions which don't end up at the child state
			continue
		}

		ok, _ := l.checkAction(parent.state, action)
		if !ok {
			continue
		}

		succEntry := child
		if goalEdge {
			succEntry = l.table.lookup(succCoord)
			if succEntry == nil {
				continue
			}
		}
		if edgeCost := l.cost(parent, succEntry, goalEdge || l.isGoal(last, pose)); edgeCost < bestCost {
			bestCost = edgeCost
		}
	}

	if math.IsInf(bestCost, 1) {
		return -1, nil
	}
	return bestCost, nil
}

// GetPreds is not supported; the lattice is a forward search space.
func (l *Lattice) GetPreds(stateID int) ([]int, []float64, error) {
	return nil, nil, NewBackwardSearchUnsupportedError()
}

// GetGoalHeuristic returns heuristic 0's estimate of cost-to-goal for a
// vertex, caching it on the vertex. With no registered heuristics it is 0.
func (l *Lattice) GetGoalHeuristic(stateID int) (float64, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return 0, err
	}
	if len(l.heuristics) == 0 {
		entry.heur = 0
	} else {
		entry.heur = l.heuristics[0].GetGoalHeuristic(stateID)
	}
	return entry.heur, nil
}

// GetStartHeuristic returns heuristic 0's estimate of cost-from-start for a
// vertex, caching it on the vertex. With no registered heuristics it is 0.
func (l *Lattice) GetStartHeuristic(stateID int) (float64, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return 0, err
	}
	if len(l.heuristics) == 0 {
		entry.heur = 0
	} else {
		entry.heur = l.heuristics[0].GetStartHeuristic(stateID)
	}
	return entry.heur, nil
}

// GetFromToHeuristic returns heuristic 0's estimate of the cost between two
// vertices, or 0 with no registered heuristics.
func (l *Lattice) GetFromToHeuristic(fromID, toID int) (float64, error) {
	if _, err := l.table.byID(fromID); err != nil {
		return 0, err
	}
	if _, err := l.table.byID(toID); err != nil {
		return 0, err
	}
	if len(l.heuristics) == 0 {
		return 0, nil
	}
	return l.heuristics[0].GetFromToHeuristic(fromID, toID), nil
}

// StartDistance returns heuristic 0's metric distance from a world position
// to the start, or 0 with no registered heuristics.
func (l *Lattice) StartDistance(x, y, z float64) float64 {
	if len(l.heuristics) == 0 {
		return 0
	}
	return l.heuristics[0].MetricStartDistance(x, y, z)
}

// StartDistanceFromPose returns the metric start distance of a planning link
// pose after applying the goal tip offset.
func (l *Lattice) StartDistanceFromPose(pose spatialmath.Pose) float64 {
	off := l.targetOffsetPose(pose)
	return l.StartDistance(off.Point.X, off.Point.Y, off.Point.Z)
}

// GoalDistance returns heuristic 0's metric distance from a world position to
// the goal, or 0 with no registered heuristics.
func (l *Lattice) GoalDistance(x, y, z float64) float64 {
	if len(l.heuristics) == 0 {
		return 0
	}
	return l.heuristics[0].MetricGoalDistance(x, y, z)
}

// GoalDistanceFromPose returns the metric goal distance of a planning link
// pose after applying the goal tip offset.
func (l *Lattice) GoalDistanceFromPose(pose spatialmath.Pose) float64 {
	off := l.targetOffsetPose(pose)
	return l.GoalDistance(off.Point.X, off.Point.Y, off.Point.Z)
}

// SetStart validates a start configuration and binds the start vertex to it,
// interning the vertex if needed.
func (l *Lattice) SetStart(angles []float64) error {
	l.graphLogger.Debugf("set the start state: %v", angles)

	if len(angles) != l.params.NumJoints {
		return NewInvalidConfigurationError("start", referenceframe.NewIncorrectDoFError(len(angles), l.params.NumJoints))
	}

	pose, err := l.computePlanningFrameFK(angles)
	if err != nil {
		return NewInvalidConfigurationError("start", err)
	}
	l.graphLogger.Debugf("  planning link pose: %+v", pose)

	if err := l.model.CheckJointLimits(angles); err != nil {
		return NewInvalidConfigurationError("start", err)
	}

	ok, dist := l.checker.StateValid(angles)
	if !ok {
		l.graphLogger.Warnf("start state in collision (distance to nearest obstacle %0.3fm)", dist)
		return NewInvalidConfigurationError("start", errInCollision)
	}

	startCoord := l.disc.anglesToCoord(angles)
	l.graphLogger.Debugf("  coord: %v", startCoord)

	l.startState = l.table.getOrCreate(startCoord, angles, dist, l.eeCell(pose))

	for _, obs := range l.observers {
		obs.StartChanged(l.startState.id)
	}
	return nil
}

// SetGoal validates and installs a goal constraint, caching the tip-offset
// target pose and goal cell for the cartesian variants and resetting the
// near-goal stopwatch.
func (l *Lattice) SetGoal(goal GoalConstraint) error {
	if err := goal.validate(l.params.NumJoints); err != nil {
		return NewInvalidConfigurationError("goal", err)
	}

	switch goal.Type {
	case GoalTypeJointState:
		return l.setGoalConfiguration(goal)
	case GoalTypeXYZ, GoalTypeXYZRPY:
		return l.setGoalPosition(goal)
	default:
		return NewInvalidConfigurationError("goal", errUnknownGoalType)
	}
}

func (l *Lattice) setGoalPosition(goal GoalConstraint) error {
	l.goal = goal
	l.tgtOffPose = l.targetOffsetPose(goal.Pose)
	l.goalCell = l.eeCell(l.tgtOffPose)
	l.goalSet = true
	l.nearGoal = false
	l.goalSetTime = l.clk.Now()

	l.graphLogger.Debugf("a new goal has been set")
	l.graphLogger.Debugf("    grid (cells): %v", l.goalCell)
	l.graphLogger.Debugf("    xyz (meters): (%0.2f, %0.2f, %0.2f)", goal.Pose.Point.X, goal.Pose.Point.Y, goal.Pose.Point.Z)
	l.graphLogger.Debugf("    tol (meters): %0.3f", goal.XYZTolerance[0])
	l.graphLogger.Debugf("    rpy (radians): %+v tol %0.3f", goal.Pose.Orientation, goal.RPYTolerance[0])

	for _, obs := range l.observers {
		obs.GoalChanged(l.goal)
	}
	return nil
}

func (l *Lattice) setGoalConfiguration(goal GoalConstraint) error {
	// derive a positional goal from the configuration so that positional
	// heuristics remain informative; the joint tolerances are the real
	// acceptance criterion
	pose, err := l.model.PlanningLinkFK(goal.Angles)
	if err != nil {
		return NewInvalidConfigurationError("goal", NewKinematicsUnavailableError(err))
	}

	derived := goal
	derived.Type = GoalTypeXYZRPY
	derived.Pose = pose
	derived.XYZTolerance = [3]float64{defaultJointGoalTolerance, defaultJointGoalTolerance, defaultJointGoalTolerance}
	derived.RPYTolerance = [3]float64{defaultJointGoalTolerance, defaultJointGoalTolerance, defaultJointGoalTolerance}
	if err := l.setGoalPosition(derived); err != nil {
		return err
	}

	l.goal.Type = GoalTypeJointState
	l.goal.Angles = append([]float64(nil), goal.Angles...)
	l.goal.AngleTolerances = append([]float64(nil), goal.AngleTolerances...)

	for _, obs := range l.observers {
		obs.GoalChanged(l.goal)
	}
	return nil
}

// GoalConstraints returns the active goal constraint.
func (l *Lattice) GoalConstraints() GoalConstraint {
	return l.goal
}

// GoalPose returns the 6-DoF goal pose as last set.
func (l *Lattice) GoalPose() spatialmath.Pose {
	return l.goal.Pose
}

// TargetOffsetPose returns the given planning link pose with the goal tip
// offset applied to its position.
func (l *Lattice) TargetOffsetPose(pose spatialmath.Pose) spatialmath.Pose {
	return l.targetOffsetPose(pose)
}

// GoalCell returns the grid cell of the cached target-offset goal position.
func (l *Lattice) GoalCell() [3]int {
	return l.goalCell
}

// GoalConfiguration returns the joint configuration goal as last set, or nil
// for cartesian goals.
func (l *Lattice) GoalConfiguration() []float64 {
	return l.goal.Angles
}

// StartConfiguration returns the bound start configuration, or nil if no
// start has been set.
func (l *Lattice) StartConfiguration() []float64 {
	if l.startState == nil {
		return nil
	}
	return l.startState.state
}

// StateIDToAngles returns the witness joint angles of a vertex. The goal
// vertex has no canonical configuration and yields an error.
func (l *Lattice) StateIDToAngles(stateID int) ([]float64, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return nil, err
	}
	if entry == l.goalState {
		return nil, errGoalStateAngles
	}
	return entry.state, nil
}

// StateInfo is a read-only snapshot of a lattice vertex.
type StateInfo struct {
	ID        int
	Coord     []int
	Angles    []float64
	EECell    [3]int
	Clearance float64
}

// State returns a read-only snapshot of a vertex for introspection.
func (l *Lattice) State(stateID int) (StateInfo, error) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		return StateInfo{}, err
	}
	return StateInfo{
		ID:        entry.id,
		Coord:     entry.coord,
		Angles:    entry.state,
		EECell:    entry.eeCell,
		Clearance: entry.dist,
	}, nil
}

// ExtractPath converts an id path produced by the search into joint-angle
// waypoints. The goal id is a placeholder shared by every goal-satisfying
// vertex, so its true configuration is recovered from the cheapest valid
// goal-reaching action of its predecessor.
func (l *Lattice) ExtractPath(idPath []int) ([][]float64, error) {
	if len(idPath) == 0 {
		return nil, NewInvalidStateIDError(-1)
	}

	// handle paths of length 1
	if len(idPath) == 1 {
		stateID := idPath[0]
		if stateID == l.goalState.id {
			if l.startState == nil {
				return nil, NewPathReconstructionFailedError()
			}
			return [][]float64{l.startState.state}, nil
		}
		angles, err := l.StateIDToAngles(stateID)
		if err != nil {
			return nil, err
		}
		return [][]float64{angles}, nil
	}

	if idPath[0] == l.goalState.id {
		l.graphLogger.Error("cannot extract a non-trivial path starting from the goal state")
		return nil, NewGoalHasNoSuccessorError()
	}

	path := make([][]float64, 0, len(idPath))
	first, err := l.StateIDToAngles(idPath[0])
	if err != nil {
		return nil, err
	}
	path = append(path, first)

	for i := 1; i < len(idPath); i++ {
		prevID := idPath[i-1]
		currID := idPath[i]

		if prevID == l.goalState.id {
			l.graphLogger.Error("cannot determine goal state predecessor during path extraction")
			return nil, NewGoalHasNoSuccessorError()
		}

		if currID != l.goalState.id {
			angles, err := l.StateIDToAngles(currID)
			if err != nil {
				return nil, err
			}
			path = append(path, angles)
			continue
		}

		// the goal id is a sink; recover the terminal configuration from the
		// cheapest valid goal-reaching action at the predecessor
		prev, err := l.table.byID(prevID)
		if err != nil {
			return nil, err
		}
		actions, err := l.actions.Actions(prev.state)
		if err != nil {
			return nil, NewActionSourceUnavailableError(err)
		}

		bestCost := math.Inf(1)
		var bestAngles []float64
		for _, action := range actions {
			if len(action) == 0 {
				continue
			}
			last := action[len(action)-1]
			pose, err := l.computePlanningFrameFK(last)
			if err != nil {
				l.expandsLogger.Warnf("failed to compute FK for planning frame: %v", err)
				continue
			}
			if !l.isGoal(last, pose) {
				continue
			}
			ok, _ := l.checkAction(prev.state, action)
			if !ok {
				continue
			}
			succEntry := l.table.lookup(l.disc.anglesToCoord(last))
			if succEntry == nil {
				continue
			}
			if edgeCost := l.cost(prev, succEntry, true); edgeCost < bestCost {
				bestCost = edgeCost
				bestAngles = last
			}
		}
		if bestAngles == nil {
			return nil, NewPathReconstructionFailedError()
		}
		path = append(path, bestAngles)
	}

	return path, nil
}

// ExpandedIDs returns the ids passed to GetSuccs or GetLazySuccs, in call
// order.
func (l *Lattice) ExpandedIDs() []int {
	return l.expanded
}

// ExpandedStates returns, for every expanded vertex with a recoverable
// configuration, the tip-offset planning link pose and last cached heuristic
// as a (x, y, z, roll, pitch, yaw, heur) tuple.
func (l *Lattice) ExpandedStates() [][]float64 {
	states := make([][]float64, 0, len(l.expanded))
	for _, stateID := range l.expanded {
		angles, err := l.StateIDToAngles(stateID)
		if err != nil {
			continue
		}
		pose, err := l.computePlanningFrameFK(angles)
		if err != nil {
			continue
		}
		entry, err := l.table.byID(stateID)
		if err != nil {
			continue
		}
		states = append(states, []float64{
			pose.Point.X, pose.Point.Y, pose.Point.Z,
			pose.Orientation.Roll, pose.Orientation.Pitch, pose.Orientation.Yaw,
			entry.heur,
		})
	}
	return states
}

// PrintState logs a rendering of a vertex for diagnostics.
func (l *Lattice) PrintState(stateID int, verbose bool) {
	entry, err := l.table.byID(stateID)
	if err != nil {
		l.graphLogger.Errorf("cannot print state: %v", err)
		return
	}
	l.graphLogger.Debug(l.stateString(entry, verbose))
}

func (l *Lattice) stateString(entry *latticeState, verbose bool) string {
	if entry == l.goalState {
		return "<goal state>"
	}
	angles := l.disc.coordToAngles(entry.coord)
	var b strings.Builder
	if verbose {
		b.WriteString("angles: ")
	}
	b.WriteString("{ ")
	for i, a := range angles {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%.3f", a)
	}
	b.WriteString(" }")
	return b.String()
}
