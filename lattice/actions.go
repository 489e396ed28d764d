package lattice

// Action is one motion primitive: an ordered sequence of intermediate joint
// waypoints. The last waypoint is the successor configuration.
type Action [][]float64

// ActionSource produces the candidate motion primitives applicable at a
// configuration. Iteration order must be deterministic for fixed inputs.
type ActionSource interface {
	Actions(angles []float64) ([]Action, error)
}

// singleJointActionSource steps one joint at a time by a fixed offset.
type singleJointActionSource struct {
	steps []float64
}

// NewSingleJointActionSource returns an ActionSource producing one positive
// and one negative single-waypoint primitive per joint.
func NewSingleJointActionSource(steps []float64) ActionSource {
	return &singleJointActionSource{steps: steps}
}

func (s *singleJointActionSource) Actions(angles []float64) ([]Action, error) {
	actions := make([]Action, 0, 2*len(s.steps))
	for j, step := range s.steps {
		for _, dir := range []float64{1, -1} {
			succ := append([]float64(nil), angles...)
			succ[j] += dir * step
			actions = append(actions, Action{succ})
		}
	}
	return actions, nil
}

// checkAction validates a primitive applied at a configuration: joint limits
// on every waypoint, then the swept segment from the parent to the first
// waypoint, then each consecutive waypoint pair. The returned clearance is
// the minimum reported across the validated segments.
func (l *Lattice) checkAction(state []float64, action Action) (bool, float64) {
	for i, waypoint := range action {
		if err := l.model.CheckJointLimits(waypoint); err != nil {
			l.expandsLogger.Debugf("waypoint %d violates joint limits: %v", i, err)
			return false, 0
		}
	}

	dist := 0.0
	ok, plen, _, d := l.checker.StateToStateValid(state, action[0])
	dist = d
	if !ok {
		l.expandsLogger.Debugf("path to first waypoint in collision (dist: %0.3f, path_length: %d)", d, plen)
		return false, dist
	}

	for j := 1; j < len(action); j++ {
		ok, plen, _, d := l.checker.StateToStateValid(action[j-1], action[j])
		if d < dist {
			dist = d
		}
		if !ok {
			l.expandsLogger.Debugf("path between waypoints %d and %d in collision (dist: %0.3f, path_length: %d)", j-1, j, d, plen)
			return false, dist
		}
	}

	return true, dist
}
