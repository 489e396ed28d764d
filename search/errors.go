package search

import "github.com/pkg/errors"

// NewNoPathError returns an error indicating the search space was exhausted
// without reaching the goal.
func NewNoPathError() error {
	return errors.New("no path to the goal exists in the search space")
}

// NewStartUnsetError returns an error indicating that no start state has been
// bound to the graph.
func NewStartUnsetError() error {
	return errors.New("start state has not been set")
}

// NewBadEpsilonError returns an error indicating an invalid heuristic
// inflation factor.
func NewBadEpsilonError(epsilon float64) error {
	return errors.Errorf("epsilon must be at least 1, got %f", epsilon)
}
