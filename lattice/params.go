package lattice

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// default values for planning parameters.
const (
	// base cost charged per lattice edge.
	defaultCostMultiplier = 1000

	// positional/orientation tolerance attached to joint-space goals. The
	// joint tolerances are the real acceptance criterion for those.
	defaultJointGoalTolerance = 0.05

	// diagnostic logger names.
	defaultGraphLog   = "graph"
	defaultExpandsLog = "expands"
)

// PlanningParams configures the lattice: its dimensionality, per-joint
// discretization, and edge cost policy.
type PlanningParams struct {
	// NumJoints is the dimensionality of the lattice coordinate.
	NumJoints int `json:"num_joints"`

	// CoordDelta is the bin width per joint, in radians.
	CoordDelta []float64 `json:"coord_delta"`

	// CoordVals is the number of bins per revolution for continuous joints.
	// If empty it is derived from CoordDelta.
	CoordVals []int `json:"coord_vals"`

	// CostMultiplier is the base edge cost.
	CostMultiplier int `json:"cost_multiplier"`

	// MaxMprimOffset is the largest per-primitive angular displacement,
	// used only by the primitive-aware cost policy.
	MaxMprimOffset float64 `json:"max_mprim_offset"`

	// UsePrimitiveCost selects the primitive-aware edge cost policy instead
	// of the default flat cost.
	UsePrimitiveCost bool `json:"use_primitive_cost"`

	// GraphLog and ExpandsLog name the diagnostic logging channels.
	GraphLog   string `json:"graph_log"`
	ExpandsLog string `json:"expands_log"`
}

// NewBasicPlanningParams returns params with defaults for the given joint
// count and bin widths.
func NewBasicPlanningParams(numJoints int, coordDelta []float64) *PlanningParams {
	return &PlanningParams{
		NumJoints:      numJoints,
		CoordDelta:     coordDelta,
		CostMultiplier: defaultCostMultiplier,
		GraphLog:       defaultGraphLog,
		ExpandsLog:     defaultExpandsLog,
	}
}

// NewPlanningParamsFromJSON parses params from JSON, applying defaults for
// omitted optional fields.
func NewPlanningParamsFromJSON(data []byte) (*PlanningParams, error) {
	params := &PlanningParams{}
	if err := json.Unmarshal(data, params); err != nil {
		return nil, errors.Wrap(err, "failed to parse planning params")
	}
	if params.CostMultiplier == 0 {
		params.CostMultiplier = defaultCostMultiplier
	}
	if params.GraphLog == "" {
		params.GraphLog = defaultGraphLog
	}
	if params.ExpandsLog == "" {
		params.ExpandsLog = defaultExpandsLog
	}
	return params, nil
}

// Validate checks the params against the robot's degree-of-freedom count.
func (p *PlanningParams) Validate(dof int) error {
	var err error
	if p.NumJoints <= 0 {
		err = multierr.Append(err, errors.New("num_joints must be positive"))
	}
	if dof != p.NumJoints {
		err = multierr.Append(err, errors.Errorf("num_joints %d does not match robot dof %d", p.NumJoints, dof))
	}
	if len(p.CoordDelta) != p.NumJoints {
		err = multierr.Append(err, errors.Errorf("coord_delta needs %d entries, got %d", p.NumJoints, len(p.CoordDelta)))
	}
	for i, delta := range p.CoordDelta {
		if delta <= 0 {
			err = multierr.Append(err, errors.Errorf("coord_delta[%d] must be positive, got %f", i, delta))
		}
	}
	if len(p.CoordVals) != 0 && len(p.CoordVals) != p.NumJoints {
		err = multierr.Append(err, errors.Errorf("coord_vals needs 0 or %d entries, got %d", p.NumJoints, len(p.CoordVals)))
	}
	for i, vals := range p.CoordVals {
		if vals <= 0 {
			err = multierr.Append(err, errors.Errorf("coord_vals[%d] must be positive, got %d", i, vals))
		}
	}
	if p.CostMultiplier <= 0 {
		err = multierr.Append(err, errors.New("cost_multiplier must be positive"))
	}
	if p.UsePrimitiveCost && (p.MaxMprimOffset <= 0 || math.IsNaN(p.MaxMprimOffset)) {
		err = multierr.Append(err, errors.New("primitive-aware cost requires a positive max_mprim_offset"))
	}
	return err
}
