package lattice

import (
	"testing"

	"go.viam.com/test"
)

func TestParamsFromJSON(t *testing.T) {
	params, err := NewPlanningParamsFromJSON([]byte(`{
		"num_joints": 2,
		"coord_delta": [0.1, 0.1],
		"coord_vals": [63, 63],
		"cost_multiplier": 100,
		"max_mprim_offset": 0.2
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.NumJoints, test.ShouldEqual, 2)
	test.That(t, params.CostMultiplier, test.ShouldEqual, 100)
	test.That(t, params.MaxMprimOffset, test.ShouldAlmostEqual, 0.2)
	test.That(t, params.Validate(2), test.ShouldBeNil)

	_, err = NewPlanningParamsFromJSON([]byte(`{`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParamsDefaults(t *testing.T) {
	params, err := NewPlanningParamsFromJSON([]byte(`{"num_joints": 1, "coord_delta": [0.1]}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.CostMultiplier, test.ShouldEqual, defaultCostMultiplier)
	test.That(t, params.GraphLog, test.ShouldEqual, defaultGraphLog)
	test.That(t, params.ExpandsLog, test.ShouldEqual, defaultExpandsLog)
}

func TestParamsValidate(t *testing.T) {
	params := NewBasicPlanningParams(2, []float64{0.1, 0.1})
	test.That(t, params.Validate(2), test.ShouldBeNil)

	// dof mismatch
	test.That(t, params.Validate(3), test.ShouldNotBeNil)

	// wrong delta count
	params = NewBasicPlanningParams(2, []float64{0.1})
	test.That(t, params.Validate(2), test.ShouldNotBeNil)

	// nonpositive delta
	params = NewBasicPlanningParams(1, []float64{0})
	test.That(t, params.Validate(1), test.ShouldNotBeNil)

	// primitive-aware cost needs an offset
	params = NewBasicPlanningParams(1, []float64{0.1})
	params.UsePrimitiveCost = true
	test.That(t, params.Validate(1), test.ShouldNotBeNil)
	params.MaxMprimOffset = 0.3
	test.That(t, params.Validate(1), test.ShouldBeNil)
}
