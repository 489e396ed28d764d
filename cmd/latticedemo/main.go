// Package main plans a collision-free motion for a planar two-joint arm
// around a spherical obstacle and prints the resulting joint waypoints.
package main

import (
	"context"
	"flag"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	"go.viam.com/latticeplan/collision"
	"go.viam.com/latticeplan/grid"
	"go.viam.com/latticeplan/lattice"
	"go.viam.com/latticeplan/referenceframe"
	"go.viam.com/latticeplan/search"
	"go.viam.com/latticeplan/spatialmath"
)

var logger = golog.NewDevelopmentLogger("latticedemo")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	epsilon := flag.Float64("epsilon", 5, "heuristic inflation for the search")
	flag.Parse()

	model, err := referenceframe.NewSimpleModel(
		"planar2",
		[]referenceframe.Limit{
			{Min: -math.Pi, Max: math.Pi},
			{Min: -math.Pi, Max: math.Pi},
		},
		[]float64{0.5, 0.5},
	)
	if err != nil {
		return err
	}

	g, err := grid.NewOccupancyGrid(0.02, r3.Vector{X: -2, Y: -2, Z: -2}, "world")
	if err != nil {
		return err
	}

	checker := collision.NewSphereChecker(model, []collision.Sphere{
		{Center: r3.Vector{X: 0.9, Y: 0.4}, Radius: 0.15},
	}, 0.02)

	delta := math.Pi / 36
	params := lattice.NewBasicPlanningParams(2, []float64{delta, delta})
	l, err := lattice.NewLattice(
		model,
		checker,
		g,
		lattice.NewSingleJointActionSource([]float64{delta, delta}),
		params,
		logger,
	)
	if err != nil {
		return err
	}
	l.AddHeuristic(lattice.NewEuclideanHeuristic(l, g))

	if err := l.SetStart([]float64{0, 0}); err != nil {
		return err
	}
	goal := lattice.GoalConstraint{
		Type:         lattice.GoalTypeXYZ,
		Pose:         spatialmath.NewPoseFromPoint(r3.Vector{X: 0.2, Y: 0.8}),
		XYZTolerance: [3]float64{0.05, 0.05, 0.05},
	}
	if err := l.SetGoal(goal); err != nil {
		return err
	}

	planner, err := search.NewPlanner(l, logger, *epsilon)
	if err != nil {
		return err
	}
	idPath, cost, err := planner.Plan(ctx)
	if err != nil {
		return err
	}
	waypoints, err := l.ExtractPath(idPath)
	if err != nil {
		return err
	}

	logger.Infof("found a %d-waypoint path with cost %v after %d expansions", len(waypoints), cost, len(l.ExpandedIDs()))
	for i, waypoint := range waypoints {
		pose, err := model.PlanningLinkFK(waypoint)
		if err != nil {
			return err
		}
		logger.Infof("  %3d: joints (%7.4f, %7.4f) tip (%6.3f, %6.3f)", i, waypoint[0], waypoint[1], pose.Point.X, pose.Point.Y)
	}
	return nil
}
