// Package search provides a heuristic best-first planner over a forward
// search graph such as the lattice.
package search

import (
	"container/heap"
	"context"

	"github.com/edaniels/golog"
)

// Graph is the forward search space contract the planner consumes.
type Graph interface {
	// GetSuccs returns the successor ids of a vertex and their edge costs.
	GetSuccs(stateID int) ([]int, []float64, error)

	// GetGoalHeuristic estimates cost-to-goal for a vertex.
	GetGoalHeuristic(stateID int) (float64, error)

	// StartID returns the start vertex id, or -1 if unset.
	StartID() int

	// GoalID returns the goal vertex id.
	GoalID() int
}

// Planner runs weighted A* over a Graph. Epsilon inflates the heuristic; 1
// yields plain A*, larger values trade solution quality for speed.
type Planner struct {
	graph   Graph
	logger  golog.Logger
	epsilon float64
}

// NewPlanner creates a planner with the given heuristic inflation.
func NewPlanner(graph Graph, logger golog.Logger, epsilon float64) (*Planner, error) {
	if epsilon < 1 {
		return nil, NewBadEpsilonError(epsilon)
	}
	return &Planner{graph: graph, logger: logger, epsilon: epsilon}, nil
}

type openItem struct {
	stateID int
	g       float64
	f       float64
	index   int
}

type openList []*openItem

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool { return o[i].f < o[j].f }

func (o openList) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openList) Push(x interface{}) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}

func (o *openList) Pop() interface{} {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}

// Plan searches from the graph's start to its goal and returns the id path
// and its cost. The context bounds planning time; cancellation aborts at the
// next expansion boundary.
func (p *Planner) Plan(ctx context.Context) ([]int, float64, error) {
	startID := p.graph.StartID()
	if startID < 0 {
		return nil, 0, NewStartUnsetError()
	}
	goalID := p.graph.GoalID()

	gScores := map[int]float64{startID: 0}
	parents := map[int]int{}
	closed := map[int]bool{}

	h0, err := p.graph.GetGoalHeuristic(startID)
	if err != nil {
		return nil, 0, err
	}
	open := openList{}
	heap.Init(&open)
	heap.Push(&open, &openItem{stateID: startID, g: 0, f: p.epsilon * h0})

	expansions := 0
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		item := heap.Pop(&open).(*openItem)
		if closed[item.stateID] || item.g > gScores[item.stateID] {
			continue
		}
		closed[item.stateID] = true
		expansions++

		if item.stateID == goalID {
			p.logger.Debugf("goal reached after %d expansions with cost %v", expansions, item.g)
			return reconstruct(parents, startID, goalID), item.g, nil
		}

		succs, costs, err := p.graph.GetSuccs(item.stateID)
		if err != nil {
			return nil, 0, err
		}
		for i, succ := range succs {
			if closed[succ] {
				continue
			}
			g := item.g + costs[i]
			if best, seen := gScores[succ]; seen && g >= best {
				continue
			}
			gScores[succ] = g
			parents[succ] = item.stateID
			h, err := p.graph.GetGoalHeuristic(succ)
			if err != nil {
				return nil, 0, err
			}
			heap.Push(&open, &openItem{stateID: succ, g: g, f: g + p.epsilon*h})
		}
	}

	p.logger.Debugf("open list exhausted after %d expansions", expansions)
	return nil, 0, NewNoPathError()
}

func reconstruct(parents map[int]int, startID, goalID int) []int {
	path := []int{goalID}
	for current := goalID; current != startID; {
		current = parents[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
