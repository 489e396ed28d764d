package lattice

import (
	"strconv"
	"strings"
)

// latticeState is one lattice vertex: an integer coordinate plus the witness
// joint angles bound at creation.
type latticeState struct {
	id     int
	coord  []int
	state  []float64
	eeCell [3]int
	dist   float64
	heur   float64
}

// stateTable owns the vertex arena and the coordinate index. Ids are dense
// and assigned in creation order; vertices are never removed except by
// clearing the whole table.
type stateTable struct {
	states []*latticeState
	index  map[string]int
}

func newStateTable() *stateTable {
	return &stateTable{index: map[string]int{}}
}

func coordKey(coord []int) string {
	var b strings.Builder
	for i, c := range coord {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// create allocates a vertex with the next dense id. The reserved goal vertex
// is created unindexed so no real coordinate can collide with it.
func (st *stateTable) create(coord []int, state []float64, dist float64, eeCell [3]int, indexed bool) *latticeState {
	entry := &latticeState{
		id:     len(st.states),
		coord:  append([]int(nil), coord...),
		state:  append([]float64(nil), state...),
		eeCell: eeCell,
		dist:   dist,
	}
	st.states = append(st.states, entry)
	if indexed {
		st.index[coordKey(entry.coord)] = entry.id
	}
	return entry
}

// getOrCreate returns the vertex for a coordinate, allocating it on first
// use. The first binding of witness state, clearance, and end-effector cell
// wins.
func (st *stateTable) getOrCreate(coord []int, state []float64, dist float64, eeCell [3]int) *latticeState {
	if entry := st.lookup(coord); entry != nil {
		return entry
	}
	return st.create(coord, state, dist, eeCell, true)
}

func (st *stateTable) lookup(coord []int) *latticeState {
	id, ok := st.index[coordKey(coord)]
	if !ok {
		return nil
	}
	return st.states[id]
}

func (st *stateTable) byID(stateID int) (*latticeState, error) {
	if stateID < 0 || stateID >= len(st.states) {
		return nil, NewInvalidStateIDError(stateID)
	}
	return st.states[stateID], nil
}

func (st *stateTable) count() int {
	return len(st.states)
}
