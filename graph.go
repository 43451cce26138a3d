/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"fmt"

	"github.com/google/uuid"
)

// depGraph is a directed acyclic graph of migrations. Nodes live in a growable
// arena and reference each other only by index; edges point from dependency to
// dependent and carry no payload.
type depGraph struct {
	nodes []graphNode
	index map[uuid.UUID]int
}

type graphNode struct {
	migration Migration
	in        []int // indexes of dependencies
	out       []int // indexes of dependents
}

func newDepGraph() *depGraph {
	return &depGraph{index: make(map[uuid.UUID]int)}
}

// clone returns a deep copy of the graph. Batch registration applies mutations
// to a clone and swaps it in only on success.
func (g *depGraph) clone() *depGraph {
	c := &depGraph{
		nodes: make([]graphNode, len(g.nodes)),
		index: make(map[uuid.UUID]int, len(g.index)),
	}
	for i, n := range g.nodes {
		c.nodes[i] = graphNode{
			migration: n.migration,
			in:        append([]int(nil), n.in...),
			out:       append([]int(nil), n.out...),
		}
	}
	for id, idx := range g.index {
		c.index[id] = idx
	}
	return c
}

func (g *depGraph) lookup(id uuid.UUID) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// addNode inserts a node and returns its arena index. Uniqueness of the
// migration ID must be checked by the caller beforehand.
func (g *depGraph) addNode(m Migration) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, graphNode{migration: m})
	g.index[m.ID()] = idx
	return idx
}

// addEdge inserts a directed edge from a dependency to its dependent. The edge
// is rejected and the graph left unchanged if it would create a cycle. Cycle
// detection is exact: a reachability check from "to" back to "from" runs before
// the edge is committed.
func (g *depGraph) addEdge(from, to int) error {
	if from == to || g.reachable(to, from) {
		return &CycleError{From: g.nodes[from].migration.ID(), To: g.nodes[to].migration.ID()}
	}
	g.nodes[from].out = append(g.nodes[from].out, to)
	g.nodes[to].in = append(g.nodes[to].in, from)
	return nil
}

// reachable reports whether dst can be reached from src following edges forward.
func (g *depGraph) reachable(src, dst int) bool {
	visited := make(map[int]struct{}, len(g.nodes))
	queue := []int{src}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == dst {
			return true
		}
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		queue = append(queue, g.nodes[n].out...)
	}
	return false
}

// topoSort returns all node indexes in an order where every dependency precedes
// its dependents. Ties between independent nodes are broken by registration
// order, so the result is deterministic for a given graph state.
//
// Sorting an already-validated graph cannot fail; if it does, the graph was
// corrupted and the engine panics rather than reporting a recoverable error.
func (g *depGraph) topoSort() []int {
	inDegree := make([]int, len(g.nodes))
	var ready []int
	for i := range g.nodes {
		inDegree[i] = len(g.nodes[i].in)
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		minPos := 0
		for p := range ready {
			if ready[p] < ready[minPos] {
				minPos = p
			}
		}
		n := ready[minPos]
		ready = append(ready[:minPos], ready[minPos+1:]...)
		order = append(order, n)
		for _, dep := range g.nodes[n].out {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(g.nodes) {
		panic(fmt.Sprintf("dagmigrate: dependency graph is not acyclic, sorted %d of %d nodes", len(order), len(g.nodes)))
	}
	return order
}

// ancestors returns the node itself plus everything it transitively depends on.
func (g *depGraph) ancestors(idx int) map[int]struct{} {
	return g.reachSet([]int{idx}, true)
}

// descendants returns the node itself plus everything that transitively depends on it.
func (g *depGraph) descendants(idx int) map[int]struct{} {
	return g.reachSet([]int{idx}, false)
}

// reachSet computes the inclusive reachability set of the start nodes, following
// edges backward (toward dependencies) or forward (toward dependents).
func (g *depGraph) reachSet(start []int, backward bool) map[int]struct{} {
	set := make(map[int]struct{}, len(g.nodes))
	queue := append([]int(nil), start...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, ok := set[n]; ok {
			continue
		}
		set[n] = struct{}{}
		if backward {
			queue = append(queue, g.nodes[n].in...)
		} else {
			queue = append(queue, g.nodes[n].out...)
		}
	}
	return set
}

// sources returns indexes of all nodes with no dependencies.
func (g *depGraph) sources() []int {
	var res []int
	for i := range g.nodes {
		if len(g.nodes[i].in) == 0 {
			res = append(res, i)
		}
	}
	return res
}

// sinks returns indexes of all nodes with no dependents.
func (g *depGraph) sinks() []int {
	var res []int
	for i := range g.nodes {
		if len(g.nodes[i].out) == 0 {
			res = append(res, i)
		}
	}
	return res
}
