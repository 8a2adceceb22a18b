package depgraph

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycle is one strongly connected group of vertices, sorted by name.
type Cycle struct {
	Members []string
}

// First returns the lexicographically first member.
func (c Cycle) First() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0]
}

// Cycles returns every cycle of g: strongly connected components with more
// than one vertex plus vertices with a self edge. Cycles are ordered by
// their first member.
func Cycles(g *Graph) []Cycle {
	var out []Cycle
	for _, scc := range g.components() {
		if len(scc) == 1 && !slices.Contains(g.out[scc[0]], scc[0]) {
			continue
		}
		members := g.names(scc)
		slices.Sort(members)
		out = append(out, Cycle{Members: members})
	}
	slices.SortFunc(out, func(a, b Cycle) int {
		return compareNames(a.First(), b.First())
	})
	return out
}

// components computes SCCs with gonum. Self edges are not representable in
// simple.DirectedGraph and are checked separately by callers.
func (g *Graph) components() [][]VertexID {
	dg := simple.NewDirectedGraph()
	for i := range g.idToName {
		dg.AddNode(simple.Node(int64(i)))
	}
	for from, tos := range g.out {
		for _, to := range tos {
			if int(to) == from {
				continue
			}
			dg.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
		}
	}
	sccs := topo.TarjanSCC(dg)
	out := make([][]VertexID, 0, len(sccs))
	for _, scc := range sccs {
		ids := make([]VertexID, len(scc))
		for i, node := range scc {
			ids[i] = VertexID(node.ID())
		}
		out = append(out, ids)
	}
	return out
}

func (g *Graph) cyclicSet() []bool {
	cyclic := make([]bool, g.Len())
	for _, scc := range g.components() {
		if len(scc) > 1 {
			for _, id := range scc {
				cyclic[id] = true
			}
			continue
		}
		id := scc[0]
		if slices.Contains(g.out[id], id) {
			cyclic[id] = true
		}
	}
	return cyclic
}
