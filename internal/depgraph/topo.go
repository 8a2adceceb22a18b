package depgraph

import (
	"slices"
)

// Topo is the result of a topological sort.
type Topo struct {
	// Order lists sortable vertices, dependencies before dependents.
	Order []string
	// Unsorted holds vertices on a cycle or depending on one, sorted by name.
	Unsorted []string
}

// Sort performs an iterative depth-first topological sort. Roots and
// neighbours are visited in name order so the result is deterministic.
// A vertex is unsorted when it lies on a cycle or needs an unsorted vertex.
func Sort(g *Graph) Topo {
	n := g.Len()
	cyclic := g.cyclicSet()

	const (
		white = iota
		grey
		black
	)
	color := make([]uint8, n)
	blocked := make([]bool, n)

	roots := make([]VertexID, n)
	for i := range roots {
		roots[i] = VertexID(i)
	}
	slices.SortFunc(roots, func(a, b VertexID) int {
		return compareNames(g.idToName[a], g.idToName[b])
	})

	type frame struct {
		id   VertexID
		next int
	}
	topo := Topo{Order: make([]string, 0, n)}
	stack := make([]frame, 0, 16)

	for _, root := range roots {
		if color[root] != white {
			continue
		}
		color[root] = grey
		stack = append(stack, frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.out[top.id]) {
				w := g.out[top.id][top.next]
				top.next++
				if color[w] == white {
					color[w] = grey
					stack = append(stack, frame{id: w})
				}
				continue
			}
			// все соседи обработаны: вершину можно закрыть
			v := top.id
			stack = stack[:len(stack)-1]
			color[v] = black
			blocked[v] = cyclic[v]
			for _, w := range g.out[v] {
				if blocked[w] || color[w] == grey {
					blocked[v] = true
					break
				}
			}
			if blocked[v] {
				topo.Unsorted = append(topo.Unsorted, g.idToName[v])
				continue
			}
			topo.Order = append(topo.Order, g.idToName[v])
		}
	}
	slices.Sort(topo.Unsorted)
	return topo
}

func compareNames(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
