// Package depgraph records "needs" edges between sources and answers ordering
// and cycle questions over them.
package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type VertexID uint32

// Graph is a directed graph over source names. Edge from -> to means
// "from needs to". Vertices keep insertion order; edge lists are sorted
// by target name and deduplicated.
type Graph struct {
	nameToID map[string]VertexID
	idToName []string
	out      [][]VertexID
	in       [][]VertexID
	edges    int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nameToID: make(map[string]VertexID)}
}

// AddVertex registers name and returns its id; existing vertices are reused.
func (g *Graph) AddVertex(name string) VertexID {
	if id, ok := g.nameToID[name]; ok {
		return id
	}
	id, err := safecast.Conv[VertexID](len(g.idToName))
	if err != nil {
		panic(fmt.Errorf("vertex id overflow: %w", err))
	}
	g.nameToID[name] = id
	g.idToName = append(g.idToName, name)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

// Has reports whether name is a vertex.
func (g *Graph) Has(name string) bool {
	_, ok := g.nameToID[name]
	return ok
}

// AddEdge records from -> to, creating vertices as needed.
// Returns false when the edge already existed.
func (g *Graph) AddEdge(from, to string) bool {
	f := g.AddVertex(from)
	t := g.AddVertex(to)
	if !g.insert(&g.out[f], t) {
		return false
	}
	g.insert(&g.in[t], f)
	g.edges++
	return true
}

func (g *Graph) insert(list *[]VertexID, id VertexID) bool {
	name := g.idToName[id]
	pos, found := slices.BinarySearchFunc(*list, name, func(v VertexID, n string) int {
		switch a := g.idToName[v]; {
		case a < n:
			return -1
		case a > n:
			return 1
		}
		return 0
	})
	if found {
		return false
	}
	*list = slices.Insert(*list, pos, id)
	return true
}

// HasEdge reports whether from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	f, ok1 := g.nameToID[from]
	t, ok2 := g.nameToID[to]
	if !ok1 || !ok2 {
		return false
	}
	return slices.Contains(g.out[f], t)
}

// Needs returns the direct dependencies of name, sorted.
func (g *Graph) Needs(name string) []string {
	id, ok := g.nameToID[name]
	if !ok {
		return nil
	}
	return g.names(g.out[id])
}

// Dependents returns the vertices with an edge into name, sorted.
func (g *Graph) Dependents(name string) []string {
	id, ok := g.nameToID[name]
	if !ok {
		return nil
	}
	return g.names(g.in[id])
}

func (g *Graph) names(ids []VertexID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.idToName[id]
	}
	return out
}

// Vertices returns vertex names in insertion order.
func (g *Graph) Vertices() []string {
	return slices.Clone(g.idToName)
}

// Len returns the vertex count.
func (g *Graph) Len() int {
	return len(g.idToName)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}
