package depgraph

import (
	"reflect"
	"testing"
)

func chain(edges ...[2]string) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestSortDependenciesFirst(t *testing.T) {
	g := chain([2]string{"A", "B"}, [2]string{"B", "C"})
	g.AddVertex("D")
	got := Sort(g)
	if want := []string{"C", "B", "A", "D"}; !reflect.DeepEqual(got.Order, want) {
		t.Fatalf("order = %v, want %v", got.Order, want)
	}
	if len(got.Unsorted) != 0 {
		t.Fatalf("unexpected unsorted %v", got.Unsorted)
	}
}

func TestEdgesDedupAndDependents(t *testing.T) {
	g := New()
	if !g.AddEdge("A", "C") || g.AddEdge("A", "C") {
		t.Fatal("duplicate edge accepted")
	}
	g.AddEdge("A", "B")
	g.AddEdge("D", "B")
	if got := g.Needs("A"); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Fatalf("needs = %v", got)
	}
	if got := g.Dependents("B"); !reflect.DeepEqual(got, []string{"A", "D"}) {
		t.Fatalf("dependents = %v", got)
	}
	if g.EdgeCount() != 3 {
		t.Fatalf("edges = %d", g.EdgeCount())
	}
}

func TestDetectReportsExactlyCycleMembers(t *testing.T) {
	g := chain(
		[2]string{"X", "Y"},
		[2]string{"Y", "X"},
		[2]string{"Z", "X"}, // depends on the cycle
		[2]string{"W", "V"},
	)
	det := Detect(g, nil)
	if got := det.Members(); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Fatalf("members = %v", got)
	}
	if len(det.Cycles) != 1 || det.Cycles[0].First() != "X" {
		t.Fatalf("cycles = %+v", det.Cycles)
	}
	if !reflect.DeepEqual(det.Dependents, []string{"Z"}) {
		t.Fatalf("dependents = %v", det.Dependents)
	}
}

func TestDetectSelfLoopAndSkip(t *testing.T) {
	g := chain([2]string{"A", "A"}, [2]string{"P", "Q"}, [2]string{"Q", "P"})
	det := Detect(g, func(name string) bool { return name == "Q" })
	if got := det.Members(); !reflect.DeepEqual(got, []string{"A", "P"}) {
		t.Fatalf("members = %v", got)
	}
	if len(det.Cycles) != 2 {
		t.Fatalf("cycles = %+v", det.Cycles)
	}
}

func TestSortAcyclicHasNoDetection(t *testing.T) {
	g := chain([2]string{"A", "B"})
	if det := Detect(g, nil); len(det.Cycles) != 0 || len(det.Dependents) != 0 {
		t.Fatalf("unexpected detection %+v", det)
	}
}
