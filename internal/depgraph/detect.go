package depgraph

import "slices"

// Detection is what the cycle detector found.
type Detection struct {
	// Cycles lists each cycle once, restricted to reportable members.
	Cycles []Cycle
	// Dependents are unsorted vertices that are not on a cycle themselves.
	Dependents []string
}

// Members returns every reported cycle member, sorted.
func (d Detection) Members() []string {
	var out []string
	for _, c := range d.Cycles {
		out = append(out, c.Members...)
	}
	slices.Sort(out)
	return out
}

// Detect sorts g and classifies the vertices the sort could not place.
// Vertices for which skip returns true (units that already carry an unrelated
// fatal error) are left out of the report entirely.
func Detect(g *Graph, skip func(name string) bool) Detection {
	sorted := Sort(g)
	if len(sorted.Unsorted) == 0 {
		return Detection{}
	}
	unsorted := make(map[string]struct{}, len(sorted.Unsorted))
	for _, name := range sorted.Unsorted {
		unsorted[name] = struct{}{}
	}

	var det Detection
	onCycle := make(map[string]struct{})
	for _, c := range Cycles(g) {
		members := make([]string, 0, len(c.Members))
		for _, m := range c.Members {
			onCycle[m] = struct{}{}
			if _, ok := unsorted[m]; !ok {
				continue
			}
			if skip != nil && skip(m) {
				continue
			}
			members = append(members, m)
		}
		if len(members) > 0 {
			det.Cycles = append(det.Cycles, Cycle{Members: members})
		}
	}
	for _, name := range sorted.Unsorted {
		if _, ok := onCycle[name]; ok {
			continue
		}
		if skip != nil && skip(name) {
			continue
		}
		det.Dependents = append(det.Dependents, name)
	}
	return det
}
