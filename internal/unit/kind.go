package unit

// DependencyKind classifies a reference a unit makes to another definition.
type DependencyKind uint8

const (
	Inheritance DependencyKind = iota
	Namespace
	Type
	Expression

	KindCount = 4
)

// Kinds lists dependency kinds in resolution order.
var Kinds = [KindCount]DependencyKind{Inheritance, Namespace, Type, Expression}

func (k DependencyKind) String() string {
	switch k {
	case Inheritance:
		return "inheritance"
	case Namespace:
		return "namespace"
	case Type:
		return "type"
	case Expression:
		return "expression"
	}
	return "unknown"
}

// CheckMemo remembers, per (kind, phase), the graph epoch at which the
// transitive dependency check last passed. A stored epoch is only trusted
// while it equals the current epoch for that kind: any new edge of the kind
// bumps the epoch and so invalidates earlier passes.
type CheckMemo struct {
	passed [KindCount][phaseCount]uint64
}

// Passed reports whether the check for (k, p) passed at epoch.
// Epochs start at 1, so the zero value never matches.
func (m *CheckMemo) Passed(k DependencyKind, p Phase, epoch uint64) bool {
	return epoch != 0 && m.passed[k][p] == epoch
}

// Mark records a passing check.
func (m *CheckMemo) Mark(k DependencyKind, p Phase, epoch uint64) {
	m.passed[k][p] = epoch
}

