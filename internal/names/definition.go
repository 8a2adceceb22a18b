package names

// OwnerKind enumerates the closed set of top-level definition owners.
type OwnerKind uint8

const (
	OwnerClass OwnerKind = iota + 1
	OwnerFunction
	OwnerLibrary
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerClass:
		return "class"
	case OwnerFunction:
		return "function"
	case OwnerLibrary:
		return "library"
	}
	return "unknown"
}

// Owner is implemented only by the owner types of this package.
type Owner interface {
	Kind() OwnerKind
	sealed()
}

// ClassOwner is a class or interface definition.
type ClassOwner struct {
	Interface bool
	Super     string // unresolved superclass name, "" for none
	Ifaces    []string
}

// FunctionOwner is a package-level function.
type FunctionOwner struct {
	Params int
}

// LibraryOwner is a package-level variable, constant or namespace.
type LibraryOwner struct {
	Const bool
}

func (ClassOwner) Kind() OwnerKind    { return OwnerClass }
func (FunctionOwner) Kind() OwnerKind { return OwnerFunction }
func (LibraryOwner) Kind() OwnerKind  { return OwnerLibrary }

func (ClassOwner) sealed()    {}
func (FunctionOwner) sealed() {}
func (LibraryOwner) sealed()  {}

// Definition is a top-level definition exported by a unit.
type Definition struct {
	Name  QName
	Owner Owner
}

// Describe renders a definition for diagnostics.
func (d Definition) Describe() string {
	if d.Owner == nil {
		return d.Name.String()
	}
	switch o := d.Owner.(type) {
	case ClassOwner:
		if o.Interface {
			return "interface " + d.Name.String()
		}
		return "class " + d.Name.String()
	case FunctionOwner:
		return "function " + d.Name.String()
	case LibraryOwner:
		if o.Const {
			return "const " + d.Name.String()
		}
		return "var " + d.Name.String()
	}
	return d.Name.String()
}
