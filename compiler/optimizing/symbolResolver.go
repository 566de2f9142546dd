package optimizing

// Symbol resolution is an external collaborator. The builder only asks
// whether a constant-pool index resolves and to what shape; it never caches
// the answers across calls and never writes resolver state. Implementations
// must be safe for concurrent readers.

// FieldDesc describes a resolved field.
type FieldDesc struct {
	DeclaringType uint32
	Type          ValueType
	IsStatic      bool
	IsVolatile    bool
}

// MethodDesc describes a resolved method.
type MethodDesc struct {
	DeclaringType uint32
	Shorty        string
	IsStatic      bool
}

// TypeDesc describes a resolved class or array type.
type TypeDesc struct {
	IsArray       bool
	ComponentType ValueType // meaningful when IsArray
}

// SymbolResolver answers constant-pool lookups for the instruction
// materializer. Resolve methods return ok=false for symbols that exist in
// the pool but cannot be resolved yet; such instructions are materialized
// with the unresolved flag set and the failure decision is deferred.
// Indices at or beyond the pool sizes are structural errors the builder
// reports as invalid bytecode.
type SymbolResolver interface {
	ResolveField(idx uint32, isStatic bool) (FieldDesc, bool)
	ResolveMethod(idx uint32) (MethodDesc, bool)
	ResolveType(idx uint32) (TypeDesc, bool)

	FieldPoolSize() uint32
	MethodPoolSize() uint32
	TypePoolSize() uint32
	StringPoolSize() uint32
}

// unresolvedSymbols is the zero resolver: every pool index is in range and
// nothing resolves. Used when building without a resolution context.
type unresolvedSymbols struct{}

func (unresolvedSymbols) ResolveField(uint32, bool) (FieldDesc, bool) { return FieldDesc{}, false }
func (unresolvedSymbols) ResolveMethod(uint32) (MethodDesc, bool)     { return MethodDesc{}, false }
func (unresolvedSymbols) ResolveType(uint32) (TypeDesc, bool)         { return TypeDesc{}, false }
func (unresolvedSymbols) FieldPoolSize() uint32                       { return 1 << 16 }
func (unresolvedSymbols) MethodPoolSize() uint32                      { return 1 << 16 }
func (unresolvedSymbols) TypePoolSize() uint32                        { return 1 << 16 }
func (unresolvedSymbols) StringPoolSize() uint32                      { return 1 << 16 }
