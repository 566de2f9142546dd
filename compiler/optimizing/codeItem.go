package optimizing

// CatchHandler is one typed handler of a try region. TypeIdx is the caught
// exception type; a catch-all handler is expressed through TryItem.CatchAllAddr.
type CatchHandler struct {
	TypeIdx uint32
	Addr    uint32 // handler entry, in code units
}

// TryItem is one entry of a method's try table. The covered range is
// [StartAddr, StartAddr+InsnCount) in code units. Try items must be sorted
// by StartAddr and must not overlap.
type TryItem struct {
	StartAddr    uint32
	InsnCount    uint32
	Handlers     []CatchHandler
	CatchAllAddr uint32
	HasCatchAll  bool
}

func (t *TryItem) endAddr() uint32 { return t.StartAddr + t.InsnCount }

// CodeItemAccessor exposes one method's instruction stream and code-item
// metadata to the graph builder. A nil Insns slice with HasCode false stands
// for an intrinsic-only method without bytecode.
type CodeItemAccessor struct {
	Insns         []uint16
	RegistersSize uint16
	InsSize       uint16
	Tries         []TryItem
	HasCode       bool
}

// NewCodeItemAccessor wraps a raw code-unit stream.
func NewCodeItemAccessor(insns []uint16, registers, ins uint16, tries []TryItem) *CodeItemAccessor {
	return &CodeItemAccessor{
		Insns:         insns,
		RegistersSize: registers,
		InsSize:       ins,
		Tries:         tries,
		HasCode:       true,
	}
}

// NoCodeItemAccessor stands for a method without a code item (intrinsics).
func NoCodeItemAccessor() *CodeItemAccessor {
	return &CodeItemAccessor{}
}

// InsnsSizeInCodeUnits is the code-size metric the skip policy consumes.
func (ci *CodeItemAccessor) InsnsSizeInCodeUnits() uint32 {
	return uint32(len(ci.Insns))
}

func (ci *CodeItemAccessor) instAt(off uint32) dexInst {
	return dexInst{insns: ci.Insns, off: off}
}

// MethodSignature describes argument and return kinds through a dex shorty:
// the first character is the return kind, the rest the declared arguments.
// 'V' void, 'L' reference, 'J'/'D' wide primitives, everything else a 32-bit
// primitive. Static methods have no implicit receiver argument.
type MethodSignature struct {
	Shorty   string
	IsStatic bool
}

func (s *MethodSignature) returnType() ValueType {
	if len(s.Shorty) == 0 {
		return TypeVoid
	}
	return typeFromShorty(s.Shorty[0])
}

// argVRegs is the number of vregs the declared arguments plus the implicit
// receiver occupy; wide arguments take two slots.
func (s *MethodSignature) argVRegs() uint16 {
	n := uint16(0)
	if !s.IsStatic {
		n++
	}
	for i := 1; i < len(s.Shorty); i++ {
		if s.Shorty[i] == 'J' || s.Shorty[i] == 'D' {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func typeFromShorty(c byte) ValueType {
	switch c {
	case 'V':
		return TypeVoid
	case 'L':
		return TypeReference
	case 'J':
		return TypeLong
	case 'D':
		return TypeDouble
	case 'F':
		return TypeFloat
	default: // I, Z, B, S, C
		return TypeInt
	}
}
