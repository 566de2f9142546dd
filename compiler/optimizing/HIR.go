package optimizing

// HIR is the graph instruction form the builder produces: a closed opcode
// tag, typed operand values and a single typed result. The opcode space is
// fixed at design time; every consumer switches exhaustively over it.

type HirOperation byte

const (
	HirNop HirOperation = iota
	HirParameterValue
	HirPhi

	HirAdd
	HirSub
	HirMul
	HirDiv
	HirRem
	HirAnd
	HirOr
	HirXor
	HirShl
	HirShr
	HirUshr
	HirNeg
	HirNot
	HirTypeConversion
	HirCompare

	HirGoto
	HirIf
	HirPackedSwitch
	HirReturn
	HirReturnVoid
	HirThrow
	HirTryBoundary

	HirArrayGet
	HirArraySet
	HirArrayLength
	HirNewArray
	HirFillArrayData

	HirInstanceFieldGet
	HirInstanceFieldSet
	HirStaticFieldGet
	HirStaticFieldSet

	HirInvoke
	HirNewInstance
	HirCheckCast
	HirInstanceOf
	HirLoadString
	HirLoadClass
	HirMonitorOp
	HirMoveException
)

func (op HirOperation) String() string {
	switch op {
	case HirNop:
		return "Nop"
	case HirParameterValue:
		return "ParameterValue"
	case HirPhi:
		return "Phi"
	case HirAdd:
		return "Add"
	case HirSub:
		return "Sub"
	case HirMul:
		return "Mul"
	case HirDiv:
		return "Div"
	case HirRem:
		return "Rem"
	case HirAnd:
		return "And"
	case HirOr:
		return "Or"
	case HirXor:
		return "Xor"
	case HirShl:
		return "Shl"
	case HirShr:
		return "Shr"
	case HirUshr:
		return "Ushr"
	case HirNeg:
		return "Neg"
	case HirNot:
		return "Not"
	case HirTypeConversion:
		return "TypeConversion"
	case HirCompare:
		return "Compare"
	case HirGoto:
		return "Goto"
	case HirIf:
		return "If"
	case HirPackedSwitch:
		return "PackedSwitch"
	case HirReturn:
		return "Return"
	case HirReturnVoid:
		return "ReturnVoid"
	case HirThrow:
		return "Throw"
	case HirTryBoundary:
		return "TryBoundary"
	case HirArrayGet:
		return "ArrayGet"
	case HirArraySet:
		return "ArraySet"
	case HirArrayLength:
		return "ArrayLength"
	case HirNewArray:
		return "NewArray"
	case HirFillArrayData:
		return "FillArrayData"
	case HirInstanceFieldGet:
		return "InstanceFieldGet"
	case HirInstanceFieldSet:
		return "InstanceFieldSet"
	case HirStaticFieldGet:
		return "StaticFieldGet"
	case HirStaticFieldSet:
		return "StaticFieldSet"
	case HirInvoke:
		return "Invoke"
	case HirNewInstance:
		return "NewInstance"
	case HirCheckCast:
		return "CheckCast"
	case HirInstanceOf:
		return "InstanceOf"
	case HirLoadString:
		return "LoadString"
	case HirLoadClass:
		return "LoadClass"
	case HirMonitorOp:
		return "MonitorOp"
	case HirMoveException:
		return "MoveException"
	default:
		return "Unknown"
	}
}

// ValueType classifies a value's representation. Dex bytecode does not
// always distinguish int from float (or long from double), so values start
// out ambiguous and are pinned down during SSA finalization.
type ValueType byte

const (
	TypeVoid ValueType = iota
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeReference
	TypeAmbiguous     // 32-bit, int or float
	TypeAmbiguousWide // 64-bit, long or double
)

func (t ValueType) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeReference:
		return "ref"
	case TypeAmbiguous:
		return "?32"
	case TypeAmbiguousWide:
		return "?64"
	default:
		return "invalid"
	}
}

func (t ValueType) isWide() bool {
	return t == TypeLong || t == TypeDouble || t == TypeAmbiguousWide
}

func (t ValueType) isAmbiguous() bool {
	return t == TypeAmbiguous || t == TypeAmbiguousWide
}

// defaultResolved is the representation an ambiguous value falls back to
// when no use disambiguates it: the one implied by its declared width.
func (t ValueType) defaultResolved() ValueType {
	switch t {
	case TypeAmbiguous:
		return TypeInt
	case TypeAmbiguousWide:
		return TypeLong
	default:
		return t
	}
}

type ValueKind byte

const (
	Konst ValueKind = iota
	Argument
	Variable
	PhiVal
	Unknown
)

// Value is a reference to a single SSA value: the result of one concrete
// instruction, a constant, an incoming argument, or a phi merging one input
// per predecessor edge. Phis start provisional while the materializer walks
// the blocks; the SSA finalizer ties their inputs off and resolves types.
type Value struct {
	kind ValueKind
	typ  ValueType
	def  *HIR   // defining instruction, for Variable
	use  []*HIR // instructions consuming this value

	// Phi state.
	block       *BasicBlock // owning merge block
	vreg        uint32      // vreg this phi merges
	inputs      []*Value    // one per predecessor, predecessor order
	provisional bool        // inputs not yet tied off
	repl        *Value      // forwarding pointer installed by phi elimination

	bits uint64 // constant payload, for Konst
}

// resolve follows replacement links installed by redundant-phi elimination.
func (v *Value) resolve() *Value {
	for v != nil && v.repl != nil {
		v = v.repl
	}
	return v
}

func (v *Value) isPhi() bool { return v.kind == PhiVal }

// Type returns the value's resolved representation.
func (v *Value) Type() ValueType { return v.typ }

// Inputs returns a phi's inputs in predecessor order.
func (v *Value) Inputs() []*Value { return v.inputs }

// ConstBits returns the raw payload of a constant value.
func (v *Value) ConstBits() uint64 { return v.bits }

// HIR is one graph instruction: an opcode tag, typed operands, a declared
// result type and the environment snapshot recorded for instructions that
// can throw (live vreg -> producing value, used for deoptimization state).
type HIR struct {
	op         HirOperation
	operands   []*Value
	resultType ValueType
	result     *Value
	block      *BasicBlock
	idx        int
	dexOff     uint32
	aux        uint64 // pool index, literal bits or monitor kind
	unresolved bool
	env        []*Value // snapshot of vreg values at this instruction

	// Expected operand representations, parallel to operands. A nil slice
	// means no constraints; TypeAmbiguous entries constrain width only.
	// The SSA finalizer consumes these to resolve ambiguous typing.
	operandTypes []ValueType
}

func (h *HIR) Op() HirOperation { return h.op }

func (h *HIR) Operands() []*Value { return h.operands }

func (h *HIR) ResultType() ValueType { return h.resultType }

// IsUnresolved reports whether symbol resolution failed for this
// instruction; the failure decision is deferred to later stages.
func (h *HIR) IsUnresolved() bool { return h.unresolved }

// Environment returns the live vreg snapshot, indexed by vreg; nil entries
// are vregs without a defined value at this point.
func (h *HIR) Environment() []*Value { return h.env }

// Result returns the single value this instruction defines, or nil for
// void instructions. The value is created once and shared by all uses.
func (h *HIR) Result() *Value {
	if h.resultType == TypeVoid {
		return nil
	}
	return h.result
}

func (h *HIR) isControlFlow() bool {
	switch h.op {
	case HirGoto, HirIf, HirPackedSwitch, HirReturn, HirReturnVoid, HirThrow, HirTryBoundary:
		return true
	}
	return false
}

// newHIR allocates an instruction from the arena and wires use backlinks on
// its operands. The result value, if any, is allocated alongside.
func newHIR(a *arena, op HirOperation, typ ValueType, operands ...*Value) *HIR {
	h := a.newHIR()
	h.op = op
	h.resultType = typ
	h.operands = operands
	for _, opnd := range operands {
		if opnd != nil {
			opnd.use = append(opnd.use, h)
		}
	}
	if typ != TypeVoid {
		v := a.newValue()
		v.kind = Variable
		v.typ = typ
		v.def = h
		h.result = v
	}
	return h
}

// ensureResult attaches a result value to an instruction built without one.
// Used when an unresolved invoke's return width only becomes known at the
// following move-result.
func (h *HIR) ensureResult(a *arena, typ ValueType) *Value {
	if h.result != nil {
		return h.result
	}
	h.resultType = typ
	v := a.newValue()
	v.kind = Variable
	v.typ = typ
	v.def = h
	h.result = v
	return v
}

func newConstValue(a *arena, bits uint64, wide bool) *Value {
	v := a.newValue()
	v.kind = Konst
	v.bits = bits
	if wide {
		v.typ = TypeAmbiguousWide
	} else {
		v.typ = TypeAmbiguous
	}
	return v
}

func newProvisionalPhi(a *arena, block *BasicBlock, vreg uint32, typ ValueType) *Value {
	v := a.newValue()
	v.kind = PhiVal
	v.typ = typ
	v.block = block
	v.vreg = vreg
	v.provisional = true
	return v
}
