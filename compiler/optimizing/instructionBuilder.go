package optimizing

// instructionBuilder translates each block's bytecode slice into graph
// instructions, threading the per-vreg value state between blocks. Blocks
// are visited in reverse postorder so a vreg's current value is defined
// before use within a block; values flowing across loop back edges stay
// provisional and are tied off by the SSA finalizer.
type instructionBuilder struct {
	graph    *Graph
	code     *CodeItemAccessor
	sig      *MethodSignature
	resolver SymbolResolver

	locals []*Value

	// Pending invoke whose result the next move-result consumes.
	lastInvoke *HIR
}

func newInstructionBuilder(g *Graph, code *CodeItemAccessor, sig *MethodSignature, resolver SymbolResolver) *instructionBuilder {
	if resolver == nil {
		resolver = unresolvedSymbols{}
	}
	return &instructionBuilder{graph: g, code: code, sig: sig, resolver: resolver}
}

func (ib *instructionBuilder) build() bool {
	for _, bb := range ib.graph.reversePostOrder {
		if !ib.buildBlock(bb) {
			DebugInfo("instruction materialization failed", "block", bb.blockNum, "off", bb.startOff)
			return false
		}
	}
	return true
}

func (ib *instructionBuilder) buildBlock(bb *BasicBlock) bool {
	ib.initLocals(bb)
	bb.localsIn = append([]*Value(nil), ib.locals...)

	switch {
	case bb == ib.graph.entryBlock:
		ib.buildParameters(bb)
	case bb == ib.graph.exitBlock:
		// No instructions; the exit block only collects return edges.
	case bb.IsTryBoundary():
		bb.appendHIR(newHIR(ib.graph.arena, HirTryBoundary, TypeVoid))
	default:
		ib.lastInvoke = nil
		for off := bb.startOff; off < bb.endOff; {
			in := ib.code.instAt(off)
			n := in.sizeInCodeUnits()
			if n == 0 {
				return false
			}
			if !isPayloadIdent(ib.code.Insns[off]) {
				if !ib.translate(bb, in) {
					return false
				}
			}
			off += n
		}
	}

	bb.localsOut = append([]*Value(nil), ib.locals...)
	return true
}

// initLocals seeds the working vreg array for a block. Single-predecessor
// blocks inherit the predecessor's exit state; merge points, loop headers
// and catch handlers start from one provisional phi per vreg.
func (ib *instructionBuilder) initLocals(bb *BasicBlock) {
	n := int(ib.graph.numVRegs)
	ib.locals = make([]*Value, n)

	if bb == ib.graph.entryBlock {
		return
	}
	needsPhis := len(bb.preds) >= 2 || bb.isLoopHeader || bb.isCatchHandler
	if !needsPhis && len(bb.preds) == 1 {
		copy(ib.locals, bb.preds[0].localsOut)
		return
	}
	for i := 0; i < n; i++ {
		ib.locals[i] = newProvisionalPhi(ib.graph.arena, bb, uint32(i), TypeAmbiguous)
	}
}

// buildParameters materializes one parameter value per incoming argument.
// Dex convention: the ins occupy the highest-numbered vregs, receiver
// first, wide arguments taking two consecutive slots.
func (ib *instructionBuilder) buildParameters(bb *BasicBlock) {
	cur := uint32(ib.graph.numVRegs - ib.graph.numInVRegs)
	idx := uint64(0)

	addParam := func(typ ValueType) {
		h := newHIR(ib.graph.arena, HirParameterValue, typ)
		h.aux = idx
		idx++
		bb.appendHIR(h)
		ib.setLocal(cur, h.Result())
		if typ.isWide() {
			cur += 2
		} else {
			cur++
		}
	}

	if !ib.sig.IsStatic {
		addParam(TypeReference)
	}
	for i := 1; i < len(ib.sig.Shorty); i++ {
		addParam(typeFromShorty(ib.sig.Shorty[i]))
	}
}

func (ib *instructionBuilder) getLocal(vreg uint32) *Value {
	if vreg >= uint32(ib.graph.numVRegs) {
		return nil
	}
	return ib.locals[vreg]
}

func (ib *instructionBuilder) getWide(vreg uint32) *Value {
	if vreg+1 >= uint32(ib.graph.numVRegs) {
		return nil
	}
	if !ib.pairIntact(vreg) {
		return nil
	}
	return ib.locals[vreg]
}

// pairIntact reports whether vreg's high slot still belongs to the pair:
// the nil left by setWide, or the merge phi created for that slot. Any
// narrow write over the high half breaks the pair and the stale low half
// must read as undefined.
func (ib *instructionBuilder) pairIntact(vreg uint32) bool {
	hi := ib.locals[vreg+1]
	return hi == nil || (hi.isPhi() && hi.vreg == vreg+1)
}

func (ib *instructionBuilder) setLocal(vreg uint32, v *Value) bool {
	if vreg >= uint32(ib.graph.numVRegs) {
		return false
	}
	ib.locals[vreg] = v
	return true
}

func (ib *instructionBuilder) setWide(vreg uint32, v *Value) bool {
	if vreg+1 >= uint32(ib.graph.numVRegs) {
		return false
	}
	ib.locals[vreg] = v
	ib.locals[vreg+1] = nil
	return true
}

// recordEnv snapshots the live vreg state on a throwing instruction; the
// snapshot feeds deoptimization/exception state downstream.
func (ib *instructionBuilder) recordEnv(h *HIR) {
	h.env = append([]*Value(nil), ib.locals...)
}

func (ib *instructionBuilder) append(bb *BasicBlock, h *HIR, in dexInst) *HIR {
	h.dexOff = in.off
	if canThrow(in.op()) {
		ib.recordEnv(h)
	}
	bb.appendHIR(h)
	return h
}

// translate materializes one bytecode instruction. Returning false aborts
// the build with an invalid-bytecode outcome.
func (ib *instructionBuilder) translate(bb *BasicBlock, in dexInst) bool {
	op := in.op()
	if op != OpMoveResult && op != OpMoveResultWide && op != OpMoveResultObject {
		// Any intervening instruction invalidates a pending invoke result;
		// translateInvoke re-arms it after dispatch.
		ib.lastInvoke = nil
	}

	switch op {
	case OpNop:
		return true

	case OpMove, OpMoveObject:
		v := ib.getLocal(in.vB4())
		return v != nil && ib.setLocal(in.vA4(), v)
	case OpMoveFrom16, OpMoveObjectFrom16:
		v := ib.getLocal(in.vB16())
		return v != nil && ib.setLocal(in.vA8(), v)
	case OpMoveWide:
		v := ib.getWide(in.vB4())
		return v != nil && ib.setWide(in.vA4(), v)
	case OpMoveWideFrom16:
		v := ib.getWide(in.vB16())
		return v != nil && ib.setWide(in.vA8(), v)

	case OpMoveResult, OpMoveResultObject, OpMoveResultWide:
		return ib.translateMoveResult(op, in)

	case OpMoveException:
		if !bb.isCatchHandler {
			return false
		}
		h := ib.append(bb, newHIR(ib.graph.arena, HirMoveException, TypeReference), in)
		return ib.setLocal(in.vA8(), h.Result())

	case OpReturnVoid:
		if ib.sig.returnType() != TypeVoid {
			return false
		}
		ib.append(bb, newHIR(ib.graph.arena, HirReturnVoid, TypeVoid), in)
		return true
	case OpReturn, OpReturnWide, OpReturnObject:
		return ib.translateReturn(bb, op, in)

	case OpConst4:
		return ib.setLocal(in.vA4(), newConstValue(ib.graph.arena, uint64(int64(in.lit4())), false))
	case OpConst16:
		return ib.setLocal(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(in.lit16())), false))
	case OpConst:
		return ib.setLocal(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(in.lit32())), false))
	case OpConstHigh16:
		return ib.setLocal(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(int32(in.unit(1))<<16)), false))
	case OpConstWide16:
		return ib.setWide(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(in.lit16())), true))
	case OpConstWide32:
		return ib.setWide(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(in.lit32())), true))
	case OpConstWide:
		return ib.setWide(in.vA8(), newConstValue(ib.graph.arena, uint64(in.lit64()), true))
	case OpConstWideHigh16:
		return ib.setWide(in.vA8(), newConstValue(ib.graph.arena, uint64(int64(in.unit(1)))<<48, true))

	case OpConstString:
		if in.poolIndex() >= ib.resolver.StringPoolSize() {
			return false
		}
		h := newHIR(ib.graph.arena, HirLoadString, TypeReference)
		h.aux = uint64(in.poolIndex())
		ib.append(bb, h, in)
		return ib.setLocal(in.vA8(), h.Result())
	case OpConstClass:
		return ib.translateTypeOp(bb, in, HirLoadClass, in.vA8())

	case OpMonitorEnter, OpMonitorExit:
		v := ib.getLocal(in.vA8())
		if v == nil {
			return false
		}
		h := newHIR(ib.graph.arena, HirMonitorOp, TypeVoid, v)
		h.operandTypes = []ValueType{TypeReference}
		if op == OpMonitorExit {
			h.aux = 1
		}
		ib.append(bb, h, in)
		return true

	case OpCheckCast:
		if in.poolIndex() >= ib.resolver.TypePoolSize() {
			return false
		}
		v := ib.getLocal(in.vA8())
		if v == nil {
			return false
		}
		_, ok := ib.resolver.ResolveType(in.poolIndex())
		h := newHIR(ib.graph.arena, HirCheckCast, TypeVoid, v)
		h.operandTypes = []ValueType{TypeReference}
		h.aux = uint64(in.poolIndex())
		h.unresolved = !ok
		ib.append(bb, h, in)
		return true

	case OpInstanceOf:
		if in.poolIndex() >= ib.resolver.TypePoolSize() {
			return false
		}
		v := ib.getLocal(in.vB4())
		if v == nil {
			return false
		}
		_, ok := ib.resolver.ResolveType(in.poolIndex())
		h := newHIR(ib.graph.arena, HirInstanceOf, TypeInt, v)
		h.operandTypes = []ValueType{TypeReference}
		h.aux = uint64(in.poolIndex())
		h.unresolved = !ok
		ib.append(bb, h, in)
		return ib.setLocal(in.vA4(), h.Result())

	case OpArrayLength:
		v := ib.getLocal(in.vB4())
		if v == nil {
			return false
		}
		h := newHIR(ib.graph.arena, HirArrayLength, TypeInt, v)
		h.operandTypes = []ValueType{TypeReference}
		ib.append(bb, h, in)
		return ib.setLocal(in.vA4(), h.Result())

	case OpNewInstance:
		return ib.translateTypeOp(bb, in, HirNewInstance, in.vA8())

	case OpNewArray:
		if in.poolIndex() >= ib.resolver.TypePoolSize() {
			return false
		}
		size := ib.getLocal(in.vB4())
		if size == nil {
			return false
		}
		_, ok := ib.resolver.ResolveType(in.poolIndex())
		h := newHIR(ib.graph.arena, HirNewArray, TypeReference, size)
		h.operandTypes = []ValueType{TypeInt}
		h.aux = uint64(in.poolIndex())
		h.unresolved = !ok
		ib.append(bb, h, in)
		return ib.setLocal(in.vA4(), h.Result())

	case OpFillArrayData:
		arr := ib.getLocal(in.vA8())
		if arr == nil {
			return false
		}
		payOff := int64(in.off) + int64(in.branchOffset())
		if payOff < 0 || payOff >= int64(len(ib.code.Insns)) ||
			ib.code.Insns[payOff] != fillArrayDataIdent ||
			payloadSizeAt(ib.code.Insns, uint32(payOff)) == 0 {
			return false
		}
		h := newHIR(ib.graph.arena, HirFillArrayData, TypeVoid, arr)
		h.operandTypes = []ValueType{TypeReference}
		ib.append(bb, h, in)
		return true

	case OpThrow:
		v := ib.getLocal(in.vA8())
		if v == nil {
			return false
		}
		h := newHIR(ib.graph.arena, HirThrow, TypeVoid, v)
		h.operandTypes = []ValueType{TypeReference}
		ib.append(bb, h, in)
		return true

	case OpGoto, OpGoto16, OpGoto32:
		ib.append(bb, newHIR(ib.graph.arena, HirGoto, TypeVoid), in)
		return true

	case OpPackedSwitch, OpSparseSwitch:
		v := ib.getLocal(in.vA8())
		if v == nil {
			return false
		}
		h := newHIR(ib.graph.arena, HirPackedSwitch, TypeVoid, v)
		h.operandTypes = []ValueType{TypeInt}
		ib.append(bb, h, in)
		return true

	case OpCmplFloat, OpCmpgFloat:
		return ib.translateCompare(bb, in, TypeFloat)
	case OpCmplDouble, OpCmpgDouble:
		return ib.translateCompare(bb, in, TypeDouble)
	case OpCmpLong:
		return ib.translateCompare(bb, in, TypeLong)

	case OpIfEq, OpIfNe, OpIfLt, OpIfGe, OpIfGt, OpIfLe:
		a := ib.getLocal(in.vA4())
		b := ib.getLocal(in.vB4())
		if a == nil || b == nil {
			return false
		}
		ib.append(bb, newHIR(ib.graph.arena, HirIf, TypeVoid, a, b), in)
		return true
	case OpIfEqz, OpIfNez, OpIfLtz, OpIfGez, OpIfGtz, OpIfLez:
		a := ib.getLocal(in.vA8())
		if a == nil {
			return false
		}
		ib.append(bb, newHIR(ib.graph.arena, HirIf, TypeVoid, a), in)
		return true

	case OpAget, OpAgetWide, OpAgetObject, OpAgetBoolean, OpAgetByte, OpAgetChar, OpAgetShort:
		return ib.translateArrayGet(bb, op, in)
	case OpAput, OpAputWide, OpAputObject, OpAputBoolean, OpAputByte, OpAputChar, OpAputShort:
		return ib.translateArraySet(bb, op, in)

	case OpIget, OpIgetWide, OpIgetObject, OpIgetBoolean, OpIgetByte, OpIgetChar, OpIgetShort:
		return ib.translateInstanceFieldGet(bb, op, in)
	case OpIput, OpIputWide, OpIputObject, OpIputBoolean, OpIputByte, OpIputChar, OpIputShort:
		return ib.translateInstanceFieldSet(bb, op, in)
	case OpSget, OpSgetWide, OpSgetObject, OpSgetBoolean, OpSgetByte, OpSgetChar, OpSgetShort:
		return ib.translateStaticFieldGet(bb, op, in)
	case OpSput, OpSputWide, OpSputObject, OpSputBoolean, OpSputByte, OpSputChar, OpSputShort:
		return ib.translateStaticFieldSet(bb, op, in)

	case OpInvokeVirtual, OpInvokeSuper, OpInvokeDirect, OpInvokeStatic, OpInvokeInterface:
		return ib.translateInvoke(bb, in, false)
	case OpInvokeVirtualRange, OpInvokeSuperRange, OpInvokeDirectRange, OpInvokeStaticRange, OpInvokeInterfaceRange:
		return ib.translateInvoke(bb, in, true)

	default:
		if op >= OpNegInt && op <= OpIntToShort {
			return ib.translateUnop(bb, op, in)
		}
		if op >= OpAddInt && op <= OpRemDouble {
			return ib.translateBinop(bb, op, in)
		}
		if op >= OpAddInt2Addr && op <= OpRemDouble2Addr {
			return ib.translateBinop2Addr(bb, op, in)
		}
		if op >= OpAddIntLit16 && op <= OpUshrIntLit8 {
			return ib.translateBinopLit(bb, op, in)
		}
		return false
	}
}

func (ib *instructionBuilder) translateMoveResult(op DexOp, in dexInst) bool {
	if ib.lastInvoke == nil {
		return false
	}
	invoke := ib.lastInvoke
	ib.lastInvoke = nil

	var want ValueType
	switch op {
	case OpMoveResultWide:
		want = TypeAmbiguousWide
	case OpMoveResultObject:
		want = TypeReference
	default:
		want = TypeAmbiguous
	}
	v := invoke.Result()
	if v == nil {
		if !invoke.unresolved {
			// Resolved void method; moving its result is malformed.
			return false
		}
		v = invoke.ensureResult(ib.graph.arena, want)
	}
	if want.isWide() != v.typ.isWide() {
		return false
	}
	if want.isWide() {
		return ib.setWide(in.vA8(), v)
	}
	return ib.setLocal(in.vA8(), v)
}

func (ib *instructionBuilder) translateReturn(bb *BasicBlock, op DexOp, in dexInst) bool {
	rt := ib.sig.returnType()
	if rt == TypeVoid {
		return false
	}
	var v *Value
	if op == OpReturnWide {
		if !rt.isWide() {
			return false
		}
		v = ib.getWide(in.vA8())
	} else {
		if rt.isWide() {
			return false
		}
		v = ib.getLocal(in.vA8())
	}
	if v == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirReturn, TypeVoid, v)
	h.operandTypes = []ValueType{rt}
	ib.append(bb, h, in)
	return true
}

func (ib *instructionBuilder) translateTypeOp(bb *BasicBlock, in dexInst, hop HirOperation, dst uint32) bool {
	if in.poolIndex() >= ib.resolver.TypePoolSize() {
		return false
	}
	_, ok := ib.resolver.ResolveType(in.poolIndex())
	h := newHIR(ib.graph.arena, hop, TypeReference)
	h.aux = uint64(in.poolIndex())
	h.unresolved = !ok
	ib.append(bb, h, in)
	return ib.setLocal(dst, h.Result())
}

func (ib *instructionBuilder) translateCompare(bb *BasicBlock, in dexInst, operandType ValueType) bool {
	var a, b *Value
	if operandType.isWide() {
		a, b = ib.getWide(in.vB8()), ib.getWide(in.vC8())
	} else {
		a, b = ib.getLocal(in.vB8()), ib.getLocal(in.vC8())
	}
	if a == nil || b == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirCompare, TypeInt, a, b)
	h.operandTypes = []ValueType{operandType, operandType}
	ib.append(bb, h, in)
	return ib.setLocal(in.vA8(), h.Result())
}

// arrayVariantType maps an aget/aput variant to the element representation
// it implies; the plain variants stay ambiguous (int-or-float arrays share
// the encoding) and are resolved by use or declared width.
func arrayVariantType(op DexOp) ValueType {
	switch op {
	case OpAget, OpAput:
		return TypeAmbiguous
	case OpAgetWide, OpAputWide:
		return TypeAmbiguousWide
	case OpAgetObject, OpAputObject:
		return TypeReference
	default:
		return TypeInt
	}
}

func (ib *instructionBuilder) translateArrayGet(bb *BasicBlock, op DexOp, in dexInst) bool {
	arr := ib.getLocal(in.vB8())
	idx := ib.getLocal(in.vC8())
	if arr == nil || idx == nil {
		return false
	}
	elem := arrayVariantType(op)
	h := newHIR(ib.graph.arena, HirArrayGet, elem, arr, idx)
	h.operandTypes = []ValueType{TypeReference, TypeInt}
	ib.append(bb, h, in)
	if elem.isWide() {
		return ib.setWide(in.vA8(), h.Result())
	}
	return ib.setLocal(in.vA8(), h.Result())
}

func (ib *instructionBuilder) translateArraySet(bb *BasicBlock, op DexOp, in dexInst) bool {
	elem := arrayVariantType(op)
	var val *Value
	if elem.isWide() {
		val = ib.getWide(in.vA8())
	} else {
		val = ib.getLocal(in.vA8())
	}
	arr := ib.getLocal(in.vB8())
	idx := ib.getLocal(in.vC8())
	if val == nil || arr == nil || idx == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirArraySet, TypeVoid, arr, idx, val)
	h.operandTypes = []ValueType{TypeReference, TypeInt, elem}
	ib.append(bb, h, in)
	return true
}

// fieldVariantType mirrors arrayVariantType for the iget/iput/sget/sput
// families; the field descriptor overrides it when resolution succeeds.
func fieldVariantType(op DexOp) ValueType {
	switch op {
	case OpIget, OpIput, OpSget, OpSput:
		return TypeAmbiguous
	case OpIgetWide, OpIputWide, OpSgetWide, OpSputWide:
		return TypeAmbiguousWide
	case OpIgetObject, OpIputObject, OpSgetObject, OpSputObject:
		return TypeReference
	default:
		return TypeInt
	}
}

func (ib *instructionBuilder) resolveFieldType(op DexOp, idx uint32, isStatic bool) (ValueType, bool, bool) {
	if idx >= ib.resolver.FieldPoolSize() {
		return TypeVoid, false, false
	}
	fd, ok := ib.resolver.ResolveField(idx, isStatic)
	typ := fieldVariantType(op)
	if ok {
		typ = fd.Type
	}
	return typ, ok, true
}

func (ib *instructionBuilder) translateInstanceFieldGet(bb *BasicBlock, op DexOp, in dexInst) bool {
	typ, ok, inRange := ib.resolveFieldType(op, in.poolIndex(), false)
	if !inRange {
		return false
	}
	obj := ib.getLocal(in.vB4())
	if obj == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirInstanceFieldGet, typ, obj)
	h.operandTypes = []ValueType{TypeReference}
	h.aux = uint64(in.poolIndex())
	h.unresolved = !ok
	ib.append(bb, h, in)
	if typ.isWide() {
		return ib.setWide(in.vA4(), h.Result())
	}
	return ib.setLocal(in.vA4(), h.Result())
}

func (ib *instructionBuilder) translateInstanceFieldSet(bb *BasicBlock, op DexOp, in dexInst) bool {
	typ, ok, inRange := ib.resolveFieldType(op, in.poolIndex(), false)
	if !inRange {
		return false
	}
	var val *Value
	if typ.isWide() {
		val = ib.getWide(in.vA4())
	} else {
		val = ib.getLocal(in.vA4())
	}
	obj := ib.getLocal(in.vB4())
	if val == nil || obj == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirInstanceFieldSet, TypeVoid, obj, val)
	h.operandTypes = []ValueType{TypeReference, typ}
	h.aux = uint64(in.poolIndex())
	h.unresolved = !ok
	ib.append(bb, h, in)
	return true
}

func (ib *instructionBuilder) translateStaticFieldGet(bb *BasicBlock, op DexOp, in dexInst) bool {
	typ, ok, inRange := ib.resolveFieldType(op, in.poolIndex(), true)
	if !inRange {
		return false
	}
	h := newHIR(ib.graph.arena, HirStaticFieldGet, typ)
	h.aux = uint64(in.poolIndex())
	h.unresolved = !ok
	ib.append(bb, h, in)
	if typ.isWide() {
		return ib.setWide(in.vA8(), h.Result())
	}
	return ib.setLocal(in.vA8(), h.Result())
}

func (ib *instructionBuilder) translateStaticFieldSet(bb *BasicBlock, op DexOp, in dexInst) bool {
	typ, ok, inRange := ib.resolveFieldType(op, in.poolIndex(), true)
	if !inRange {
		return false
	}
	var val *Value
	if typ.isWide() {
		val = ib.getWide(in.vA8())
	} else {
		val = ib.getLocal(in.vA8())
	}
	if val == nil {
		return false
	}
	h := newHIR(ib.graph.arena, HirStaticFieldSet, TypeVoid, val)
	h.operandTypes = []ValueType{typ}
	h.aux = uint64(in.poolIndex())
	h.unresolved = !ok
	ib.append(bb, h, in)
	return true
}

// invokeArgRegs decodes the argument registers of a 35c or 3rc invoke.
func invokeArgRegs(in dexInst, isRange bool) []uint32 {
	if isRange {
		count := in.vA8()
		first := in.vC16()
		regs := make([]uint32, 0, count)
		for i := uint32(0); i < count; i++ {
			regs = append(regs, first+i)
		}
		return regs
	}
	count := uint32(in.unit(0) >> 12)
	if count > 5 {
		count = 5
	}
	all := []uint32{
		uint32(in.unit(2)) & 0xf,
		uint32(in.unit(2)>>4) & 0xf,
		uint32(in.unit(2)>>8) & 0xf,
		uint32(in.unit(2)>>12) & 0xf,
		uint32(in.unit(0)>>8) & 0xf,
	}
	return all[:count]
}

func (ib *instructionBuilder) translateInvoke(bb *BasicBlock, in dexInst, isRange bool) bool {
	methodIdx := in.vB16()
	if methodIdx >= ib.resolver.MethodPoolSize() {
		return false
	}
	md, ok := ib.resolver.ResolveMethod(methodIdx)
	regs := invokeArgRegs(in, isRange)

	var operands []*Value
	var operandTypes []ValueType
	if ok {
		// Walk the shorty; wide arguments consume a register pair.
		var wants []ValueType
		if !md.IsStatic {
			wants = append(wants, TypeReference)
		}
		for i := 1; i < len(md.Shorty); i++ {
			wants = append(wants, typeFromShorty(md.Shorty[i]))
		}
		r := 0
		for _, want := range wants {
			if r >= len(regs) {
				return false
			}
			var v *Value
			if want.isWide() {
				v = ib.getWide(regs[r])
				r += 2
			} else {
				v = ib.getLocal(regs[r])
				r++
			}
			if v == nil {
				return false
			}
			operands = append(operands, v)
			operandTypes = append(operandTypes, want)
		}
		if r != len(regs) {
			return false
		}
	} else {
		// Without a resolved signature the register list cannot be split
		// into typed arguments; take each defined register as-is.
		for _, reg := range regs {
			if v := ib.getLocal(reg); v != nil {
				operands = append(operands, v)
			}
		}
	}

	rt := TypeVoid
	if ok {
		rt = typeFromShorty(md.Shorty[0])
	}
	h := newHIR(ib.graph.arena, HirInvoke, rt, operands...)
	h.operandTypes = operandTypes
	h.aux = uint64(methodIdx)
	h.unresolved = !ok
	ib.append(bb, h, in)
	ib.lastInvoke = h
	return true
}

// unopSpec gives the HIR opcode, result type and source type of a 12x
// unary/conversion instruction.
func unopSpec(op DexOp) (HirOperation, ValueType, ValueType) {
	switch op {
	case OpNegInt:
		return HirNeg, TypeInt, TypeInt
	case OpNotInt:
		return HirNot, TypeInt, TypeInt
	case OpNegLong:
		return HirNeg, TypeLong, TypeLong
	case OpNotLong:
		return HirNot, TypeLong, TypeLong
	case OpNegFloat:
		return HirNeg, TypeFloat, TypeFloat
	case OpNegDouble:
		return HirNeg, TypeDouble, TypeDouble
	case OpIntToLong:
		return HirTypeConversion, TypeLong, TypeInt
	case OpIntToFloat:
		return HirTypeConversion, TypeFloat, TypeInt
	case OpIntToDouble:
		return HirTypeConversion, TypeDouble, TypeInt
	case OpLongToInt:
		return HirTypeConversion, TypeInt, TypeLong
	case OpLongToFloat:
		return HirTypeConversion, TypeFloat, TypeLong
	case OpLongToDouble:
		return HirTypeConversion, TypeDouble, TypeLong
	case OpFloatToInt:
		return HirTypeConversion, TypeInt, TypeFloat
	case OpFloatToLong:
		return HirTypeConversion, TypeLong, TypeFloat
	case OpFloatToDouble:
		return HirTypeConversion, TypeDouble, TypeFloat
	case OpDoubleToInt:
		return HirTypeConversion, TypeInt, TypeDouble
	case OpDoubleToLong:
		return HirTypeConversion, TypeLong, TypeDouble
	case OpDoubleToFloat:
		return HirTypeConversion, TypeFloat, TypeDouble
	default: // int-to-byte/char/short
		return HirTypeConversion, TypeInt, TypeInt
	}
}

func (ib *instructionBuilder) translateUnop(bb *BasicBlock, op DexOp, in dexInst) bool {
	hop, rt, st := unopSpec(op)
	var src *Value
	if st.isWide() {
		src = ib.getWide(in.vB4())
	} else {
		src = ib.getLocal(in.vB4())
	}
	if src == nil {
		return false
	}
	h := newHIR(ib.graph.arena, hop, rt, src)
	h.operandTypes = []ValueType{st}
	ib.append(bb, h, in)
	if rt.isWide() {
		return ib.setWide(in.vA4(), h.Result())
	}
	return ib.setLocal(in.vA4(), h.Result())
}

// binopSpec maps a 23x/2addr arithmetic opcode to its HIR opcode and
// operand class. The shift amount of long shifts is a narrow int.
func binopSpec(op DexOp) (HirOperation, ValueType, bool) {
	// Normalize 2addr opcodes onto the 23x table.
	if op >= OpAddInt2Addr && op <= OpRemDouble2Addr {
		op = op - OpAddInt2Addr + OpAddInt
	}
	var hop HirOperation
	var typ ValueType
	switch {
	case op >= OpAddInt && op <= OpUshrInt:
		hop = [...]HirOperation{HirAdd, HirSub, HirMul, HirDiv, HirRem, HirAnd, HirOr, HirXor, HirShl, HirShr, HirUshr}[op-OpAddInt]
		typ = TypeInt
	case op >= OpAddLong && op <= OpUshrLong:
		hop = [...]HirOperation{HirAdd, HirSub, HirMul, HirDiv, HirRem, HirAnd, HirOr, HirXor, HirShl, HirShr, HirUshr}[op-OpAddLong]
		typ = TypeLong
	case op >= OpAddFloat && op <= OpRemFloat:
		hop = [...]HirOperation{HirAdd, HirSub, HirMul, HirDiv, HirRem}[op-OpAddFloat]
		typ = TypeFloat
	default:
		hop = [...]HirOperation{HirAdd, HirSub, HirMul, HirDiv, HirRem}[op-OpAddDouble]
		typ = TypeDouble
	}
	isShift := hop == HirShl || hop == HirShr || hop == HirUshr
	return hop, typ, isShift
}

func (ib *instructionBuilder) buildBinop(bb *BasicBlock, in dexInst, op DexOp, dst uint32, a, b *Value) bool {
	if a == nil || b == nil {
		return false
	}
	hop, typ, isShift := binopSpec(op)
	h := newHIR(ib.graph.arena, hop, typ, a, b)
	rhs := typ
	if isShift {
		rhs = TypeInt
	}
	h.operandTypes = []ValueType{typ, rhs}
	ib.append(bb, h, in)
	if typ.isWide() {
		return ib.setWide(dst, h.Result())
	}
	return ib.setLocal(dst, h.Result())
}

func (ib *instructionBuilder) translateBinop(bb *BasicBlock, op DexOp, in dexInst) bool {
	_, typ, isShift := binopSpec(op)
	var a, b *Value
	if typ.isWide() {
		a = ib.getWide(in.vB8())
		if isShift {
			b = ib.getLocal(in.vC8())
		} else {
			b = ib.getWide(in.vC8())
		}
	} else {
		a = ib.getLocal(in.vB8())
		b = ib.getLocal(in.vC8())
	}
	return ib.buildBinop(bb, in, op, in.vA8(), a, b)
}

func (ib *instructionBuilder) translateBinop2Addr(bb *BasicBlock, op DexOp, in dexInst) bool {
	_, typ, isShift := binopSpec(op)
	var a, b *Value
	if typ.isWide() {
		a = ib.getWide(in.vA4())
		if isShift {
			b = ib.getLocal(in.vB4())
		} else {
			b = ib.getWide(in.vB4())
		}
	} else {
		a = ib.getLocal(in.vA4())
		b = ib.getLocal(in.vB4())
	}
	return ib.buildBinop(bb, in, op, in.vA4(), a, b)
}

// litBinopSpec maps the int-only literal forms. rsub reverses the operand
// order: dst = literal - src.
func litBinopSpec(op DexOp) (HirOperation, bool) {
	switch op {
	case OpAddIntLit16, OpAddIntLit8:
		return HirAdd, false
	case OpRsubInt, OpRsubIntLit8:
		return HirSub, true
	case OpMulIntLit16, OpMulIntLit8:
		return HirMul, false
	case OpDivIntLit16, OpDivIntLit8:
		return HirDiv, false
	case OpRemIntLit16, OpRemIntLit8:
		return HirRem, false
	case OpAndIntLit16, OpAndIntLit8:
		return HirAnd, false
	case OpOrIntLit16, OpOrIntLit8:
		return HirOr, false
	case OpXorIntLit16, OpXorIntLit8:
		return HirXor, false
	case OpShlIntLit8:
		return HirShl, false
	case OpShrIntLit8:
		return HirShr, false
	default: // ushr-int/lit8
		return HirUshr, false
	}
}

func (ib *instructionBuilder) translateBinopLit(bb *BasicBlock, op DexOp, in dexInst) bool {
	hop, reversed := litBinopSpec(op)

	var dst uint32
	var src *Value
	var lit int32
	if op <= OpXorIntLit16 {
		dst, src, lit = in.vA4(), ib.getLocal(in.vB4()), in.lit16()
	} else {
		dst, src, lit = in.vA8(), ib.getLocal(in.vB8()), in.lit8()
	}
	if src == nil {
		return false
	}
	c := newConstValue(ib.graph.arena, uint64(int64(lit)), false)
	c.typ = TypeInt

	a, b := src, c
	if reversed {
		a, b = c, src
	}
	h := newHIR(ib.graph.arena, hop, TypeInt, a, b)
	h.operandTypes = []ValueType{TypeInt, TypeInt}
	ib.append(bb, h, in)
	return ib.setLocal(dst, h.Result())
}

// buildIntrinsic materializes the fixed skeleton of a method with no
// bytecode: parameters in the entry block, one invoke plus the return in
// the body. Argument vregs are assigned left to right from zero; the two
// highest-numbered vregs stay reserved for the return value regardless of
// its type.
func (ib *instructionBuilder) buildIntrinsic() {
	entry := ib.graph.entryBlock
	body := entry.succs[0]

	ib.locals = make([]*Value, ib.graph.numVRegs)
	cur := uint32(0)
	idx := uint64(0)
	var args []*Value
	var argTypes []ValueType

	addParam := func(typ ValueType) {
		h := newHIR(ib.graph.arena, HirParameterValue, typ)
		h.aux = idx
		idx++
		entry.appendHIR(h)
		ib.setLocal(cur, h.Result())
		args = append(args, h.Result())
		argTypes = append(argTypes, typ)
		if typ.isWide() {
			cur += 2
		} else {
			cur++
		}
	}

	if !ib.sig.IsStatic {
		addParam(TypeReference)
	}
	for i := 1; i < len(ib.sig.Shorty); i++ {
		addParam(typeFromShorty(ib.sig.Shorty[i]))
	}
	entry.localsOut = append([]*Value(nil), ib.locals...)

	rt := ib.sig.returnType()
	invoke := newHIR(ib.graph.arena, HirInvoke, rt, args...)
	invoke.operandTypes = argTypes
	body.appendHIR(invoke)
	if rt == TypeVoid {
		body.appendHIR(newHIR(ib.graph.arena, HirReturnVoid, TypeVoid))
	} else {
		ret := newHIR(ib.graph.arena, HirReturn, TypeVoid, invoke.Result())
		ret.operandTypes = []ValueType{rt}
		body.appendHIR(ret)
	}
	body.localsOut = append([]*Value(nil), ib.locals...)
}
