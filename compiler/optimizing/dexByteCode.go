package optimizing

// Dex bytecode is a stream of 16-bit code units. The low byte of the first
// code unit of every instruction is the opcode; the remaining bits and the
// following code units are operands, laid out according to the opcode's
// format. This file knows the formats of the subset of the instruction set
// the graph builder consumes: sizes, register accessors, branch targets and
// the can-throw classification.

type DexOp byte

const (
	OpNop DexOp = 0x00

	OpMove             DexOp = 0x01
	OpMoveFrom16       DexOp = 0x02
	OpMoveWide         DexOp = 0x04
	OpMoveWideFrom16   DexOp = 0x05
	OpMoveObject       DexOp = 0x07
	OpMoveObjectFrom16 DexOp = 0x08

	OpMoveResult       DexOp = 0x0a
	OpMoveResultWide   DexOp = 0x0b
	OpMoveResultObject DexOp = 0x0c
	OpMoveException    DexOp = 0x0d

	OpReturnVoid   DexOp = 0x0e
	OpReturn       DexOp = 0x0f
	OpReturnWide   DexOp = 0x10
	OpReturnObject DexOp = 0x11

	OpConst4          DexOp = 0x12
	OpConst16         DexOp = 0x13
	OpConst           DexOp = 0x14
	OpConstHigh16     DexOp = 0x15
	OpConstWide16     DexOp = 0x16
	OpConstWide32     DexOp = 0x17
	OpConstWide       DexOp = 0x18
	OpConstWideHigh16 DexOp = 0x19
	OpConstString     DexOp = 0x1a
	OpConstClass      DexOp = 0x1c

	OpMonitorEnter DexOp = 0x1d
	OpMonitorExit  DexOp = 0x1e

	OpCheckCast   DexOp = 0x1f
	OpInstanceOf  DexOp = 0x20
	OpArrayLength DexOp = 0x21
	OpNewInstance DexOp = 0x22
	OpNewArray    DexOp = 0x23

	OpFillArrayData DexOp = 0x26
	OpThrow         DexOp = 0x27
	OpGoto          DexOp = 0x28
	OpGoto16        DexOp = 0x29
	OpGoto32        DexOp = 0x2a
	OpPackedSwitch  DexOp = 0x2b
	OpSparseSwitch  DexOp = 0x2c

	OpCmplFloat  DexOp = 0x2d
	OpCmpgFloat  DexOp = 0x2e
	OpCmplDouble DexOp = 0x2f
	OpCmpgDouble DexOp = 0x30
	OpCmpLong    DexOp = 0x31

	OpIfEq DexOp = 0x32
	OpIfNe DexOp = 0x33
	OpIfLt DexOp = 0x34
	OpIfGe DexOp = 0x35
	OpIfGt DexOp = 0x36
	OpIfLe DexOp = 0x37

	OpIfEqz DexOp = 0x38
	OpIfNez DexOp = 0x39
	OpIfLtz DexOp = 0x3a
	OpIfGez DexOp = 0x3b
	OpIfGtz DexOp = 0x3c
	OpIfLez DexOp = 0x3d

	OpAget        DexOp = 0x44
	OpAgetWide    DexOp = 0x45
	OpAgetObject  DexOp = 0x46
	OpAgetBoolean DexOp = 0x47
	OpAgetByte    DexOp = 0x48
	OpAgetChar    DexOp = 0x49
	OpAgetShort   DexOp = 0x4a
	OpAput        DexOp = 0x4b
	OpAputWide    DexOp = 0x4c
	OpAputObject  DexOp = 0x4d
	OpAputBoolean DexOp = 0x4e
	OpAputByte    DexOp = 0x4f
	OpAputChar    DexOp = 0x50
	OpAputShort   DexOp = 0x51

	OpIget        DexOp = 0x52
	OpIgetWide    DexOp = 0x53
	OpIgetObject  DexOp = 0x54
	OpIgetBoolean DexOp = 0x55
	OpIgetByte    DexOp = 0x56
	OpIgetChar    DexOp = 0x57
	OpIgetShort   DexOp = 0x58
	OpIput        DexOp = 0x59
	OpIputWide    DexOp = 0x5a
	OpIputObject  DexOp = 0x5b
	OpIputBoolean DexOp = 0x5c
	OpIputByte    DexOp = 0x5d
	OpIputChar    DexOp = 0x5e
	OpIputShort   DexOp = 0x5f

	OpSget        DexOp = 0x60
	OpSgetWide    DexOp = 0x61
	OpSgetObject  DexOp = 0x62
	OpSgetBoolean DexOp = 0x63
	OpSgetByte    DexOp = 0x64
	OpSgetChar    DexOp = 0x65
	OpSgetShort   DexOp = 0x66
	OpSput        DexOp = 0x67
	OpSputWide    DexOp = 0x68
	OpSputObject  DexOp = 0x69
	OpSputBoolean DexOp = 0x6a
	OpSputByte    DexOp = 0x6b
	OpSputChar    DexOp = 0x6c
	OpSputShort   DexOp = 0x6d

	OpInvokeVirtual   DexOp = 0x6e
	OpInvokeSuper     DexOp = 0x6f
	OpInvokeDirect    DexOp = 0x70
	OpInvokeStatic    DexOp = 0x71
	OpInvokeInterface DexOp = 0x72

	OpInvokeVirtualRange   DexOp = 0x74
	OpInvokeSuperRange     DexOp = 0x75
	OpInvokeDirectRange    DexOp = 0x76
	OpInvokeStaticRange    DexOp = 0x77
	OpInvokeInterfaceRange DexOp = 0x78

	OpNegInt    DexOp = 0x7b
	OpNotInt    DexOp = 0x7c
	OpNegLong   DexOp = 0x7d
	OpNotLong   DexOp = 0x7e
	OpNegFloat  DexOp = 0x7f
	OpNegDouble DexOp = 0x80

	OpIntToLong     DexOp = 0x81
	OpIntToFloat    DexOp = 0x82
	OpIntToDouble   DexOp = 0x83
	OpLongToInt     DexOp = 0x84
	OpLongToFloat   DexOp = 0x85
	OpLongToDouble  DexOp = 0x86
	OpFloatToInt    DexOp = 0x87
	OpFloatToLong   DexOp = 0x88
	OpFloatToDouble DexOp = 0x89
	OpDoubleToInt   DexOp = 0x8a
	OpDoubleToLong  DexOp = 0x8b
	OpDoubleToFloat DexOp = 0x8c
	OpIntToByte     DexOp = 0x8d
	OpIntToChar     DexOp = 0x8e
	OpIntToShort    DexOp = 0x8f

	OpAddInt DexOp = 0x90
	OpSubInt DexOp = 0x91
	OpMulInt DexOp = 0x92
	OpDivInt DexOp = 0x93
	OpRemInt DexOp = 0x94
	OpAndInt DexOp = 0x95
	OpOrInt  DexOp = 0x96
	OpXorInt DexOp = 0x97
	OpShlInt DexOp = 0x98
	OpShrInt DexOp = 0x99
	OpUshrInt DexOp = 0x9a

	OpAddLong DexOp = 0x9b
	OpSubLong DexOp = 0x9c
	OpMulLong DexOp = 0x9d
	OpDivLong DexOp = 0x9e
	OpRemLong DexOp = 0x9f
	OpAndLong DexOp = 0xa0
	OpOrLong  DexOp = 0xa1
	OpXorLong DexOp = 0xa2
	OpShlLong DexOp = 0xa3
	OpShrLong DexOp = 0xa4
	OpUshrLong DexOp = 0xa5

	OpAddFloat DexOp = 0xa6
	OpSubFloat DexOp = 0xa7
	OpMulFloat DexOp = 0xa8
	OpDivFloat DexOp = 0xa9
	OpRemFloat DexOp = 0xaa

	OpAddDouble DexOp = 0xab
	OpSubDouble DexOp = 0xac
	OpMulDouble DexOp = 0xad
	OpDivDouble DexOp = 0xae
	OpRemDouble DexOp = 0xaf

	OpAddInt2Addr DexOp = 0xb0
	OpSubInt2Addr DexOp = 0xb1
	OpMulInt2Addr DexOp = 0xb2
	OpDivInt2Addr DexOp = 0xb3
	OpRemInt2Addr DexOp = 0xb4
	OpAndInt2Addr DexOp = 0xb5
	OpOrInt2Addr  DexOp = 0xb6
	OpXorInt2Addr DexOp = 0xb7
	OpShlInt2Addr DexOp = 0xb8
	OpShrInt2Addr DexOp = 0xb9
	OpUshrInt2Addr DexOp = 0xba

	OpAddLong2Addr DexOp = 0xbb
	OpSubLong2Addr DexOp = 0xbc
	OpMulLong2Addr DexOp = 0xbd
	OpDivLong2Addr DexOp = 0xbe
	OpRemLong2Addr DexOp = 0xbf
	OpAndLong2Addr DexOp = 0xc0
	OpOrLong2Addr  DexOp = 0xc1
	OpXorLong2Addr DexOp = 0xc2
	OpShlLong2Addr DexOp = 0xc3
	OpShrLong2Addr DexOp = 0xc4
	OpUshrLong2Addr DexOp = 0xc5

	OpAddFloat2Addr DexOp = 0xc6
	OpSubFloat2Addr DexOp = 0xc7
	OpMulFloat2Addr DexOp = 0xc8
	OpDivFloat2Addr DexOp = 0xc9
	OpRemFloat2Addr DexOp = 0xca

	OpAddDouble2Addr DexOp = 0xcb
	OpSubDouble2Addr DexOp = 0xcc
	OpMulDouble2Addr DexOp = 0xcd
	OpDivDouble2Addr DexOp = 0xce
	OpRemDouble2Addr DexOp = 0xcf

	OpAddIntLit16 DexOp = 0xd0
	OpRsubInt     DexOp = 0xd1
	OpMulIntLit16 DexOp = 0xd2
	OpDivIntLit16 DexOp = 0xd3
	OpRemIntLit16 DexOp = 0xd4
	OpAndIntLit16 DexOp = 0xd5
	OpOrIntLit16  DexOp = 0xd6
	OpXorIntLit16 DexOp = 0xd7

	OpAddIntLit8 DexOp = 0xd8
	OpRsubIntLit8 DexOp = 0xd9
	OpMulIntLit8 DexOp = 0xda
	OpDivIntLit8 DexOp = 0xdb
	OpRemIntLit8 DexOp = 0xdc
	OpAndIntLit8 DexOp = 0xdd
	OpOrIntLit8  DexOp = 0xde
	OpXorIntLit8 DexOp = 0xdf
	OpShlIntLit8 DexOp = 0xe0
	OpShrIntLit8 DexOp = 0xe1
	OpUshrIntLit8 DexOp = 0xe2
)

// Pseudo-instruction idents stored in the code unit following an OpNop
// opcode byte. Payloads are data, not executable instructions.
const (
	packedSwitchIdent  uint16 = 0x0100
	sparseSwitchIdent  uint16 = 0x0200
	fillArrayDataIdent uint16 = 0x0300
)

// dexInst is a decoded view of one instruction at a fixed offset within an
// instruction stream. Offsets and sizes are in 16-bit code units.
type dexInst struct {
	insns []uint16
	off   uint32
}

func (in dexInst) op() DexOp {
	return DexOp(in.insns[in.off] & 0xff)
}

func (in dexInst) unit(k uint32) uint16 {
	return in.insns[in.off+k]
}

// vA returns the 4-bit A register (bits 8-11 of the first code unit).
func (in dexInst) vA4() uint32 { return uint32(in.unit(0)>>8) & 0xf }

// vB4 returns the 4-bit B register (bits 12-15 of the first code unit).
func (in dexInst) vB4() uint32 { return uint32(in.unit(0)>>12) & 0xf }

// vA8 returns the 8-bit A register (bits 8-15 of the first code unit).
func (in dexInst) vA8() uint32 { return uint32(in.unit(0) >> 8) }

func (in dexInst) vB16() uint32 { return uint32(in.unit(1)) }
func (in dexInst) vC16() uint32 { return uint32(in.unit(2)) }

// vB8/vC8 return the B and C registers of a 23x instruction (second code
// unit, low and high byte).
func (in dexInst) vB8() uint32 { return uint32(in.unit(1) & 0xff) }
func (in dexInst) vC8() uint32 { return uint32(in.unit(1) >> 8) }

// lit4 returns the signed 4-bit literal of an 11n instruction.
func (in dexInst) lit4() int32 {
	return int32(in.unit(0)) << 16 >> 28
}

// lit16 returns the signed 16-bit literal in the second code unit.
func (in dexInst) lit16() int32 {
	return int32(int16(in.unit(1)))
}

// lit8 returns the signed 8-bit literal of a 22b instruction.
func (in dexInst) lit8() int32 {
	return int32(int8(in.unit(1) >> 8))
}

// lit32 returns the 32-bit literal spanning code units 1-2.
func (in dexInst) lit32() int32 {
	return int32(uint32(in.unit(1)) | uint32(in.unit(2))<<16)
}

// lit64 returns the 64-bit literal spanning code units 1-4.
func (in dexInst) lit64() int64 {
	return int64(uint64(in.unit(1)) | uint64(in.unit(2))<<16 |
		uint64(in.unit(3))<<32 | uint64(in.unit(4))<<48)
}

// poolIndex returns the 16-bit constant pool index of 21c/22c instructions.
func (in dexInst) poolIndex() uint32 { return uint32(in.unit(1)) }

// branchOffset returns the signed branch offset in code units, relative to
// the instruction's own offset. Valid for 10t/20t/30t/21t/22t/31t formats.
func (in dexInst) branchOffset() int32 {
	switch in.op() {
	case OpGoto:
		return int32(int8(in.unit(0) >> 8))
	case OpGoto16:
		return int32(int16(in.unit(1)))
	case OpGoto32, OpPackedSwitch, OpSparseSwitch, OpFillArrayData:
		return int32(uint32(in.unit(1)) | uint32(in.unit(2))<<16)
	default:
		// 21t / 22t conditional branches
		return int32(int16(in.unit(1)))
	}
}

// sizeInCodeUnits returns the instruction's size, or 0 when the opcode is
// unknown or the stream is truncated at this instruction.
func (in dexInst) sizeInCodeUnits() uint32 {
	avail := uint32(len(in.insns)) - in.off
	op := in.op()

	if op == OpNop {
		if isPayloadIdent(in.unit(0)) {
			return payloadSizeAt(in.insns, in.off)
		}
		if in.unit(0)>>8 != 0 {
			return 0
		}
		return 1
	}
	size := dexOpSize[op]
	if size == 0 || size > avail {
		return 0
	}
	return size
}

// payloadSizeAt returns the size of a switch/fill-array payload starting at
// off, or 0 when malformed. Payloads begin with their ident code unit.
func payloadSizeAt(insns []uint16, off uint32) uint32 {
	avail := uint32(len(insns)) - off
	if avail < 2 {
		return 0
	}
	switch insns[off] {
	case packedSwitchIdent:
		// ident, size, first_key(2), size targets(2 each)
		n := uint32(insns[off+1])
		total := 4 + n*2
		if total > avail {
			return 0
		}
		return total
	case sparseSwitchIdent:
		// ident, size, size keys(2 each), size targets(2 each)
		n := uint32(insns[off+1])
		total := 2 + n*4
		if total > avail {
			return 0
		}
		return total
	case fillArrayDataIdent:
		if avail < 4 {
			return 0
		}
		width := uint32(insns[off+1])
		count := uint32(insns[off+2]) | uint32(insns[off+3])<<16
		total := 4 + (width*count+1)/2
		if total > avail {
			return 0
		}
		return total
	}
	return 0
}

// isPayloadIdent reports whether the code unit at off is a pseudo-instruction
// payload rather than an executable nop.
func isPayloadIdent(unit uint16) bool {
	return unit == packedSwitchIdent || unit == sparseSwitchIdent || unit == fillArrayDataIdent
}

// dexOpSize maps opcode to size in code units for fixed-size formats.
// Zero means the opcode is not part of the supported set.
var dexOpSize = [256]uint32{
	OpNop: 1,

	OpMove: 1, OpMoveFrom16: 2,
	OpMoveWide: 1, OpMoveWideFrom16: 2,
	OpMoveObject: 1, OpMoveObjectFrom16: 2,

	OpMoveResult: 1, OpMoveResultWide: 1, OpMoveResultObject: 1, OpMoveException: 1,

	OpReturnVoid: 1, OpReturn: 1, OpReturnWide: 1, OpReturnObject: 1,

	OpConst4: 1, OpConst16: 2, OpConst: 3, OpConstHigh16: 2,
	OpConstWide16: 2, OpConstWide32: 3, OpConstWide: 5, OpConstWideHigh16: 2,
	OpConstString: 2, OpConstClass: 2,

	OpMonitorEnter: 1, OpMonitorExit: 1,

	OpCheckCast: 2, OpInstanceOf: 2, OpArrayLength: 1,
	OpNewInstance: 2, OpNewArray: 2,

	OpFillArrayData: 3, OpThrow: 1,
	OpGoto: 1, OpGoto16: 2, OpGoto32: 3,
	OpPackedSwitch: 3, OpSparseSwitch: 3,

	OpCmplFloat: 2, OpCmpgFloat: 2, OpCmplDouble: 2, OpCmpgDouble: 2, OpCmpLong: 2,

	OpIfEq: 2, OpIfNe: 2, OpIfLt: 2, OpIfGe: 2, OpIfGt: 2, OpIfLe: 2,
	OpIfEqz: 2, OpIfNez: 2, OpIfLtz: 2, OpIfGez: 2, OpIfGtz: 2, OpIfLez: 2,

	OpAget: 2, OpAgetWide: 2, OpAgetObject: 2, OpAgetBoolean: 2,
	OpAgetByte: 2, OpAgetChar: 2, OpAgetShort: 2,
	OpAput: 2, OpAputWide: 2, OpAputObject: 2, OpAputBoolean: 2,
	OpAputByte: 2, OpAputChar: 2, OpAputShort: 2,

	OpIget: 2, OpIgetWide: 2, OpIgetObject: 2, OpIgetBoolean: 2,
	OpIgetByte: 2, OpIgetChar: 2, OpIgetShort: 2,
	OpIput: 2, OpIputWide: 2, OpIputObject: 2, OpIputBoolean: 2,
	OpIputByte: 2, OpIputChar: 2, OpIputShort: 2,

	OpSget: 2, OpSgetWide: 2, OpSgetObject: 2, OpSgetBoolean: 2,
	OpSgetByte: 2, OpSgetChar: 2, OpSgetShort: 2,
	OpSput: 2, OpSputWide: 2, OpSputObject: 2, OpSputBoolean: 2,
	OpSputByte: 2, OpSputChar: 2, OpSputShort: 2,

	OpInvokeVirtual: 3, OpInvokeSuper: 3, OpInvokeDirect: 3,
	OpInvokeStatic: 3, OpInvokeInterface: 3,
	OpInvokeVirtualRange: 3, OpInvokeSuperRange: 3, OpInvokeDirectRange: 3,
	OpInvokeStaticRange: 3, OpInvokeInterfaceRange: 3,

	OpNegInt: 1, OpNotInt: 1, OpNegLong: 1, OpNotLong: 1,
	OpNegFloat: 1, OpNegDouble: 1,
	OpIntToLong: 1, OpIntToFloat: 1, OpIntToDouble: 1,
	OpLongToInt: 1, OpLongToFloat: 1, OpLongToDouble: 1,
	OpFloatToInt: 1, OpFloatToLong: 1, OpFloatToDouble: 1,
	OpDoubleToInt: 1, OpDoubleToLong: 1, OpDoubleToFloat: 1,
	OpIntToByte: 1, OpIntToChar: 1, OpIntToShort: 1,

	OpAddInt: 2, OpSubInt: 2, OpMulInt: 2, OpDivInt: 2, OpRemInt: 2,
	OpAndInt: 2, OpOrInt: 2, OpXorInt: 2, OpShlInt: 2, OpShrInt: 2, OpUshrInt: 2,
	OpAddLong: 2, OpSubLong: 2, OpMulLong: 2, OpDivLong: 2, OpRemLong: 2,
	OpAndLong: 2, OpOrLong: 2, OpXorLong: 2, OpShlLong: 2, OpShrLong: 2, OpUshrLong: 2,
	OpAddFloat: 2, OpSubFloat: 2, OpMulFloat: 2, OpDivFloat: 2, OpRemFloat: 2,
	OpAddDouble: 2, OpSubDouble: 2, OpMulDouble: 2, OpDivDouble: 2, OpRemDouble: 2,

	OpAddInt2Addr: 1, OpSubInt2Addr: 1, OpMulInt2Addr: 1, OpDivInt2Addr: 1,
	OpRemInt2Addr: 1, OpAndInt2Addr: 1, OpOrInt2Addr: 1, OpXorInt2Addr: 1,
	OpShlInt2Addr: 1, OpShrInt2Addr: 1, OpUshrInt2Addr: 1,
	OpAddLong2Addr: 1, OpSubLong2Addr: 1, OpMulLong2Addr: 1, OpDivLong2Addr: 1,
	OpRemLong2Addr: 1, OpAndLong2Addr: 1, OpOrLong2Addr: 1, OpXorLong2Addr: 1,
	OpShlLong2Addr: 1, OpShrLong2Addr: 1, OpUshrLong2Addr: 1,
	OpAddFloat2Addr: 1, OpSubFloat2Addr: 1, OpMulFloat2Addr: 1, OpDivFloat2Addr: 1,
	OpRemFloat2Addr: 1,
	OpAddDouble2Addr: 1, OpSubDouble2Addr: 1, OpMulDouble2Addr: 1, OpDivDouble2Addr: 1,
	OpRemDouble2Addr: 1,

	OpAddIntLit16: 2, OpRsubInt: 2, OpMulIntLit16: 2, OpDivIntLit16: 2,
	OpRemIntLit16: 2, OpAndIntLit16: 2, OpOrIntLit16: 2, OpXorIntLit16: 2,

	OpAddIntLit8: 2, OpRsubIntLit8: 2, OpMulIntLit8: 2, OpDivIntLit8: 2,
	OpRemIntLit8: 2, OpAndIntLit8: 2, OpOrIntLit8: 2, OpXorIntLit8: 2,
	OpShlIntLit8: 2, OpShrIntLit8: 2, OpUshrIntLit8: 2,
}

func isUnconditionalBranch(op DexOp) bool {
	return op == OpGoto || op == OpGoto16 || op == OpGoto32
}

func isConditionalBranch(op DexOp) bool {
	return op >= OpIfEq && op <= OpIfLez
}

func isSwitch(op DexOp) bool {
	return op == OpPackedSwitch || op == OpSparseSwitch
}

func isReturn(op DexOp) bool {
	return op >= OpReturnVoid && op <= OpReturnObject
}

// terminatesBlock reports whether control never falls through this opcode.
func terminatesBlock(op DexOp) bool {
	return isUnconditionalBranch(op) || isReturn(op) || op == OpThrow
}

// endsBlock reports whether the instruction after this one starts a new
// basic block.
func endsBlock(op DexOp) bool {
	return terminatesBlock(op) || isConditionalBranch(op) || isSwitch(op)
}

// canThrow reports whether the instruction may raise an exception, which
// adds edges to the enclosing try region's handlers.
func canThrow(op DexOp) bool {
	switch {
	case op >= OpInvokeVirtual && op <= OpInvokeInterface:
		return true
	case op >= OpInvokeVirtualRange && op <= OpInvokeInterfaceRange:
		return true
	case op >= OpAget && op <= OpAputShort:
		return true
	case op >= OpIget && op <= OpSputShort:
		return true
	case op == OpDivInt || op == OpRemInt || op == OpDivLong || op == OpRemLong ||
		op == OpDivInt2Addr || op == OpRemInt2Addr || op == OpDivLong2Addr || op == OpRemLong2Addr ||
		op == OpDivIntLit16 || op == OpRemIntLit16 || op == OpDivIntLit8 || op == OpRemIntLit8:
		return true
	case op == OpCheckCast || op == OpNewInstance || op == OpNewArray ||
		op == OpConstString || op == OpConstClass || op == OpArrayLength ||
		op == OpThrow || op == OpMonitorEnter || op == OpMonitorExit ||
		op == OpFillArrayData || op == OpInstanceOf:
		return true
	}
	return false
}

// switchTargets decodes the target offsets of a packed/sparse switch
// instruction at off, in payload table order. Returns nil when the payload
// is out of range or malformed.
func switchTargets(insns []uint16, off uint32) []uint32 {
	in := dexInst{insns: insns, off: off}
	rel := in.branchOffset()
	payOff := int64(off) + int64(rel)
	if payOff < 0 || payOff >= int64(len(insns)) {
		return nil
	}
	p := uint32(payOff)
	if payloadSizeAt(insns, p) == 0 {
		return nil
	}
	var targets []uint32
	switch insns[p] {
	case packedSwitchIdent:
		n := uint32(insns[p+1])
		for i := uint32(0); i < n; i++ {
			t := int64(off) + int64(int32(uint32(insns[p+4+i*2])|uint32(insns[p+5+i*2])<<16))
			if t < 0 {
				return nil
			}
			targets = append(targets, uint32(t))
		}
	case sparseSwitchIdent:
		n := uint32(insns[p+1])
		base := p + 2 + n*2
		for i := uint32(0); i < n; i++ {
			t := int64(off) + int64(int32(uint32(insns[base+i*2])|uint32(insns[base+1+i*2])<<16))
			if t < 0 {
				return nil
			}
			targets = append(targets, uint32(t))
		}
	default:
		return nil
	}
	return targets
}
