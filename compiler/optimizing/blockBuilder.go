package optimizing

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// blockBuilder partitions a method's instruction stream into the basic
// block skeleton: blocks in address order plus the synthetic entry, exit
// and try-boundary blocks, with all control-flow and exception edges.
// It fails (returns false) on any malformed input: truncated instructions,
// branch targets out of range or landing mid-instruction, or a structurally
// inconsistent try table.
type blockBuilder struct {
	graph *Graph
	code  *CodeItemAccessor

	// Instruction start offsets, used to reject mid-instruction targets.
	boundary bitmap
	seeded   bool

	offToBlock map[uint32]*BasicBlock
}

func newBlockBuilder(g *Graph, code *CodeItemAccessor) *blockBuilder {
	return &blockBuilder{
		graph:      g,
		code:       code,
		offToBlock: make(map[uint32]*BasicBlock),
	}
}

// build runs the full partitioning pipeline. As a side effect it records
// the method's vreg counts on the graph before any later stage runs.
func (b *blockBuilder) build() bool {
	b.graph.setNumberOfVRegs(b.code.RegistersSize)
	b.graph.setNumberOfInVRegs(b.code.InsSize)

	if len(b.code.Insns) == 0 {
		return false
	}
	if !b.seeded && !b.scanBoundaries() {
		return false
	}
	starts, ok := b.findBlockStarts()
	if !ok {
		return false
	}
	b.createBlocks(starts)
	if !b.connectBlocks() {
		return false
	}
	return b.buildTryRegions()
}

// scanBoundaries walks the stream once and records every instruction start.
// Switch and fill-array payloads are skipped wholesale; their interior is
// not a valid branch target.
func (b *blockBuilder) scanBoundaries() bool {
	size := uint32(len(b.code.Insns))
	for off := uint32(0); off < size; {
		n := b.code.instAt(off).sizeInCodeUnits()
		if n == 0 {
			// Unknown opcode or truncated instruction/payload.
			return false
		}
		if !isPayloadIdent(b.code.Insns[off]) {
			b.boundary.set1(uint64(off))
		}
		off += n
	}
	return true
}

// findBlockStarts collects every offset that must begin a block: offset 0,
// every branch/switch target, the instruction after anything that ends a
// block, and the try-region start/end and handler offsets.
func (b *blockBuilder) findBlockStarts() ([]uint32, bool) {
	size := uint32(len(b.code.Insns))
	starts := mapset.NewThreadUnsafeSet[uint32]()
	starts.Add(0)

	markTarget := func(target int64) bool {
		if target < 0 || target >= int64(size) || !b.boundary.isBitSet(uint64(target)) {
			return false
		}
		starts.Add(uint32(target))
		return true
	}

	for off := uint32(0); off < size; {
		in := b.code.instAt(off)
		n := in.sizeInCodeUnits()
		if n == 0 {
			// Reachable when a seeded boundary bitmap skipped the scan
			// but the bytecode is not the code it was recorded from.
			return nil, false
		}
		op := in.op()
		switch {
		case isPayloadIdent(b.code.Insns[off]):
			// data, not an instruction
		case isUnconditionalBranch(op) || isConditionalBranch(op):
			if !markTarget(int64(off) + int64(in.branchOffset())) {
				return nil, false
			}
		case isSwitch(op):
			targets := switchTargets(b.code.Insns, off)
			if targets == nil {
				return nil, false
			}
			for _, t := range targets {
				if !markTarget(int64(t)) {
					return nil, false
				}
			}
		}
		if endsBlock(op) && off+n < size {
			starts.Add(off + n)
		}
		off += n
	}

	if !b.markTryStarts(starts) {
		return nil, false
	}

	out := starts.ToSlice()
	slices.Sort(out)
	return out, true
}

// markTryStarts validates the try table and adds its boundary and handler
// offsets as block starts. Try items must be sorted and disjoint; a region
// or handler offset off the instruction grid is invalid bytecode.
func (b *blockBuilder) markTryStarts(starts mapset.Set[uint32]) bool {
	size := uint32(len(b.code.Insns))
	prevEnd := uint32(0)
	for i := range b.code.Tries {
		try := &b.code.Tries[i]
		end := try.endAddr()
		if try.InsnCount == 0 || try.StartAddr >= size || end > size {
			return false
		}
		if try.StartAddr < prevEnd {
			// Overlapping regions are structurally inconsistent.
			return false
		}
		prevEnd = end
		if !b.boundary.isBitSet(uint64(try.StartAddr)) {
			return false
		}
		if end < size && !b.boundary.isBitSet(uint64(end)) {
			return false
		}
		starts.Add(try.StartAddr)
		if end < size {
			starts.Add(end)
		}
		if len(try.Handlers) == 0 && !try.HasCatchAll {
			return false
		}
		for _, h := range try.Handlers {
			if h.Addr >= size || !b.boundary.isBitSet(uint64(h.Addr)) {
				return false
			}
			starts.Add(h.Addr)
		}
		if try.HasCatchAll {
			if try.CatchAllAddr >= size || !b.boundary.isBitSet(uint64(try.CatchAllAddr)) {
				return false
			}
			starts.Add(try.CatchAllAddr)
		}
	}
	return true
}

// createBlocks materializes the entry block, one block per start offset in
// address order, and the exit block.
func (b *blockBuilder) createBlocks(starts []uint32) {
	size := uint32(len(b.code.Insns))

	entry := b.graph.createBlock(0)
	b.graph.entryBlock = entry

	for i, off := range starts {
		bb := b.graph.createBlock(off)
		if i+1 < len(starts) {
			bb.endOff = starts[i+1]
		} else {
			bb.endOff = size
		}
		b.offToBlock[off] = bb
	}

	exit := b.graph.createBlock(size)
	exit.endOff = size
	b.graph.exitBlock = exit

	entry.addSuccessor(b.offToBlock[0])
}

// lastInstOffset finds the offset of the last real instruction inside the
// block's range, or ^0 when the range holds only payload data.
func (b *blockBuilder) lastInstOffset(bb *BasicBlock) uint32 {
	last := ^uint32(0)
	for off := bb.startOff; off < bb.endOff; {
		n := b.code.instAt(off).sizeInCodeUnits()
		if !isPayloadIdent(b.code.Insns[off]) {
			last = off
		}
		off += n
	}
	return last
}

// connectBlocks adds fall-through, branch, switch, return and throw edges.
func (b *blockBuilder) connectBlocks() bool {
	size := uint32(len(b.code.Insns))
	for _, bb := range b.graph.blocks {
		if bb == b.graph.entryBlock || bb == b.graph.exitBlock {
			continue
		}
		lastOff := b.lastInstOffset(bb)
		if lastOff == ^uint32(0) {
			// Data-only block; unreachable, removed by dominator analysis.
			continue
		}
		in := b.code.instAt(lastOff)
		op := in.op()
		switch {
		case isUnconditionalBranch(op):
			bb.addSuccessor(b.offToBlock[uint32(int64(lastOff)+int64(in.branchOffset()))])
		case isConditionalBranch(op):
			bb.addSuccessor(b.offToBlock[uint32(int64(lastOff)+int64(in.branchOffset()))])
			if bb.endOff >= size {
				return false
			}
			bb.addSuccessor(b.offToBlock[bb.endOff])
		case isSwitch(op):
			for _, t := range switchTargets(b.code.Insns, lastOff) {
				bb.addSuccessor(b.offToBlock[t])
			}
			if bb.endOff >= size {
				return false
			}
			bb.addSuccessor(b.offToBlock[bb.endOff])
		case isReturn(op), op == OpThrow:
			bb.addSuccessor(b.graph.exitBlock)
		default:
			// Control falls through; running off the end of the method is
			// invalid bytecode.
			if bb.endOff >= size {
				return false
			}
			bb.addSuccessor(b.offToBlock[bb.endOff])
		}
	}
	return true
}

// buildTryRegions assigns blocks to their enclosing try region, links
// exception edges from every throwing block to the region's handlers, and
// inserts the synthetic boundary blocks at region entry and exit.
func (b *blockBuilder) buildTryRegions() bool {
	for i := range b.code.Tries {
		try := &b.code.Tries[i]

		info := tryRegionInfo{startAddr: try.StartAddr, endAddr: try.endAddr()}
		for _, h := range try.Handlers {
			hb := b.offToBlock[h.Addr]
			hb.isCatchHandler = true
			hb.catchTypeIdx = h.TypeIdx
			info.handlers = append(info.handlers, hb)
		}
		if try.HasCatchAll {
			hb := b.offToBlock[try.CatchAllAddr]
			hb.isCatchHandler = true
			info.handlers = append(info.handlers, hb)
		}

		var members []*BasicBlock
		for _, bb := range b.graph.blocks {
			if bb == b.graph.entryBlock || bb == b.graph.exitBlock || bb.IsTryBoundary() {
				continue
			}
			if bb.startOff >= try.StartAddr && bb.startOff < info.endAddr {
				bb.tryRegion = i
				members = append(members, bb)
			}
		}
		if len(members) == 0 {
			return false
		}

		for _, m := range members {
			if b.blockCanThrow(m) {
				for _, hb := range info.handlers {
					m.addSuccessor(hb)
				}
			}
		}

		b.insertBoundaries(i, members, info.handlers)
		b.graph.tryRegions = append(b.graph.tryRegions, info)
	}
	return true
}

func (b *blockBuilder) blockCanThrow(bb *BasicBlock) bool {
	for off := bb.startOff; off < bb.endOff; {
		in := b.code.instAt(off)
		if !isPayloadIdent(b.code.Insns[off]) && canThrow(in.op()) {
			return true
		}
		off += in.sizeInCodeUnits()
	}
	return false
}

// insertBoundaries splits the normal-flow edges crossing the region border
// with synthetic boundary blocks, making exception scope changes explicit.
func (b *blockBuilder) insertBoundaries(region int, members, handlers []*BasicBlock) {
	isHandler := func(bb *BasicBlock) bool {
		for _, h := range handlers {
			if h == bb {
				return true
			}
		}
		return false
	}

	// Every edge entering the region gets a boundary block, whichever
	// member it lands on; branches into the middle of a try change
	// exception scope the same way falling into its first block does.
	for _, m := range members {
		for pi, p := range m.preds {
			if p.tryRegion == region || p.IsTryBoundary() {
				continue
			}
			boundary := b.graph.createBlock(m.startOff)
			boundary.endOff = m.startOff
			boundary.boundaryKind = BoundaryEntry
			boundary.tryRegion = region
			b.redirectEdge(p, m, pi, boundary)
			// The boundary owns the region's exception scope change, so the
			// handlers hang off it even when no member instruction throws.
			for _, hb := range handlers {
				boundary.succs = append(boundary.succs, hb)
				hb.preds = append(hb.preds, boundary)
			}
		}
	}

	for _, m := range members {
		for si, s := range m.succs {
			if s.tryRegion == region || s == b.graph.exitBlock || s.IsTryBoundary() || isHandler(s) {
				continue
			}
			boundary := b.graph.createBlock(s.startOff)
			boundary.endOff = s.startOff
			boundary.boundaryKind = BoundaryExit
			boundary.tryRegion = noTryRegion
			b.redirectEdgeAt(m, si, s, boundary)
		}
	}
}

// redirectEdge replaces the edge p -> old (old's predIdx-th predecessor)
// with p -> boundary -> old, preserving edge order on both sides.
func (b *blockBuilder) redirectEdge(p, old *BasicBlock, predIdx int, boundary *BasicBlock) {
	for si, s := range p.succs {
		if s == old {
			p.succs[si] = boundary
			break
		}
	}
	old.preds[predIdx] = boundary
	boundary.preds = append(boundary.preds, p)
	boundary.succs = append(boundary.succs, old)
}

// redirectEdgeAt replaces m's succIdx-th successor edge m -> s with
// m -> boundary -> s.
func (b *blockBuilder) redirectEdgeAt(m *BasicBlock, succIdx int, s *BasicBlock, boundary *BasicBlock) {
	m.succs[succIdx] = boundary
	for pi, p := range s.preds {
		if p == m {
			s.preds[pi] = boundary
			break
		}
	}
	boundary.preds = append(boundary.preds, m)
	boundary.succs = append(boundary.succs, s)
}

// seedBoundaries installs a boundary bitmap recorded from an earlier scan
// of the same bytecode, skipping the scan on rebuild. Only bitmaps from a
// successful build of identical code units may be seeded.
func (b *blockBuilder) seedBoundaries(bits []byte) {
	if len(bits) == 0 {
		return
	}
	b.boundary = bitmap(append([]byte(nil), bits...))
	b.seeded = true
}

func (b *blockBuilder) boundaryBytes() []byte {
	return []byte(b.boundary)
}

// buildIntrinsic builds the minimal fixed skeleton for a method with no
// bytecode: one entry block, one body block, one exit block.
func (b *blockBuilder) buildIntrinsic() {
	entry := b.graph.createBlock(0)
	body := b.graph.createBlock(0)
	exit := b.graph.createBlock(0)
	b.graph.entryBlock = entry
	b.graph.exitBlock = exit
	entry.addSuccessor(body)
	body.addSuccessor(exit)
}
