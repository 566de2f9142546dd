package optimizing

// bitmap maps block numbers to bits, used to dedupe edge insertion.
type bitmap []byte

func (bits *bitmap) ensure(pos uint64) {
	need := int(pos/8) + 1
	if need <= len(*bits) {
		return
	}
	*bits = append(*bits, make([]byte, need-len(*bits))...)
}

func (bits *bitmap) set1(pos uint64) {
	bits.ensure(pos)
	(*bits)[pos/8] |= 1 << (pos % 8)
}

func (bits *bitmap) isBitSet(pos uint64) bool {
	idx := int(pos / 8)
	if idx >= len(*bits) {
		return false
	}
	return (((*bits)[idx] >> (pos % 8)) & 1) == 1
}

// TryBoundaryKind distinguishes the synthetic blocks inserted at try-region
// entry and exit from ordinary blocks.
type TryBoundaryKind byte

const (
	NotBoundary TryBoundaryKind = iota
	BoundaryEntry
	BoundaryExit
)

// noTryRegion marks blocks outside every try region.
const noTryRegion = -1

// BasicBlock is a maximal straight-line run of instructions plus its CFG
// and dominator-tree links. Predecessor order is insertion order and is the
// order phi inputs are stored in.
type BasicBlock struct {
	blockNum uint
	startOff uint32 // first dex offset, in code units
	endOff   uint32 // one past the last instruction

	predsBitmap bitmap
	succsBitmap bitmap
	preds       []*BasicBlock
	succs       []*BasicBlock

	instructions []*HIR

	dominator   *BasicBlock
	domChildren []*BasicBlock

	tryRegion      int
	boundaryKind   TryBoundaryKind
	isLoopHeader   bool
	isCatchHandler bool
	catchTypeIdx   uint32

	// Materializer state: the value of each vreg at block entry and exit.
	// localsIn is seeded from predecessors (or provisional phis), localsOut
	// is the snapshot after the last instruction.
	localsIn  []*Value
	localsOut []*Value

	// Live phis in vreg order, populated during SSA finalization.
	phis []*Value

	rpoNum  int
	visited bool
}

func (b *BasicBlock) BlockNum() uint   { return b.blockNum }
func (b *BasicBlock) StartOff() uint32 { return b.startOff }
func (b *BasicBlock) EndOff() uint32   { return b.endOff }

func (b *BasicBlock) Predecessors() []*BasicBlock { return b.preds }
func (b *BasicBlock) Successors() []*BasicBlock   { return b.succs }

func (b *BasicBlock) Instructions() []*HIR { return b.instructions }

// Phis returns the block's surviving phis in vreg order. Empty until SSA
// finalization has run.
func (b *BasicBlock) Phis() []*Value { return b.phis }

// Dominator returns the block's immediate dominator, nil for the entry.
func (b *BasicBlock) Dominator() *BasicBlock { return b.dominator }

func (b *BasicBlock) DominatedBlocks() []*BasicBlock { return b.domChildren }

func (b *BasicBlock) IsLoopHeader() bool { return b.isLoopHeader }

func (b *BasicBlock) IsCatchHandler() bool { return b.isCatchHandler }

// TryRegion returns the enclosing try-region id, or -1 outside any region.
func (b *BasicBlock) TryRegion() int { return b.tryRegion }

func (b *BasicBlock) IsTryBoundary() bool { return b.boundaryKind != NotBoundary }

// addSuccessor links b -> s, deduping repeated edges through the bitmaps.
func (b *BasicBlock) addSuccessor(s *BasicBlock) {
	if b.succsBitmap.isBitSet(uint64(s.blockNum)) {
		return
	}
	b.succsBitmap.set1(uint64(s.blockNum))
	b.succs = append(b.succs, s)
	s.predsBitmap.set1(uint64(b.blockNum))
	s.preds = append(s.preds, b)
}

// removePredecessor unlinks p from b's predecessor list, keeping order.
func (b *BasicBlock) removePredecessor(p *BasicBlock) {
	for i, q := range b.preds {
		if q == p {
			b.preds = append(b.preds[:i], b.preds[i+1:]...)
			return
		}
	}
}

func (b *BasicBlock) removeSuccessor(s *BasicBlock) {
	for i, q := range b.succs {
		if q == s {
			b.succs = append(b.succs[:i], b.succs[i+1:]...)
			return
		}
	}
}

// predecessorIndex returns p's position in the predecessor list, the slot
// its phi inputs occupy. Returns -1 when p is not a predecessor.
func (b *BasicBlock) predecessorIndex(p *BasicBlock) int {
	for i, q := range b.preds {
		if q == p {
			return i
		}
	}
	return -1
}

func (b *BasicBlock) appendHIR(h *HIR) *HIR {
	h.block = b
	h.idx = len(b.instructions)
	b.instructions = append(b.instructions, h)
	return h
}

// lastInstruction returns the block's terminating instruction, nil when the
// block is still empty.
func (b *BasicBlock) lastInstruction() *HIR {
	if len(b.instructions) == 0 {
		return nil
	}
	return b.instructions[len(b.instructions)-1]
}

// dominates reports whether b dominates other, walking the idom chain.
func (b *BasicBlock) dominates(other *BasicBlock) bool {
	for d := other; d != nil; d = d.dominator {
		if d == b {
			return true
		}
	}
	return false
}
