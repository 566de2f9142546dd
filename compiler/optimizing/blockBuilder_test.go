package optimizing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMethod runs the full pipeline over a hand-assembled code unit stream.
func buildMethod(t *testing.T, insns []uint16, registers, ins uint16, shorty string, static bool) (*Graph, GraphAnalysisResult) {
	t.Helper()
	code := NewCodeItemAccessor(insns, registers, ins, nil)
	sig := &MethodSignature{Shorty: shorty, IsStatic: static}
	return NewGraphBuilder(code, sig, nil, nil).BuildGraph()
}

// blockAt finds the block starting at the given code unit offset.
func blockAt(t *testing.T, g *Graph, off uint32) *BasicBlock {
	t.Helper()
	for _, bb := range g.Blocks() {
		if bb.StartOff() == off && bb != g.EntryBlock() && bb != g.ExitBlock() && !bb.IsTryBoundary() {
			return bb
		}
	}
	t.Fatalf("no block starting at offset %d", off)
	return nil
}

func TestStraightLineSingleBlock(t *testing.T) {
	insns := []uint16{
		0x0012, // const/4 v0, #0
		0x000f, // return v0
	}
	g, res := buildMethod(t, insns, 1, 0, "I", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	// entry, one code block, exit
	require.Len(t, g.Blocks(), 3)
	body := blockAt(t, g, 0)
	require.Equal(t, []*BasicBlock{body}, g.EntryBlock().Successors())
	require.Equal(t, []*BasicBlock{g.ExitBlock()}, body.Successors())
	require.Equal(t, uint16(1), g.NumberOfVRegs())
}

func TestBranchSplitsBlocks(t *testing.T) {
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0004, // 1: if-eqz v0, +4 -> 5
		0x1012, // 3: const/4 v0, #1
		0x0228, // 4: goto +2 -> 6
		0x2012, // 5: const/4 v0, #2
		0x000e, // 6: return-void
	}
	g, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	b0 := blockAt(t, g, 0)
	b1 := blockAt(t, g, 3)
	b2 := blockAt(t, g, 5)
	join := blockAt(t, g, 6)

	// Branch target edge precedes the fall-through edge.
	require.Equal(t, []*BasicBlock{b2, b1}, b0.Successors())
	require.Equal(t, []*BasicBlock{join}, b1.Successors())
	require.Equal(t, []*BasicBlock{join}, b2.Successors())
	require.Equal(t, []*BasicBlock{b1, b2}, join.Predecessors())
}

func TestBranchTargetOutOfRange(t *testing.T) {
	insns := []uint16{
		0x0012,         // const/4 v0, #0
		0x0038, 0x0064, // if-eqz v0, +100 (beyond end)
		0x000e, // return-void
	}
	_, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestBranchTargetMidInstruction(t *testing.T) {
	insns := []uint16{
		0x0013, 0x0005, // 0: const/16 v0, #5 (2 units)
		0xff28, // 2: goto -1 -> offset 1, inside const/16
	}
	_, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestFallsOffEnd(t *testing.T) {
	insns := []uint16{
		0x0012, // const/4 v0, #0; no terminator follows
	}
	_, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestTruncatedInstruction(t *testing.T) {
	insns := []uint16{
		0x0013, // const/16 v0 missing its literal unit
	}
	_, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestUnknownOpcode(t *testing.T) {
	insns := []uint16{
		0x00ff, // not part of the supported set
		0x000e,
	}
	_, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestPackedSwitchPayloadSkipped(t *testing.T) {
	insns := []uint16{
		0x0012,                 // 0: const/4 v0, #0
		0x002b, 0x0005, 0x0000, // 1: packed-switch v0, payload at +5 -> 6
		0x000e, // 4: return-void (fall-through)
		0x000e, // 5: return-void (case 0 target)
		// 6: packed-switch payload: one entry, first key 0, target +4 -> 5
		0x0100, 0x0001, 0x0000, 0x0000, 0x0004, 0x0000,
	}
	g, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	sw := blockAt(t, g, 0)
	caseBlock := blockAt(t, g, 5)
	fall := blockAt(t, g, 4)
	require.Equal(t, []*BasicBlock{caseBlock, fall}, sw.Successors())

	// The payload itself forms no reachable block.
	for _, bb := range g.ReversePostOrder() {
		require.NotEqual(t, uint32(6), bb.StartOff())
	}
}

func TestTryRegionBoundaries(t *testing.T) {
	insns := []uint16{
		0x0012,                 // 0: const/4 v0, #0
		0x0071, 0x0000, 0x0000, // 1: invoke-static {}, m@0
		0x000e, // 4: return-void
		0x000d, // 5: move-exception v0
		0x000e, // 6: return-void
	}
	tries := []TryItem{{StartAddr: 1, InsnCount: 3, CatchAllAddr: 5, HasCatchAll: true}}
	code := NewCodeItemAccessor(insns, 1, 0, tries)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	g, res := NewGraphBuilder(code, sig, nil, nil).BuildGraph()
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	var entries, exits int
	for _, bb := range g.Blocks() {
		switch bb.boundaryKind {
		case BoundaryEntry:
			entries++
		case BoundaryExit:
			exits++
		}
	}
	require.Equal(t, 1, entries)
	require.Equal(t, 1, exits)

	member := blockAt(t, g, 1)
	require.Equal(t, 0, member.TryRegion())

	handler := blockAt(t, g, 5)
	require.True(t, handler.IsCatchHandler())
	// Reached via the throwing invoke and via the entry boundary.
	require.Len(t, handler.Predecessors(), 2)
	require.Equal(t, HirMoveException, handler.Instructions()[0].Op())
}

func TestOverlappingTryRegions(t *testing.T) {
	insns := []uint16{
		0x0012,                 // 0: const/4 v0, #0
		0x0071, 0x0000, 0x0000, // 1: invoke-static {}, m@0
		0x000e, // 4: return-void
		0x000e, // 5: return-void (handler)
	}
	tries := []TryItem{
		{StartAddr: 0, InsnCount: 4, CatchAllAddr: 5, HasCatchAll: true},
		{StartAddr: 1, InsnCount: 3, CatchAllAddr: 5, HasCatchAll: true},
	}
	code := NewCodeItemAccessor(insns, 1, 0, tries)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	_, res := NewGraphBuilder(code, sig, nil, nil).BuildGraph()
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestTryWithoutHandlers(t *testing.T) {
	insns := []uint16{
		0x0071, 0x0000, 0x0000, // invoke-static {}, m@0
		0x000e, // return-void
	}
	tries := []TryItem{{StartAddr: 0, InsnCount: 3}}
	code := NewCodeItemAccessor(insns, 1, 0, tries)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	_, res := NewGraphBuilder(code, sig, nil, nil).BuildGraph()
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestEmptyCode(t *testing.T) {
	_, res := buildMethod(t, nil, 0, 0, "V", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestSeededBitmapRejectsForeignBytecode(t *testing.T) {
	// A seeded boundary bitmap skips the boundary scan; if the bytecode is
	// not the code the bitmap was recorded from, the block scan must still
	// terminate and reject it.
	insns := []uint16{
		0x00ff, // unknown opcode
		0x000e, // return-void
	}
	code := NewCodeItemAccessor(insns, 1, 0, nil)
	g := NewGraph()
	defer g.Free()

	bb := newBlockBuilder(g, code)
	bb.seedBoundaries([]byte{0x03})
	require.False(t, bb.build())
}

func TestSparseSwitchTargets(t *testing.T) {
	insns := []uint16{
		0x1012,         // 0: const/4 v0, #1
		0x002c,         // 1: sparse-switch v0, payload +7 -> 8
		0x0007, 0x0000, //
		0x000e,         // 4: return-void (fall through)
		0x0012,         // 5: const/4 v0, #0
		0x000e,         // 6: return-void
		0x000e,         // 7: return-void
		0x0200,         // 8: sparse-switch payload, 2 entries
		0x0002,         //
		0x0001, 0x0000, //    key 1
		0x0005, 0x0000, //    key 5
		0x0004, 0x0000, //    target +4 -> 5
		0x0006, 0x0000, //    target +6 -> 7
	}
	g, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	sw := blockAt(t, g, 0)
	require.Len(t, sw.Successors(), 3)
	// Case targets in payload order, then the fall-through edge.
	require.Equal(t, uint32(5), sw.Successors()[0].StartOff())
	require.Equal(t, uint32(7), sw.Successors()[1].StartOff())
	require.Equal(t, uint32(4), sw.Successors()[2].StartOff())
}

func TestBranchIntoTryRegionGetsEntryBoundary(t *testing.T) {
	// The branch enters the try region at its second block; that edge must
	// get its own entry boundary, same as the fall-in edge.
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0004, // 1: if-eqz v0, +4 -> 5
		0x1012, // 3: const/4 v0, #1 (try start)
		0x000e, // 4: return-void
		0x2012, // 5: const/4 v0, #2
		0x000e, // 6: return-void (try end)
		0x000e, // 7: return-void (catch-all handler)
	}
	tries := []TryItem{{StartAddr: 3, InsnCount: 4, HasCatchAll: true, CatchAllAddr: 7}}
	code := NewCodeItemAccessor(insns, 1, 0, tries)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	g, res := NewGraphBuilder(code, sig, nil, nil).BuildGraph()
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	var entries []*BasicBlock
	for _, bb := range g.Blocks() {
		if bb.IsTryBoundary() && bb.boundaryKind == BoundaryEntry {
			entries = append(entries, bb)
		}
	}
	require.Len(t, entries, 2)

	handler := blockAt(t, g, 7)
	require.True(t, handler.IsCatchHandler())
	require.Len(t, handler.Predecessors(), 2)
	for _, e := range entries {
		require.Contains(t, e.Successors(), handler)
		require.Contains(t, handler.Predecessors(), e)
	}

	midBlock := blockAt(t, g, 5)
	require.Len(t, midBlock.Predecessors(), 1)
	require.True(t, midBlock.Predecessors()[0].IsTryBoundary())
}

func TestClobberedWidePairRejected(t *testing.T) {
	// Overwriting the high half of a register pair invalidates the pair;
	// reading the stale wide value afterwards is malformed bytecode.
	insns := []uint16{
		0x0016, 0x0005, // 0: const-wide/16 v0, #5
		0x1112,         // 2: const/4 v1, #1
		0x0010,         // 3: return-wide v0
	}
	_, res := buildMethod(t, insns, 2, 0, "J", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}
