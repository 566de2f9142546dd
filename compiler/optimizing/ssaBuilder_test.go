package optimizing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhiAtMergePoint(t *testing.T) {
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0004, // 1: if-eqz v0, +4 -> 5
		0x1012, // 3: const/4 v0, #1
		0x0228, // 4: goto +2 -> 6
		0x2012, // 5: const/4 v0, #2
		0x000f, // 6: return v0
	}
	g, res := buildMethod(t, insns, 1, 0, "I", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	join := blockAt(t, g, 6)
	phis := join.Phis()
	require.Len(t, phis, 1)

	phi := phis[0]
	// One input per predecessor, in predecessor order.
	require.Len(t, phi.Inputs(), len(join.Predecessors()))
	require.Equal(t, uint64(1), phi.Inputs()[0].ConstBits())
	require.Equal(t, uint64(2), phi.Inputs()[1].ConstBits())
	require.Equal(t, TypeInt, phi.Type())

	ret := findOp(t, g, HirReturn)
	require.Equal(t, phi, ret.Operands()[0])
}

func TestTrivialPhiEliminated(t *testing.T) {
	// Both arms leave v0 holding the same constant; the join phi is
	// redundant and must collapse onto it.
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0003, // 1: if-eqz v0, +3 -> 4
		0x0228, // 3: goto +2 -> 5
		0x0000, // 4: nop
		0x000f, // 5: return v0
	}
	g, res := buildMethod(t, insns, 1, 0, "I", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	join := blockAt(t, g, 5)
	require.Empty(t, join.Phis())

	ret := findOp(t, g, HirReturn)
	require.Equal(t, Konst, ret.Operands()[0].kind)
	require.Equal(t, uint64(0), ret.Operands()[0].ConstBits())
}

func TestFloatUseDisambiguatesConstants(t *testing.T) {
	insns := []uint16{
		0x0015, 0x3f80, // 0: const/high16 v0, #1.0f
		0x0115, 0x4000, // 2: const/high16 v1, #2.0f
		0x00a6, 0x0100, // 4: add-float v0, v0, v1
		0x000f, // 6: return v0
	}
	g, res := buildMethod(t, insns, 2, 0, "F", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	add := findOp(t, g, HirAdd)
	require.Equal(t, TypeFloat, add.ResultType())
	require.Equal(t, TypeFloat, add.Operands()[0].Type())
	require.Equal(t, TypeFloat, add.Operands()[1].Type())
	require.Equal(t, uint64(0x3f800000), add.Operands()[0].ConstBits())
}

func TestUndisambiguatedConstantDefaultsToInt(t *testing.T) {
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

	// Nothing uses v0's merged value; the if's operand has no constraint
	// either, so its constant falls back to int.
	foundIf := findOp(t, g, HirIf)
	require.Equal(t, TypeInt, foundIf.Operands()[0].Type())
}

func TestReferenceWinsOverNullConstant(t *testing.T) {
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0005, // 1: if-eqz v0, +5 -> 6
		0x011a, 0x0000, // 3: const-string v1, s@0
		0x0228, // 5: goto +2 -> 7
		0x0112, // 6: const/4 v1, #0 (null)
		0x0111, // 7: return-object v1
	}
	g, res := buildMethod(t, insns, 2, 0, "L", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	join := blockAt(t, g, 7)
	phis := join.Phis()
	require.Len(t, phis, 1)
	require.Equal(t, TypeReference, phis[0].Type())
	for _, in := range phis[0].Inputs() {
		require.Equal(t, TypeReference, in.Type())
	}
}

func TestReferencePrimitiveConflictRejected(t *testing.T) {
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0005, // 1: if-eqz v0, +5 -> 6
		0x011a, 0x0000, // 3: const-string v1, s@0
		0x0328, // 5: goto +3 -> 8
		0x01d8, 0x0100, // 6: add-int/lit8 v1, v0, #1
		0x0111, // 8: return-object v1
	}
	_, res := buildMethod(t, insns, 2, 0, "L", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestUndefinedRegisterAtMergeRejected(t *testing.T) {
	// v1 is defined on only one arm but consumed at the join.
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0003, // 1: if-eqz v0, +3 -> 4
		0x1112, // 3: const/4 v1, #1
		0x010f, // 4: return v1
	}
	_, res := buildMethod(t, insns, 2, 0, "I", true)
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestLoopPhiTypedAcrossBackEdge(t *testing.T) {
	// v0 counts down; the loop phi merges the initial constant with the
	// decremented value flowing along the back edge.
	insns := []uint16{
		0x3012,         // 0: const/4 v0, #3
		0x0038, 0x0005, // 1: if-eqz v0, +5 -> 6
		0x00d8, 0xff00, // 3: add-int/lit8 v0, v0, #-1
		0xfc28, // 5: goto -4 -> 1 (back edge)
		0x000f, // 6: return v0
	}
	g, res := buildMethod(t, insns, 1, 0, "I", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	header := blockAt(t, g, 1)
	require.True(t, header.IsLoopHeader())

	phis := header.Phis()
	require.Len(t, phis, 1)
	phi := phis[0]
	require.Equal(t, TypeInt, phi.Type())
	require.Len(t, phi.Inputs(), 2)

	// One input is the initial constant, the other the add result.
	add := findOp(t, g, HirAdd)
	require.Contains(t, phi.Inputs(), add.Result())
	require.Equal(t, phi, add.Operands()[0])
}

func TestRedundancyEliminationIdempotent(t *testing.T) {
	// A second elimination sweep over a finished graph must find nothing:
	// surviving phis keep their inputs and no new forwarding appears.
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0004, // 1: if-eqz v0, +4 -> 5
		0x1012, // 3: const/4 v0, #1
		0x0228, // 4: goto +2 -> 6
		0x2012, // 5: const/4 v0, #2
		0x000f, // 6: return v0
	}
	g, res := buildMethod(t, insns, 1, 0, "I", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	countPhis := func() int {
		n := 0
		for _, bb := range g.Blocks() {
			n += len(bb.Phis())
		}
		return n
	}
	require.Equal(t, 1, countPhis())
	phi := blockAt(t, g, 6).Phis()[0]
	inputsBefore := append([]*Value(nil), phi.Inputs()...)

	newSSABuilder(g).eliminateRedundantPhis()

	require.Nil(t, phi.repl)
	require.Equal(t, 1, countPhis())
	require.Equal(t, inputsBefore, phi.Inputs())
}
