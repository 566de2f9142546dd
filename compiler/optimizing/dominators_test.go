package optimizing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDominatorTreeDiamond(t *testing.T) {
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

	require.Nil(t, g.EntryBlock().Dominator())
	require.Equal(t, g.EntryBlock(), b0.Dominator())
	require.Equal(t, b0, b1.Dominator())
	require.Equal(t, b0, b2.Dominator())
	// Neither branch arm dominates the join.
	require.Equal(t, b0, join.Dominator())
	require.Equal(t, join, g.ExitBlock().Dominator())

	require.True(t, b0.dominates(join))
	require.False(t, b1.dominates(join))
}

func TestReversePostOrderProperties(t *testing.T) {
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

	rpo := g.ReversePostOrder()
	require.Equal(t, g.EntryBlock(), rpo[0])
	require.Len(t, rpo, len(g.Blocks()))

	// Every block appears after its immediate dominator.
	pos := make(map[*BasicBlock]int)
	for i, bb := range rpo {
		pos[bb] = i
	}
	for _, bb := range rpo {
		if d := bb.Dominator(); d != nil {
			require.Less(t, pos[d], pos[bb])
		}
	}
}

func TestLoopHeaderMarking(t *testing.T) {
	insns := []uint16{
		0x0012,         // 0: const/4 v0, #0
		0x0038, 0x0003, // 1: if-eqz v0, +3 -> 4
		0xfe28, // 3: goto -2 -> 1 (back edge)
		0x000e, // 4: return-void
	}
	g, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	header := blockAt(t, g, 1)
	latch := blockAt(t, g, 3)
	require.True(t, header.IsLoopHeader())
	require.False(t, latch.IsLoopHeader())
	require.Equal(t, header, latch.Dominator())

	// The trivial loop phi for v0 collapses onto the constant.
	require.Empty(t, header.Phis())
}

func TestUnreachableBlockRemoved(t *testing.T) {
	insns := []uint16{
		0x000e, // 0: return-void
		0x000e, // 1: return-void, unreachable
	}
	g, res := buildMethod(t, insns, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	require.Len(t, g.Blocks(), 3) // entry, first return, exit
	for _, bb := range g.Blocks() {
		require.NotEqual(t, uint32(1), bb.StartOff())
	}
}
