package optimizing

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHugeMethodThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HugeMethodThreshold = 4

	atLimit := []uint16{
		0x0000, // nop
		0x0000, // nop
		0x0000, // nop
		0x000e, // return-void
	}
	code := NewCodeItemAccessor(atLimit, 1, 0, nil)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	g, res := NewGraphBuilder(code, sig, nil, cfg).BuildGraph()
	require.Equal(t, AnalysisSuccess, res)
	g.Free()

	overLimit := append([]uint16{0x0000}, atLimit...)
	code = NewCodeItemAccessor(overLimit, 1, 0, nil)
	g, res = NewGraphBuilder(code, sig, nil, cfg).BuildGraph()
	require.Equal(t, AnalysisSkipped, res)
	require.Nil(t, g)
}

func TestCompileNothingFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompilerFilter = CompileNothing

	insns := []uint16{0x000e} // return-void
	code := NewCodeItemAccessor(insns, 1, 0, nil)
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	_, res := NewGraphBuilder(code, sig, nil, cfg).BuildGraph()
	require.Equal(t, AnalysisSkipped, res)
}

func TestMissingCodeItem(t *testing.T) {
	sig := &MethodSignature{Shorty: "V", IsStatic: true}
	_, res := NewGraphBuilder(NoCodeItemAccessor(), sig, nil, nil).BuildGraph()
	require.Equal(t, AnalysisInvalidBytecode, res)
}

func TestIntrinsicGraphLayout(t *testing.T) {
	// Virtual (II)I method: receiver plus two int args, int return.
	sig := &MethodSignature{Shorty: "III", IsStatic: false}
	gb := NewGraphBuilder(NoCodeItemAccessor(), sig, nil, nil)
	g, res := gb.BuildIntrinsicGraph()
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	require.Len(t, g.Blocks(), 3)
	require.Equal(t, uint16(5), g.NumberOfVRegs()) // 3 args + 2 return slots
	require.Equal(t, uint16(3), g.NumberOfInVRegs())

	params := g.EntryBlock().Instructions()
	require.Len(t, params, 3)
	require.Equal(t, TypeReference, params[0].ResultType())
	require.Equal(t, TypeInt, params[1].ResultType())
	require.Equal(t, TypeInt, params[2].ResultType())

	body := g.EntryBlock().Successors()[0]
	require.Len(t, body.Instructions(), 2)
	invoke := body.Instructions()[0]
	require.Equal(t, HirInvoke, invoke.Op())
	require.Len(t, invoke.Operands(), 3)
	ret := body.Instructions()[1]
	require.Equal(t, HirReturn, ret.Op())
	require.Equal(t, invoke.Result(), ret.Operands()[0])
}

func TestIntrinsicWideReturnKeepsTwoSlots(t *testing.T) {
	// Static ()J method: no args, wide return, still two reserved vregs.
	sig := &MethodSignature{Shorty: "J", IsStatic: true}
	g, res := NewGraphBuilder(NoCodeItemAccessor(), sig, nil, nil).BuildIntrinsicGraph()
	require.Equal(t, AnalysisSuccess, res)
	defer g.Free()

	require.Equal(t, uint16(2), g.NumberOfVRegs())
	require.Equal(t, uint16(0), g.NumberOfInVRegs())
}

func TestGraphCacheRoundTrip(t *testing.T) {
	EnableGraphBuilds()
	defer DisableGraphBuilds()

	insns := []uint16{
		0x0012, // const/4 v0, #0
		0x000f, // return v0
	}
	req := BuildRequest{
		Key:  MethodKey(sha256.Sum256([]byte("cache-round-trip"))),
		Code: NewCodeItemAccessor(insns, 1, 0, nil),
		Sig:  &MethodSignature{Shorty: "I", IsStatic: true},
	}
	defer DropGraph(req.Key)

	g1, err := TryBuildGraph(req)
	require.NoError(t, err)
	require.NotNil(t, g1)

	g2, err := TryBuildGraph(req)
	require.NoError(t, err)
	require.Same(t, g1, g2)

	require.Same(t, g1, LoadGraph(req.Key))

	DropGraph(req.Key)
	require.Nil(t, LoadGraph(req.Key))
}

func TestScheduleBuildRequiresEnable(t *testing.T) {
	DisableGraphBuilds()
	err := ScheduleBuild(BuildRequest{})
	require.ErrorIs(t, err, ErrBuildsDisabled)
}

func TestBuildFailureNotCached(t *testing.T) {
	EnableGraphBuilds()
	defer DisableGraphBuilds()

	req := BuildRequest{
		Key:  MethodKey(sha256.Sum256([]byte("invalid-method"))),
		Code: NewCodeItemAccessor([]uint16{0x0012}, 1, 0, nil), // falls off the end
		Sig:  &MethodSignature{Shorty: "V", IsStatic: true},
	}
	_, err := TryBuildGraph(req)
	require.ErrorIs(t, err, ErrGraphBuildFailed)
	require.Nil(t, LoadGraph(req.Key))
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())

	cfg.GraphCacheSize = 0
	require.Error(t, cfg.validate())

	cfg = DefaultConfig()
	cfg.CompilerFilter = "turbo"
	require.Error(t, cfg.validate())
}

func TestUseAfterFreePanics(t *testing.T) {
	g, res := buildMethod(t, []uint16{0x000e}, 1, 0, "V", true)
	require.Equal(t, AnalysisSuccess, res)
	g.Free()
	require.Panics(t, func() { g.arena.newBlock() })
}
