package optimizing

import "time"

// GraphBuilder drives the full analysis pipeline for one method: block
// partitioning, the compile-skip policy, dominator analysis, instruction
// materialization and SSA finalization, in that order. Every stage failure
// maps onto one GraphAnalysisResult code; on anything other than
// AnalysisSuccess the partially built graph is freed and nil is returned.
type GraphBuilder struct {
	code     *CodeItemAccessor
	sig      *MethodSignature
	resolver SymbolResolver
	config   *Config

	key    MethodKey
	hasKey bool
}

func NewGraphBuilder(code *CodeItemAccessor, sig *MethodSignature, resolver SymbolResolver, config *Config) *GraphBuilder {
	if config == nil {
		config = DefaultConfig()
	}
	return &GraphBuilder{code: code, sig: sig, resolver: resolver, config: config}
}

// WithCacheKey attaches the method's content hash, enabling boundary bitmap
// reuse across rebuilds of the same bytecode.
func (gb *GraphBuilder) WithCacheKey(key MethodKey) *GraphBuilder {
	gb.key = key
	gb.hasKey = true
	return gb
}

// skipMethod applies the compile policy once the block skeleton exists.
func (gb *GraphBuilder) skipMethod() bool {
	if gb.config.CompilerFilter == CompileNothing {
		return true
	}
	if gb.config.CompilerFilter == CompileEverything {
		return false
	}
	if gb.code.InsnsSizeInCodeUnits() > gb.config.HugeMethodThreshold {
		DebugInfo("skipping huge method",
			"codeUnits", gb.code.InsnsSizeInCodeUnits(),
			"threshold", gb.config.HugeMethodThreshold)
		return true
	}
	return false
}

// BuildGraph runs the pipeline over the method's bytecode.
func (gb *GraphBuilder) BuildGraph() (*Graph, GraphAnalysisResult) {
	buildAttempts.Inc(1)
	defer buildTimer.UpdateSince(time.Now())
	if gb.code == nil || !gb.code.HasCode {
		return gb.fail(nil, AnalysisInvalidBytecode)
	}

	g := NewGraph()

	bb := newBlockBuilder(g, gb.code)
	if gb.hasKey {
		bb.seedBoundaries(getGraphCacheInstance().GetCachedBoundary(gb.key))
	}
	if !bb.build() {
		return gb.fail(g, AnalysisInvalidBytecode)
	}

	if gb.skipMethod() {
		return gb.fail(g, AnalysisSkipped)
	}

	if res := g.BuildDominatorTree(); res != AnalysisSuccess {
		return gb.fail(g, res)
	}

	ib := newInstructionBuilder(g, gb.code, gb.sig, gb.resolver)
	if !ib.build() {
		return gb.fail(g, AnalysisInvalidBytecode)
	}

	sb := newSSABuilder(g)
	if !sb.build() {
		return gb.fail(g, AnalysisInvalidBytecode)
	}

	if gb.hasKey {
		getGraphCacheInstance().AddBoundaryCache(gb.key, bb.boundaryBytes())
	}
	buildSuccesses.Inc(1)
	return g, AnalysisSuccess
}

// BuildIntrinsicGraph builds the fixed three-block skeleton for a method
// whose body is replaced by an intrinsic. There is no bytecode, so the
// vreg layout is synthetic: arguments from vreg 0 upward, the two highest
// vregs reserved for the return value regardless of its width.
func (gb *GraphBuilder) BuildIntrinsicGraph() (*Graph, GraphAnalysisResult) {
	buildAttempts.Inc(1)
	if gb.sig == nil {
		return gb.fail(nil, AnalysisInvalidBytecode)
	}

	const returnVRegs = 2
	numArgVRegs := gb.sig.argVRegs()

	g := NewGraph()
	g.setNumberOfVRegs(numArgVRegs + returnVRegs)
	g.setNumberOfInVRegs(numArgVRegs)

	bb := newBlockBuilder(g, gb.code)
	bb.buildIntrinsic()

	if res := g.BuildDominatorTree(); res != AnalysisSuccess {
		return gb.fail(g, res)
	}

	ib := newInstructionBuilder(g, gb.code, gb.sig, gb.resolver)
	ib.buildIntrinsic()

	buildSuccesses.Inc(1)
	return g, AnalysisSuccess
}

func (gb *GraphBuilder) fail(g *Graph, res GraphAnalysisResult) (*Graph, GraphAnalysisResult) {
	countFailure(res)
	if g != nil {
		g.Free()
	}
	return nil, res
}
