package optimizing

// GraphAnalysisResult is the single outcome code threaded through all build
// stages. Anything other than AnalysisSuccess means the method must not be
// optimized or codegen'd; AnalysisSkipped additionally tells the caller to
// fall back to a non-optimizing execution strategy.
type GraphAnalysisResult byte

const (
	AnalysisSuccess GraphAnalysisResult = iota
	AnalysisSkipped
	AnalysisInvalidBytecode
	AnalysisFailDominatorTree
	AnalysisFailBlockStructure
)

func (r GraphAnalysisResult) String() string {
	switch r {
	case AnalysisSuccess:
		return "Success"
	case AnalysisSkipped:
		return "Skipped"
	case AnalysisInvalidBytecode:
		return "InvalidBytecode"
	case AnalysisFailDominatorTree:
		return "FailDominatorTree"
	case AnalysisFailBlockStructure:
		return "FailBlockStructure"
	default:
		return "Unknown"
	}
}

// tryRegionInfo records one try region's handler blocks, filled in by the
// block builder and consulted by the dominator analyzer for the
// required-but-unreachable check.
type tryRegionInfo struct {
	startAddr uint32
	endAddr   uint32
	handlers  []*BasicBlock
}

// Graph owns the basic blocks of one method, in address order with the
// synthetic entry block first and the exit block last. All blocks and
// instructions live in the graph's arena; nothing outlives a call to Free.
type Graph struct {
	arena      *arena
	blocks     []*BasicBlock
	entryBlock *BasicBlock
	exitBlock  *BasicBlock
	blockCount uint

	numVRegs   uint16
	numInVRegs uint16

	tryRegions []tryRegionInfo

	// Reverse postorder over reachable blocks, filled in by the dominator
	// analyzer and consumed by the later stages.
	reversePostOrder []*BasicBlock
}

// NewGraph allocates an empty graph backed by a fresh arena.
func NewGraph() *Graph {
	return &Graph{arena: newArena()}
}

func (g *Graph) Blocks() []*BasicBlock { return g.blocks }

func (g *Graph) EntryBlock() *BasicBlock { return g.entryBlock }

func (g *Graph) ExitBlock() *BasicBlock { return g.exitBlock }

func (g *Graph) NumberOfVRegs() uint16 { return g.numVRegs }

func (g *Graph) NumberOfInVRegs() uint16 { return g.numInVRegs }

func (g *Graph) setNumberOfVRegs(n uint16)   { g.numVRegs = n }
func (g *Graph) setNumberOfInVRegs(n uint16) { g.numInVRegs = n }

// ReversePostOrder returns the reachable blocks in reverse postorder;
// populated once the dominator tree has been built.
func (g *Graph) ReversePostOrder() []*BasicBlock { return g.reversePostOrder }

// Free releases the arena backing every block and instruction. The graph
// must not be used afterwards.
func (g *Graph) Free() {
	g.blocks = nil
	g.entryBlock = nil
	g.exitBlock = nil
	g.reversePostOrder = nil
	g.arena.free()
}

func (g *Graph) createBlock(startOff uint32) *BasicBlock {
	bb := g.arena.newBlock()
	bb.blockNum = g.blockCount
	bb.startOff = startOff
	bb.tryRegion = noTryRegion
	g.blockCount++
	g.blocks = append(g.blocks, bb)
	return bb
}

// removeBlock drops a dead block from the graph and unlinks its edges.
func (g *Graph) removeBlock(bb *BasicBlock) {
	for _, s := range bb.succs {
		s.removePredecessor(bb)
	}
	for _, p := range bb.preds {
		p.removeSuccessor(bb)
	}
	for i, b := range g.blocks {
		if b == bb {
			g.blocks = append(g.blocks[:i], g.blocks[i+1:]...)
			break
		}
	}
}
