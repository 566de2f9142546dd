package optimizing

// BuildDominatorTree computes the immediate dominator of every reachable
// block, removes blocks unreachable from entry, and classifies loop
// headers. The iterative fixpoint over a reverse-postorder traversal gives
// deterministic dominator sets independent of block numbering.
//
// It fails only when the skeleton is malformed in a way block partitioning
// should have prevented: an entry block with predecessors, or a catch
// handler the try table requires that is unreachable while its region is
// live. Either indicates a partitioner/analyzer disagreement, not bad
// input, and is reported rather than silently patched.
func (g *Graph) BuildDominatorTree() GraphAnalysisResult {
	if g.entryBlock == nil {
		return AnalysisFailBlockStructure
	}
	if len(g.entryBlock.preds) != 0 {
		assertUnreachable("entry block has a predecessor")
		return AnalysisFailBlockStructure
	}

	post := g.postorder()

	reachable := make(map[*BasicBlock]bool, len(post))
	for _, bb := range post {
		reachable[bb] = true
	}

	if !g.checkTryReachability(reachable) {
		return AnalysisFailDominatorTree
	}

	// Drop dead blocks before dominator computation so every remaining
	// non-entry block has at least one predecessor.
	var dead []*BasicBlock
	for _, bb := range g.blocks {
		if !reachable[bb] {
			dead = append(dead, bb)
		}
	}
	for _, bb := range dead {
		g.removeBlock(bb)
	}

	postNum := make(map[*BasicBlock]int, len(post))
	for i, bb := range post {
		postNum[bb] = i
	}

	// Iterative dataflow: process blocks in reverse postorder, intersecting
	// predecessor dominators until fixpoint.
	for changed := true; changed; {
		changed = false
		for i := len(post) - 1; i >= 0; i-- {
			bb := post[i]
			if bb == g.entryBlock {
				continue
			}
			var idom *BasicBlock
			for _, p := range bb.preds {
				if p != g.entryBlock && p.dominator == nil {
					continue // not processed yet
				}
				if idom == nil {
					idom = p
				} else {
					idom = intersect(idom, p, postNum)
				}
			}
			if idom != nil && bb.dominator != idom {
				bb.dominator = idom
				changed = true
			}
		}
	}

	g.reversePostOrder = make([]*BasicBlock, 0, len(post))
	for i := len(post) - 1; i >= 0; i-- {
		post[i].rpoNum = len(g.reversePostOrder)
		g.reversePostOrder = append(g.reversePostOrder, post[i])
	}

	for _, bb := range g.reversePostOrder {
		if bb.dominator != nil {
			bb.dominator.domChildren = append(bb.dominator.domChildren, bb)
		}
	}

	g.markLoopHeaders()
	return AnalysisSuccess
}

// intersect walks the two blocks' dominator chains to their closest common
// dominator, comparing postorder numbers.
func intersect(b, c *BasicBlock, postNum map[*BasicBlock]int) *BasicBlock {
	for b != c {
		for postNum[b] < postNum[c] {
			b = b.dominator
		}
		for postNum[c] < postNum[b] {
			c = c.dominator
		}
	}
	return b
}

// postorder returns a DFS postorder over blocks reachable from entry,
// using an explicit stack.
func (g *Graph) postorder() []*BasicBlock {
	type frame struct {
		bb    *BasicBlock
		index int // successor edges already explored
	}
	seen := make(map[*BasicBlock]bool, len(g.blocks))
	order := make([]*BasicBlock, 0, len(g.blocks))

	stack := make([]frame, 0, 32)
	stack = append(stack, frame{bb: g.entryBlock})
	seen[g.entryBlock] = true
	for len(stack) > 0 {
		tos := len(stack) - 1
		x := stack[tos]
		if i := x.index; i < len(x.bb.succs) {
			stack[tos].index++
			s := x.bb.succs[i]
			if !seen[s] {
				seen[s] = true
				stack = append(stack, frame{bb: s})
			}
			continue
		}
		stack = stack[:tos]
		order = append(order, x.bb)
	}
	return order
}

// checkTryReachability verifies that every handler of a try region with at
// least one reachable member block is itself reachable.
func (g *Graph) checkTryReachability(reachable map[*BasicBlock]bool) bool {
	for i := range g.tryRegions {
		info := &g.tryRegions[i]
		live := false
		for _, bb := range g.blocks {
			if bb.tryRegion == i && !bb.IsTryBoundary() && reachable[bb] {
				live = true
				break
			}
		}
		if !live {
			continue
		}
		for _, hb := range info.handlers {
			if !reachable[hb] {
				return false
			}
		}
	}
	return true
}

// markLoopHeaders flags blocks that have a back edge: a predecessor the
// block itself dominates. Exposed to later stages for phi-placement
// ordering tie-breaks.
func (g *Graph) markLoopHeaders() {
	for _, bb := range g.reversePostOrder {
		for _, p := range bb.preds {
			if bb.dominates(p) {
				bb.isLoopHeader = true
				break
			}
		}
	}
}
