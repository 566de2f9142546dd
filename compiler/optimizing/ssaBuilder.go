package optimizing

// ssaBuilder finishes the graph the materializer left behind: provisional
// phis get their inputs tied off from predecessor exit state, redundant
// phis collapse onto their single real input, dead phis are pruned, and the
// int/float (and long/double) ambiguity the bytecode does not encode is
// resolved from how each value is used.
type ssaBuilder struct {
	graph *Graph

	// phiUses maps a value to the live phis consuming it as an input.
	phiUses map[*Value][]*Value
}

func newSSABuilder(g *Graph) *ssaBuilder {
	return &ssaBuilder{graph: g}
}

func (sb *ssaBuilder) build() bool {
	sb.tieOffPhis()
	sb.eliminateRedundantPhis()
	sb.rewriteUses()
	if !sb.collectLivePhis() {
		return false
	}
	if !sb.resolveTypes() {
		return false
	}
	sb.defaultRemaining()
	return true
}

// tieOffPhis fills in phi inputs in predecessor order. A nil input means
// the vreg is undefined along that edge; that only becomes an error if the
// phi survives pruning.
func (sb *ssaBuilder) tieOffPhis() {
	for _, bb := range sb.graph.reversePostOrder {
		for vreg, v := range bb.localsIn {
			if v == nil || !v.isPhi() || v.block != bb || !v.provisional {
				continue
			}
			v.inputs = make([]*Value, len(bb.preds))
			for i, pred := range bb.preds {
				if vreg < len(pred.localsOut) {
					v.inputs[i] = pred.localsOut[vreg]
				}
			}
			v.provisional = false
		}
	}
}

// eliminateRedundantPhis runs the usual fixpoint: a phi whose inputs all
// resolve to one value (or back to the phi itself) forwards to that value.
// Collapsing one phi can make another redundant, so iterate to fixpoint.
func (sb *ssaBuilder) eliminateRedundantPhis() {
	for changed := true; changed; {
		changed = false
		for _, bb := range sb.graph.reversePostOrder {
			for _, v := range bb.localsIn {
				if v == nil || !v.isPhi() || v.block != bb || v.repl != nil {
					continue
				}
				var unique *Value
				trivial := true
				for _, in := range v.inputs {
					if in == nil {
						continue
					}
					in = in.resolve()
					if in == v {
						continue
					}
					if unique == nil {
						unique = in
					} else if unique != in {
						trivial = false
						break
					}
				}
				if trivial && unique != nil {
					v.repl = unique
					changed = true
				}
			}
		}
	}
}

// rewriteUses chases replacement links everywhere a value is referenced so
// later stages never see a forwarded phi.
func (sb *ssaBuilder) rewriteUses() {
	for _, bb := range sb.graph.reversePostOrder {
		for _, h := range bb.instructions {
			for i, v := range h.operands {
				if v != nil {
					h.operands[i] = v.resolve()
				}
			}
			for i, v := range h.env {
				if v != nil {
					h.env[i] = v.resolve()
				}
			}
		}
		for i, v := range bb.localsIn {
			if v != nil {
				bb.localsIn[i] = v.resolve()
			}
		}
		for i, v := range bb.localsOut {
			if v != nil {
				bb.localsOut[i] = v.resolve()
			}
		}
	}
}

// collectLivePhis computes phi liveness from real instruction uses and
// prunes the rest. A live phi must have a value on every incoming edge and
// all its inputs must agree on width; a nil or width-mismatched input on a
// live phi means the bytecode reads a vreg that is not consistently
// defined, which fails the build.
func (sb *ssaBuilder) collectLivePhis() bool {
	live := make(map[*Value]bool)
	var work []*Value

	markLive := func(v *Value) {
		if v != nil && v.isPhi() && v.repl == nil && !live[v] {
			live[v] = true
			work = append(work, v)
		}
	}

	for _, bb := range sb.graph.reversePostOrder {
		for _, h := range bb.instructions {
			for _, v := range h.operands {
				markLive(v)
			}
		}
	}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		for _, in := range p.inputs {
			if in != nil {
				markLive(in.resolve())
			}
		}
	}

	sb.phiUses = make(map[*Value][]*Value)
	var allPhis []*Value
	for _, bb := range sb.graph.reversePostOrder {
		bb.phis = bb.phis[:0]
		for _, v := range bb.localsIn {
			if v == nil || !v.isPhi() || v.block != bb || v.repl != nil {
				continue
			}
			if !live[v] {
				continue
			}
			for i, in := range v.inputs {
				if in == nil {
					DebugInfo("live phi with undefined input", "block", bb.blockNum, "vreg", v.vreg)
					return false
				}
				in = in.resolve()
				v.inputs[i] = in
				sb.phiUses[in] = append(sb.phiUses[in], v)
			}
			bb.phis = append(bb.phis, v)
			allPhis = append(allPhis, v)
		}
	}

	// Phi widths flow from non-phi inputs; a phi feeding a phi settles once
	// the chain's concrete member is seen, so iterate to fixpoint before
	// checking for pair/single mixes.
	for changed := true; changed; {
		changed = false
		for _, p := range allPhis {
			if p.typ.isWide() {
				continue
			}
			for _, in := range p.inputs {
				if in.typ.isWide() {
					p.typ = TypeAmbiguousWide
					changed = true
					break
				}
			}
		}
	}
	for _, p := range allPhis {
		for _, in := range p.inputs {
			if in.typ.isWide() != p.typ.isWide() {
				return false
			}
		}
	}

	// Environment snapshots reference phis that may just have been pruned;
	// they carry no liveness, so pruned entries are cleared.
	for _, bb := range sb.graph.reversePostOrder {
		for _, h := range bb.instructions {
			for i, v := range h.env {
				if v != nil && v.isPhi() && !live[v] {
					h.env[i] = nil
				}
			}
		}
	}
	return true
}

// applyType pins v to want, propagating through phis in both directions.
// Constants tolerate conflicting concrete uses of the same width (the
// encoding of 0 doubles as null, int and float); everything else treats a
// same-width disagreement as malformed bytecode.
func (sb *ssaBuilder) applyType(v *Value, want ValueType, changed *bool) bool {
	if v == nil || want.isAmbiguous() || want == TypeVoid {
		return true
	}
	if !v.typ.isAmbiguous() {
		if v.typ == want {
			return true
		}
		if v.kind == Konst && v.typ.isWide() == want.isWide() {
			return true
		}
		return false
	}
	if v.typ.isWide() != want.isWide() {
		return false
	}
	v.typ = want
	*changed = true

	if v.def != nil && v.def.resultType.isAmbiguous() {
		v.def.resultType = want
	}
	if v.isPhi() {
		for _, in := range v.inputs {
			if !sb.applyType(in, want, changed) {
				return false
			}
		}
	}
	for _, p := range sb.phiUses[v] {
		if v.kind != Konst {
			if !sb.applyType(p, want, changed) {
				return false
			}
		}
	}
	return true
}

// resolveTypes runs the disambiguation fixpoint. Constraints are visited
// in a canonical order (reverse postorder, then instruction order, then
// operands left to right) so the first disambiguating use wins
// deterministically.
func (sb *ssaBuilder) resolveTypes() bool {
	for changed := true; changed; {
		changed = false
		for _, bb := range sb.graph.reversePostOrder {
			for _, h := range bb.instructions {
				for i, want := range h.operandTypes {
					if i >= len(h.operands) {
						break
					}
					if !sb.applyType(h.operands[i], want, &changed) {
						return false
					}
				}
			}
			// Non-constant concrete phi inputs pin the phi.
			for _, p := range bb.phis {
				for _, in := range p.inputs {
					if in.kind != Konst && !in.typ.isAmbiguous() {
						if !sb.applyType(p, in.typ, &changed) {
							return false
						}
					}
				}
			}
		}
	}
	return true
}

// defaultRemaining resolves values no use disambiguated: 32-bit ambiguity
// falls back to int, 64-bit to long.
func (sb *ssaBuilder) defaultRemaining() {
	sb.graph.arena.values.forEach(func(v *Value) {
		if v.typ.isAmbiguous() {
			v.typ = v.typ.defaultResolved()
		}
	})
	sb.graph.arena.insts.forEach(func(h *HIR) {
		if h.resultType.isAmbiguous() {
			h.resultType = h.resultType.defaultResolved()
		}
	})
}
