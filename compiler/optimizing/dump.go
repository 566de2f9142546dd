package optimizing

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// DumpGraph renders a built graph's block structure as a table. Meant for
// debugging and the graphdump tool, not for machine consumption.
func DumpGraph(w io.Writer, g *Graph) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Range", "Preds", "Succs", "Dom", "Flags", "Phis", "Instructions"})
	table.SetAutoWrapText(false)

	for _, bb := range g.Blocks() {
		table.Append([]string{
			blockName(g, bb),
			fmt.Sprintf("[%d,%d)", bb.StartOff(), bb.EndOff()),
			blockList(g, bb.Predecessors()),
			blockList(g, bb.Successors()),
			domName(g, bb),
			blockFlags(bb),
			phiList(bb),
			instList(bb),
		})
	}
	table.Render()
}

func blockName(g *Graph, bb *BasicBlock) string {
	switch bb {
	case g.EntryBlock():
		return "entry"
	case g.ExitBlock():
		return "exit"
	}
	return fmt.Sprintf("B%d", bb.BlockNum())
}

func blockList(g *Graph, blocks []*BasicBlock) string {
	if len(blocks) == 0 {
		return "-"
	}
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = blockName(g, b)
	}
	return strings.Join(names, ",")
}

func domName(g *Graph, bb *BasicBlock) string {
	if bb.Dominator() == nil {
		return "-"
	}
	return blockName(g, bb.Dominator())
}

func blockFlags(bb *BasicBlock) string {
	var flags []string
	if bb.IsLoopHeader() {
		flags = append(flags, "loop")
	}
	if bb.IsCatchHandler() {
		flags = append(flags, "catch")
	}
	if bb.IsTryBoundary() {
		flags = append(flags, "boundary")
	}
	if bb.TryRegion() >= 0 {
		flags = append(flags, fmt.Sprintf("try%d", bb.TryRegion()))
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func phiList(bb *BasicBlock) string {
	phis := bb.Phis()
	if len(phis) == 0 {
		return "-"
	}
	parts := make([]string, len(phis))
	for i, p := range phis {
		parts[i] = fmt.Sprintf("v%d:%s/%d", p.vreg, p.Type(), len(p.Inputs()))
	}
	return strings.Join(parts, " ")
}

func instList(bb *BasicBlock) string {
	insts := bb.Instructions()
	if len(insts) == 0 {
		return "-"
	}
	parts := make([]string, len(insts))
	for i, h := range insts {
		s := h.Op().String()
		if h.ResultType() != TypeVoid {
			s += ":" + h.ResultType().String()
		}
		if h.IsUnresolved() {
			s += "!"
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}
