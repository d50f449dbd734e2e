package pdag

// Optimize compacts chains of single-child literal edges into one literal.
// The compiler emits one literal edge per byte; after this pass a plain
// word costs one edge instead of one per character, which cuts matcher
// recursion depth accordingly.
//
// A chain is only compacted while the intermediate node is not terminal
// (terminals and their tags must survive) and neither edge captures a
// field.
func Optimize(n *Node) {
	for _, e := range n.Edges {
		compactLiteralChain(e)
		Optimize(e.Target)
	}
}

func compactLiteralChain(e *Edge) {
	for {
		lit, ok := e.Parser.(*Literal)
		if !ok || e.Name != "-" {
			return
		}
		t := e.Target
		if t.Terminal || len(t.Edges) != 1 {
			return
		}
		child := t.Edges[0]
		childLit, ok := child.Parser.(*Literal)
		if !ok || child.Name != "-" {
			return
		}
		lit.Text += childLit.Text
		e.Target = child.Target
	}
}
