package pdag

import "github.com/averhart/lognorm/internal/record"

// MatchFull walks the DAG from n against the whole buffer. It returns the
// node the walk ended on, the furthest offset any attempt reached, and
// whether a complete match was found. The match succeeded only if ok is
// true and the end node is terminal; captured fields have then been stored
// into rec. On failure rec is untouched.
func (n *Node) MatchFull(buf []byte, rec record.Record) (end *Node, furthest int, ok bool) {
	end, _, ok = n.match(buf, 0, &furthest, rec, false)
	return end, furthest, ok && end.Terminal
}

// MatchPrefix walks the DAG from n starting at off and accepts at a
// terminal node without requiring the input to be consumed. A terminal
// node's own edges are tried first, so a longer path through it wins when
// one reaches another terminal. It returns the offset after the matched
// prefix. Used by the repeat parser and user-defined types.
func (n *Node) MatchPrefix(buf []byte, off int, rec record.Record) (endOff int, ok bool) {
	furthest := off
	end, endOff, ok := n.match(buf, off, &furthest, rec, true)
	return endOff, ok && end.Terminal
}

// match is the recursive matcher step. Edges are tried in insertion order;
// the first edge sequence producing a complete match wins. Values produced
// speculatively are discarded on backtrack: a captured value is stored into
// rec only while unwinding a successful path, so a failed branch leaves no
// trace.
//
// In full mode a node accepts when the offset has reached the end of the
// buffer; the caller then checks the terminal flag. In prefix mode a node
// accepts when it is terminal, wherever the offset stands.
func (n *Node) match(buf []byte, off int, furthest *int, rec record.Record, prefix bool) (*Node, int, bool) {
	for _, e := range n.Edges {
		parsed, value, err := e.Parser.Parse(buf, off)
		if err != nil {
			// a literal reports partial progress even on non-match
			if p := off + parsed; p > *furthest {
				*furthest = p
			}
			continue
		}
		next := off + parsed
		if next > *furthest {
			*furthest = next
		}
		end, endOff, ok := e.Target.match(buf, next, furthest, rec, prefix)
		if ok && end.Terminal {
			if e.Name != "-" {
				if value == nil {
					value = string(buf[off:next])
				}
				rec[e.Name] = value
			}
			return end, endOff, true
		}
	}
	if prefix {
		return n, off, n.Terminal
	}
	return n, off, off == len(buf)
}
