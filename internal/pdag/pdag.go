package pdag

import "errors"

// ErrWrongParser is the internal non-match signal. Parsers return it when
// the input at the current offset is not theirs; the matcher treats it as
// "try the next edge" and it never escapes to callers.
var ErrWrongParser = errors.New("wrong parser")

// KindLiteral is the stable kind ID of the literal parser. It is pinned
// here because the node merge rule and the optimizer both special-case
// literals.
const KindLiteral = 0

// Parser recognises one token at a given offset of an input buffer.
//
// On success it returns the number of bytes consumed starting at off and
// an optional structured value; a nil value means "the matched substring".
// On non-match it returns ErrWrongParser; parsed may still be non-zero in
// that case to report how far the parser got (literals do this so the
// matcher can maintain the furthest-reached offset).
//
// A Parser must not mutate the buffer and must be safe to invoke repeatedly
// at any offset.
type Parser interface {
	Parse(buf []byte, off int) (parsed int, value any, err error)
}

// Edge is a parser instance with a target node.
type Edge struct {
	Kind   int
	Name   string // field name; "-" means do not capture
	Parser Parser
	Target *Node
}

// Node is one match state of the parse DAG. Edges are tried in insertion
// order during matching; this is the only precedence mechanism.
type Node struct {
	Edges    []*Edge
	Terminal bool
	Tags     []string
}

func CreateNode() *Node {
	return &Node{}
}

// AddEdge installs an edge and returns its target node. If an equivalent
// edge already exists the existing target is returned instead and the new
// edge is dropped. Equivalence is (kind, name), and for literal edges
// additionally the first byte of the literal text: two literals with
// different first bytes stay separate branches.
func (n *Node) AddEdge(kind int, name string, p Parser) *Node {
	for _, e := range n.Edges {
		if e.Kind != kind || e.Name != name {
			continue
		}
		if kind == KindLiteral {
			if firstLiteralByte(e.Parser) != firstLiteralByte(p) {
				continue
			}
		}
		return e.Target
	}
	e := &Edge{Kind: kind, Name: name, Parser: p, Target: CreateNode()}
	n.Edges = append(n.Edges, e)
	return e.Target
}

func firstLiteralByte(p Parser) byte {
	lit, ok := p.(*Literal)
	if !ok || len(lit.Text) == 0 {
		return 0
	}
	return lit.Text[0]
}
