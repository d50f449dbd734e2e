package parser

import (
	"github.com/averhart/lognorm/internal/pdag"
	"github.com/averhart/lognorm/internal/record"
)

// repeatParser runs its element sub-DAG to produce one array entry, then
// its while sub-DAG to decide whether another entry follows. Matching
// stops at the first non-match of the while condition; the bytes it
// consumed (typically a separator) are part of the overall match.
type repeatParser struct {
	parser    *pdag.Node
	whileCond *pdag.Node
}

func constructRepeat(cfg Config, env *Env) (pdag.Parser, error) {
	prsCnf := cfg.param("parser")
	whileCnf := cfg.param("while")
	if !prsCnf.Exists() || !whileCnf.Exists() {
		return nil, ConfigError{Parser: "repeat", Message: "needs 'parser' and 'while' parameters"}
	}
	prs, err := env.BuildDAG(prsCnf)
	if err != nil {
		return nil, err
	}
	while, err := env.BuildDAG(whileCnf)
	if err != nil {
		return nil, err
	}
	return &repeatParser{parser: prs, whileCond: while}, nil
}

func (p *repeatParser) Parse(buf []byte, off int) (int, any, error) {
	var elems []any
	cur := off
	for {
		elem := record.Record{}
		end, ok := p.parser.MatchPrefix(buf, cur, elem)
		if !ok {
			if len(elems) == 0 {
				return 0, nil, pdag.ErrWrongParser
			}
			break
		}
		elems = append(elems, map[string]any(elem))
		cur = end

		discard := record.Record{}
		end, ok = p.whileCond.MatchPrefix(buf, cur, discard)
		if !ok {
			break
		}
		cur = end
	}
	return cur - off, elems, nil
}
