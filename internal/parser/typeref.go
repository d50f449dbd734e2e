package parser

import (
	"github.com/averhart/lognorm/internal/pdag"
	"github.com/averhart/lognorm/internal/record"
)

// TypeRef delegates to a user-defined type's sub-DAG (rulebase
// `type=@name:...` definitions, referenced as `%field:@name%`). The
// compiler resolves the name and installs the type's root here.
type TypeRef struct {
	DAG *pdag.Node
}

// Parse prefix-matches the type's DAG. Fields captured inside the type
// become a nested object; a type without captures yields the matched
// substring.
func (t *TypeRef) Parse(buf []byte, off int) (int, any, error) {
	sub := record.Record{}
	end, ok := t.DAG.MatchPrefix(buf, off, sub)
	if !ok {
		return 0, nil, pdag.ErrWrongParser
	}
	if len(sub) == 0 {
		return end - off, nil, nil
	}
	return end - off, map[string]any(sub), nil
}
