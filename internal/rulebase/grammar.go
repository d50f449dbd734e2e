package rulebase

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/averhart/lognorm/internal/annot"
)

var annotLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z0-9_.]+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Punct", Pattern: `[+\-=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// annotOpsAST is the operation list of an annotate directive.
type annotOpsAST struct {
	Ops []*annotOpAST `parser:"@@*"`
}

// annotOpAST dispatches on the op sign: '+' adds a field, '-' removes one.
type annotOpAST struct {
	Add    *annotAddAST    `parser:"  \"+\" @@"`
	Remove *annotRemoveAST `parser:"| \"-\" @@"`
}

// annotAddAST: <name> = "<value>". Values carry no escape handling.
type annotAddAST struct {
	Name  string `parser:"@Ident \"=\""`
	Value string `parser:"@String"`
}

// annotRemoveAST: <name>
type annotRemoveAST struct {
	Name string `parser:"@Ident"`
}

var annotParser = participle.MustBuild[annotOpsAST](
	participle.Lexer(annotLexer),
	participle.Elide("Whitespace"),
)

// parseAnnotOps parses the operation list of an annotate directive into
// annotation ops.
func parseAnnotOps(input string) ([]annot.Op, error) {
	ast, err := annotParser.ParseString("", input)
	if err != nil {
		return nil, err
	}
	ops := make([]annot.Op, 0, len(ast.Ops))
	for _, op := range ast.Ops {
		switch {
		case op.Add != nil:
			value := op.Add.Value
			value = value[1 : len(value)-1] // strip surrounding quotes
			ops = append(ops, annot.Op{Opc: annot.OpAdd, Name: op.Add.Name, Value: value})
		case op.Remove != nil:
			ops = append(ops, annot.Op{Opc: annot.OpRemove, Name: op.Remove.Name})
		}
	}
	return ops, nil
}
