package rulebase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/averhart/lognorm/internal/annot"
	"github.com/averhart/lognorm/internal/diag"
	"github.com/averhart/lognorm/internal/parser"
	"github.com/averhart/lognorm/internal/pdag"
)

// typeKindBase is the first pseudo kind ID handed out to user-defined
// types. Each type gets its own kind so that references to different types
// never merge into one edge.
const typeKindBase = 1000

// Compiler consumes rulebase directives one line at a time and mutates the
// context's PDAG, type DAGs and annotation set.
type Compiler struct {
	Root   *pdag.Node
	Types  map[string]*pdag.Node
	Annots *annot.Set

	diag       *diag.Diag
	allowRegex bool

	prefix    string
	typeKinds map[string]int
	line      int
}

func CreateCompiler(root *pdag.Node, annots *annot.Set, d *diag.Diag, allowRegex bool) *Compiler {
	return &Compiler{
		Root:       root,
		Types:      make(map[string]*pdag.Node),
		Annots:     annots,
		diag:       d,
		allowRegex: allowRegex,
		typeKinds:  make(map[string]int),
	}
}

// LoadReader loads a whole rulebase. The first line must be exactly
// "version=2"; any other first line aborts the load. Later syntax errors
// are reported through the error callback and skipped, so one bad line
// does not lose the rest of the rulebase.
func (c *Compiler) LoadReader(r io.Reader) error {
	br := bufio.NewReader(r)
	first := true
	for {
		line, err := readLogicalLine(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			c.diag.Errorf("rulebase: %v", err)
			return err
		}
		c.line++
		if first {
			first = false
			if line != "version=2" {
				err := SyntaxError{
					Line:    c.line,
					Kind:    "BadVersion",
					Message: fmt.Sprintf("first line must be \"version=2\", got %q", line),
				}
				c.diag.Errorf("%v", err)
				return err
			}
			continue
		}
		if err := c.ProcessLine(line); err != nil {
			c.diag.Errorf("%v", err)
		}
	}
}

// ProcessLine handles one directive of the form kind=payload.
func (c *Compiler) ProcessLine(line string) error {
	c.diag.Debugf("rulebase line: %q", line)
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return invalidDirective(c.line, line)
	}
	kind, payload := line[:idx], line[idx+1:]
	switch kind {
	case "prefix":
		c.prefix = payload
	case "extendprefix":
		c.prefix += payload
	case "rule":
		return c.processRule(payload)
	case "type":
		return c.processType(payload)
	case "annotate":
		return c.processAnnotate(payload)
	default:
		return invalidDirective(c.line, kind)
	}
	return nil
}

// splitTags splits "TAG1,TAG2:rest". The tag list may be wrapped in
// square brackets; empty entries are dropped. The first ':' outside the
// brackets ends the list.
func splitTags(payload string) (tags []string, rest string, err error) {
	list := ""
	if strings.HasPrefix(payload, "[") {
		end := strings.IndexByte(payload, ']')
		if end < 0 || end+1 >= len(payload) || payload[end+1] != ':' {
			return nil, "", SyntaxError{Kind: "InvalidTags", Message: "unterminated tag list"}
		}
		list = payload[1:end]
		rest = payload[end+2:]
	} else {
		colon := strings.IndexByte(payload, ':')
		if colon < 0 {
			return nil, "", SyntaxError{Kind: "InvalidTags", Message: "missing ':' after tag list"}
		}
		list = payload[:colon]
		rest = payload[colon+1:]
	}
	for _, t := range strings.Split(list, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags, rest, nil
}

func (c *Compiler) processRule(payload string) error {
	tags, pattern, err := splitTags(payload)
	if err != nil {
		se := err.(SyntaxError)
		se.Line = c.line
		return se
	}
	if pattern == "" {
		return SyntaxError{Line: c.line, Kind: "EmptyRule", Message: "actual message sample part is missing"}
	}
	end, err := c.compilePattern(c.Root, c.prefix+pattern)
	if err != nil {
		return err
	}
	end.Terminal = true
	if len(tags) > 0 {
		end.Tags = append(end.Tags, tags...)
	}
	return nil
}

func (c *Compiler) processType(payload string) error {
	if !strings.HasPrefix(payload, "@") {
		return SyntaxError{Line: c.line, Kind: "InvalidTypeName",
			Message: "user-defined type name must start with '@'"}
	}
	colon := strings.IndexByte(payload, ':')
	if colon < 0 {
		return SyntaxError{Line: c.line, Kind: "InvalidTypeName", Message: "missing ':' after type name"}
	}
	name := payload[:colon]
	if strings.ContainsAny(name, " \t") {
		return SyntaxError{Line: c.line, Kind: "InvalidTypeName",
			Message: "user-defined type name must not contain whitespace"}
	}
	pattern := payload[colon+1:]
	if pattern == "" {
		return SyntaxError{Line: c.line, Kind: "EmptyRule",
			Message: "actual message sample part is missing in type def"}
	}
	root, ok := c.Types[name]
	if !ok {
		root = pdag.CreateNode()
		c.Types[name] = root
		c.typeKinds[name] = typeKindBase + len(c.typeKinds)
	}
	end, err := c.compilePattern(root, pattern)
	if err != nil {
		return err
	}
	end.Terminal = true
	return nil
}

func (c *Compiler) processAnnotate(payload string) error {
	i := 0
	for i < len(payload) && isTagChar(payload[i]) {
		i++
	}
	tag := payload[:i]
	for i < len(payload) && (payload[i] == ' ' || payload[i] == '\t') {
		i++
	}
	if tag == "" || i == len(payload) || payload[i] != ':' {
		return SyntaxError{Line: c.line, Kind: "InvalidAnnotation",
			Message: fmt.Sprintf("invalid tag field in annotation %q", payload)}
	}
	ops, err := parseAnnotOps(payload[i+1:])
	if err != nil {
		return SyntaxError{Line: c.line, Kind: "InvalidAnnotation", Message: err.Error()}
	}
	c.Annots.Add(tag, ops)
	return nil
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '.'
}

// compilePattern walks one sample pattern and grows the DAG from start,
// returning the node the pattern ends on. Literal runs are emitted one
// edge per byte (the optimizer compacts them later), field references
// install one parser edge each.
func (c *Compiler) compilePattern(start *pdag.Node, pattern string) (*pdag.Node, error) {
	node := start
	buf := []byte(pattern)
	i := 0
	for i < len(buf) {
		lit, next := scanLiteralRun(buf, i)
		for _, b := range []byte(unescapeRuleText(lit)) {
			node = node.AddEdge(pdag.KindLiteral, "-", &pdag.Literal{Text: string([]byte{b})})
		}
		i = next
		if i < len(buf) {
			cfg, next, err := parseFieldRef(buf, i, c.line)
			if err != nil {
				return nil, err
			}
			node, err = c.addFieldEdge(node, cfg)
			if err != nil {
				return nil, err
			}
			i = next
		}
	}
	return node, nil
}

// scanLiteralRun consumes literal text up to the next field reference.
// "%%" stands for one literal '%'.
func scanLiteralRun(buf []byte, i int) (lit string, next int) {
	var out []byte
	for i < len(buf) {
		if buf[i] == '%' {
			if i+1 < len(buf) && buf[i+1] != '%' {
				break // field reference starts here
			}
			i++
			if i == len(buf) {
				break
			}
		}
		out = append(out, buf[i])
		i++
	}
	return string(out), i
}

// addFieldEdge installs the parser edge described by cfg and returns the
// edge's target node.
func (c *Compiler) addFieldEdge(node *pdag.Node, cfg parser.Config) (*pdag.Node, error) {
	name := cfg.Name
	if name == "" {
		name = "-"
	}

	if strings.HasPrefix(cfg.Type, "@") {
		td, ok := c.Types[cfg.Type]
		if !ok {
			return nil, SyntaxError{Line: c.line, Kind: "UnknownType",
				Message: fmt.Sprintf("unknown user-defined type %q", cfg.Type)}
		}
		return node.AddEdge(c.typeKinds[cfg.Type], name, &parser.TypeRef{DAG: td}), nil
	}

	id, info, ok := parser.Lookup(cfg.Type)
	if !ok {
		return nil, SyntaxError{Line: c.line, Kind: "UnknownParser",
			Message: fmt.Sprintf("unknown parser kind %q", cfg.Type)}
	}
	p, err := info.Construct(cfg, c.env())
	if err != nil {
		return nil, SyntaxError{Line: c.line, Kind: "BadParserConfig", Message: err.Error()}
	}
	c.diag.Debugf("field type %q, name %q", parser.KindName(id), name)
	return node.AddEdge(id, name, p), nil
}

func (c *Compiler) env() *parser.Env {
	return &parser.Env{
		BuildDAG:   c.buildSubDAG,
		AllowRegex: c.allowRegex,
		Diag:       c.diag,
	}
}

// buildSubDAG compiles a JSON parser definition into its own small DAG.
// An object is a single parser; an array is a sequence. The end node is
// marked terminal so prefix matching stops there.
func (c *Compiler) buildSubDAG(params gjson.Result) (*pdag.Node, error) {
	root := pdag.CreateNode()
	node := root
	add := func(obj gjson.Result) error {
		cfg := parser.Config{
			Name:   obj.Get("name").String(),
			Type:   obj.Get("type").String(),
			Extra:  obj.Get("extradata").String(),
			Params: obj,
		}
		var err error
		node, err = c.addFieldEdge(node, cfg)
		return err
	}
	if params.IsArray() {
		for _, obj := range params.Array() {
			if err := add(obj); err != nil {
				return nil, err
			}
		}
	} else {
		if err := add(params); err != nil {
			return nil, err
		}
	}
	node.Terminal = true
	return root, nil
}
