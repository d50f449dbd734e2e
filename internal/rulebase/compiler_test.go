package rulebase

import (
	"bufio"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/averhart/lognorm/internal/annot"
	"github.com/averhart/lognorm/internal/diag"
	"github.com/averhart/lognorm/internal/pdag"
	"github.com/averhart/lognorm/internal/record"
)

func buildCompiler(t *testing.T) *Compiler {
	t.Helper()
	return CreateCompiler(pdag.CreateNode(), annot.CreateSet(), &diag.Diag{}, false)
}

// loadLines feeds directives (without the version header) into a fresh
// compiler and fails the test on any syntax error.
func loadLines(t *testing.T, lines ...string) *Compiler {
	t.Helper()
	c := buildCompiler(t)
	for _, line := range lines {
		if err := c.ProcessLine(line); err != nil {
			t.Fatalf("processing %q: %v", line, err)
		}
	}
	return c
}

// matchFull matches input against the compiler's DAG and returns the
// captured fields plus the end node.
func matchFull(t *testing.T, c *Compiler, input string) (record.Record, *pdag.Node, bool) {
	t.Helper()
	rec := record.Record{}
	end, _, ok := c.Root.MatchFull([]byte(input), rec)
	return rec, end, ok
}

func TestRuleWordAndRest(t *testing.T) {
	c := loadLines(t, "rule=:%from:word% says %msg:rest%")

	rec, _, ok := matchFull(t, c, "foo says hello!")
	if !ok {
		t.Fatal("expected match")
	}
	want := record.Record{"from": "foo", "msg": "hello!"}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("rec = %v, want %v", rec, want)
	}
}

func TestRuleTags(t *testing.T) {
	c := loadLines(t, "rule=[tagA]:src=%src:ipv4% dst=%dst:ipv4%")

	rec, end, ok := matchFull(t, c, "src=10.0.0.1 dst=10.0.0.2")
	if !ok {
		t.Fatal("expected match")
	}
	if rec["src"] != "10.0.0.1" || rec["dst"] != "10.0.0.2" {
		t.Errorf("captures wrong: %v", rec)
	}
	if !reflect.DeepEqual(end.Tags, []string{"tagA"}) {
		t.Errorf("tags = %v, want [tagA]", end.Tags)
	}
}

func TestRuleTagsWithoutBrackets(t *testing.T) {
	c := loadLines(t, "rule=tagA,tagB:x")
	_, end, ok := matchFull(t, c, "x")
	if !ok {
		t.Fatal("expected match")
	}
	if !reflect.DeepEqual(end.Tags, []string{"tagA", "tagB"}) {
		t.Errorf("tags = %v, want [tagA tagB]", end.Tags)
	}
}

func TestBacktracking(t *testing.T) {
	c := loadLines(t,
		"rule=:%a:word% %b:word%",
		"rule=:%a:word% %b:rest%",
	)

	rec, _, ok := matchFull(t, c, "one two three")
	if !ok {
		t.Fatal("expected match")
	}
	if rec["a"] != "one" || rec["b"] != "two three" {
		t.Errorf("rec = %v, want a=one b=two three", rec)
	}

	// two words: the first rule wins
	rec, _, ok = matchFull(t, c, "one two")
	if !ok {
		t.Fatal("expected match")
	}
	if rec["a"] != "one" || rec["b"] != "two" {
		t.Errorf("rec = %v, want a=one b=two", rec)
	}
}

func TestPrefixAndExtendPrefix(t *testing.T) {
	c := loadLines(t,
		"prefix=%date:date-rfc3164% %host:word% ",
		"rule=:up %dev:word%",
		"extendprefix=kernel: ",
		"rule=:oops %code:number%",
	)

	rec, _, ok := matchFull(t, c, "Oct 11 22:14:15 box1 up eth0")
	if !ok {
		t.Fatal("first rule with prefix should match")
	}
	if rec["host"] != "box1" || rec["dev"] != "eth0" {
		t.Errorf("rec = %v", rec)
	}

	rec, _, ok = matchFull(t, c, "Oct 11 22:14:15 box1 kernel: oops 42")
	if !ok {
		t.Fatal("second rule with extended prefix should match")
	}
	if rec["code"] != "42" {
		t.Errorf("rec = %v", rec)
	}
}

func TestDoNotCaptureDash(t *testing.T) {
	c := loadLines(t, "rule=:%-:word% %user:word%")
	rec, _, ok := matchFull(t, c, "ignored alice")
	if !ok {
		t.Fatal("expected match")
	}
	if _, exists := rec["-"]; exists {
		t.Error("'-' must not be captured")
	}
	if rec["user"] != "alice" {
		t.Errorf("user = %v, want alice", rec["user"])
	}
}

func TestPercentEscape(t *testing.T) {
	c := loadLines(t, "rule=:cpu at 100%%")
	if _, _, ok := matchFull(t, c, "cpu at 100%"); !ok {
		t.Error("%% should compile to one literal percent")
	}
}

func TestJSONFieldReference(t *testing.T) {
	c := loadLines(t, `rule=:pid %{"name":"pid","type":"number"}% done`)
	rec, _, ok := matchFull(t, c, "pid 123 done")
	if !ok {
		t.Fatal("expected match")
	}
	if rec["pid"] != "123" {
		t.Errorf("pid = %v, want 123", rec["pid"])
	}
}

func TestLegacyJSONParamBlock(t *testing.T) {
	c := loadLines(t, `rule=:val %v:hexnumber{"maxval":255}% end`)
	if _, _, ok := matchFull(t, c, "val 0xff end"); !ok {
		t.Error("0xff is within maxval")
	}
	if _, _, ok := matchFull(t, c, "val 0x100 end"); ok {
		t.Error("0x100 exceeds maxval")
	}
}

func TestUserDefinedType(t *testing.T) {
	c := loadLines(t,
		"type=@pair:%key:alpha%=%val:number%",
		"rule=:set %p:@pair% ok",
	)
	rec, _, ok := matchFull(t, c, "set retries=5 ok")
	if !ok {
		t.Fatal("expected match")
	}
	want := map[string]any{"key": "retries", "val": "5"}
	if !reflect.DeepEqual(rec["p"], want) {
		t.Errorf("p = %v, want %v", rec["p"], want)
	}
}

func TestUnknownTypeReference(t *testing.T) {
	c := buildCompiler(t)
	err := c.ProcessLine("rule=:%x:@missing%")
	var se SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestRepeatRule(t *testing.T) {
	c := loadLines(t,
		`rule=:ports %{"name":"ports","type":"repeat","parser":{"name":"p","type":"number"},"while":{"type":"literal","text":","}}%`,
	)
	rec, _, ok := matchFull(t, c, "ports 80,443,8080")
	if !ok {
		t.Fatal("expected match")
	}
	want := []any{
		map[string]any{"p": "80"},
		map[string]any{"p": "443"},
		map[string]any{"p": "8080"},
	}
	if !reflect.DeepEqual(rec["ports"], want) {
		t.Errorf("ports = %v, want %v", rec["ports"], want)
	}
}

func TestAnnotateDirective(t *testing.T) {
	c := loadLines(t,
		`annotate=login:+origin="syslog" -password`,
		`annotate=login:+severity="info"`,
	)
	ops := c.Annots.Lookup("login")
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3 (concatenated across directives)", len(ops))
	}
	if ops[0].Opc != annot.OpAdd || ops[0].Name != "origin" || ops[0].Value != "syslog" {
		t.Errorf("op[0] = %+v", ops[0])
	}
	if ops[1].Opc != annot.OpRemove || ops[1].Name != "password" {
		t.Errorf("op[1] = %+v", ops[1])
	}
	if ops[2].Name != "severity" || ops[2].Value != "info" {
		t.Errorf("op[2] = %+v", ops[2])
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "unknown directive", line: "bogus=whatever"},
		{name: "no equals sign", line: "bogus"},
		{name: "unknown parser kind", line: "rule=:%f:nosuchparser%"},
		{name: "empty rule", line: "rule=:"},
		{name: "type without at", line: "type=pair:%k:word%"},
		{name: "type with whitespace", line: "type=@my pair:%k:word%"},
		{name: "annotation without colon", line: `annotate=login +x="1"`},
		{name: "field name too long", line: "rule=:%" + strings.Repeat("n", 200) + ":word%"},
		{name: "bad json config", line: `rule=:%{"name":"x","type":%`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := buildCompiler(t)
			err := c.ProcessLine(tc.line)
			var se SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("expected SyntaxError, got %v", err)
			}
		})
	}
}

func TestLoadReaderRequiresVersion2(t *testing.T) {
	c := buildCompiler(t)
	err := c.LoadReader(strings.NewReader("version=1\nrule=:x\n"))
	var se SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError for bad version, got %v", err)
	}

	c = buildCompiler(t)
	if err := c.LoadReader(strings.NewReader("version=2\nrule=:x\n")); err != nil {
		t.Fatalf("v2 rulebase should load: %v", err)
	}
}

func TestLoadReaderContinuesPastBadLines(t *testing.T) {
	var reported []string
	c := CreateCompiler(pdag.CreateNode(), annot.CreateSet(),
		&diag.Diag{ErrorCB: func(msg string) { reported = append(reported, msg) }}, false)

	rb := "version=2\nrule=:%f:nosuchparser%\nrule=:good %w:word%\n"
	if err := c.LoadReader(strings.NewReader(rb)); err != nil {
		t.Fatalf("load should not abort on a bad rule: %v", err)
	}
	if len(reported) != 1 {
		t.Fatalf("got %d error reports, want 1: %v", len(reported), reported)
	}
	if _, _, ok := matchFull(t, c, "good stuff"); !ok {
		t.Error("the rule after the bad line must still be loaded")
	}
}

func TestReadLogicalLine(t *testing.T) {
	input := "# a comment\n\nrule=:a %f:char-to:\n,% b\nrule=:second\nlast-no-newline"
	br := bufio.NewReader(strings.NewReader(input))

	line, err := readLogicalLine(br)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the newline inside the field reference continues the line
	if line != "rule=:a %f:char-to:,% b" {
		t.Errorf("line = %q", line)
	}

	line, err = readLogicalLine(br)
	if err != nil || line != "rule=:second" {
		t.Errorf("line = %q, err = %v", line, err)
	}

	line, err = readLogicalLine(br)
	if err != nil || line != "last-no-newline" {
		t.Errorf("line = %q, err = %v", line, err)
	}

	if _, err = readLogicalLine(br); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
