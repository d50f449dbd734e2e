package lognorm

import (
	"fmt"
	"io"
	"os"

	"github.com/averhart/lognorm/internal/annot"
	"github.com/averhart/lognorm/internal/diag"
	"github.com/averhart/lognorm/internal/pdag"
	"github.com/averhart/lognorm/internal/record"
	"github.com/averhart/lognorm/internal/rulebase"
)

// Record is the normalization result: a tree of name/value pairs.
type Record = record.Record

// Reserved record keys.
const (
	OriginalMsgKey  = record.OriginalMsgKey
	UnparsedDataKey = record.UnparsedDataKey
	TagsKey         = record.TagsKey
)

const (
	ctxMagic = 0xfefe0001
	ctxDead  = 0xfefe0000
)

// CtxError reports misuse of a context (most notably use after Destroy).
type CtxError struct {
	Message string
}

func (e CtxError) Error() string {
	return fmt.Sprintf("context error: %v", e.Message)
}

// Ctx owns one main PDAG, the sub-DAGs of user-defined types, the
// annotation set and the context options. A context is mutated only while
// rulebases load; matching reads it without locking, so a caller that
// wants parallelism uses one context per goroutine or its own lock.
type Ctx struct {
	magic      uint32
	dag        *pdag.Node
	annots     *annot.Set
	compiler   *rulebase.Compiler
	diag       diag.Diag
	allowRegex bool
}

// Option configures a context at creation time.
type Option func(*Ctx)

// WithAllowRegex enables the regex parser kind, which is disabled by
// default.
func WithAllowRegex(v bool) Option {
	return func(c *Ctx) { c.allowRegex = v }
}

func New(opts ...Option) *Ctx {
	c := &Ctx{
		magic:  ctxMagic,
		dag:    pdag.CreateNode(),
		annots: annot.CreateSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.compiler = rulebase.CreateCompiler(c.dag, c.annots, &c.diag, c.allowRegex)
	return c
}

// Destroy invalidates the context. Any later call returns a CtxError and
// has no side effects.
func (c *Ctx) Destroy() {
	c.magic = ctxDead
	c.dag = nil
	c.annots = nil
	c.compiler = nil
}

func (c *Ctx) check() error {
	if c == nil || c.magic != ctxMagic {
		return CtxError{Message: "invalid or destroyed context"}
	}
	return nil
}

// SetDebugCB installs the debug callback. It is invoked synchronously
// from within load and match calls and must not re-enter the engine.
func (c *Ctx) SetDebugCB(cb func(msg string)) error {
	if err := c.check(); err != nil {
		return err
	}
	c.diag.DebugCB = cb
	return nil
}

// SetErrorCB installs the error callback, which receives rulebase syntax
// errors with line context. Same re-entrancy rule as SetDebugCB.
func (c *Ctx) SetErrorCB(cb func(msg string)) error {
	if err := c.check(); err != nil {
		return err
	}
	c.diag.ErrorCB = cb
	return nil
}

// LoadRulebase loads a v2 rulebase file and optimizes the DAG afterwards.
// Syntax errors past the version header are reported through the error
// callback and skipped; they do not abort the load.
func (c *Ctx) LoadRulebase(path string) error {
	if err := c.check(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		c.diag.Errorf("cannot open file %s: %v", path, err)
		return err
	}
	defer f.Close()
	return c.loadReader(f)
}

// LoadRulebaseReader is LoadRulebase over an arbitrary reader.
func (c *Ctx) LoadRulebaseReader(r io.Reader) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.loadReader(r)
}

func (c *Ctx) loadReader(r io.Reader) error {
	if err := c.compiler.LoadReader(r); err != nil {
		return err
	}
	pdag.Optimize(c.dag)
	for _, td := range c.compiler.Types {
		pdag.Optimize(td)
	}
	return nil
}

// Normalize matches one message against the loaded rulebase and returns a
// freshly allocated record. A non-matching message is not an error: the
// returned record then carries the original message and the unparsed
// suffix under the reserved keys.
func (c *Ctx) Normalize(msg []byte) (Record, error) {
	rec := Record{}
	if err := c.NormalizeInto(msg, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// NormalizeInto is Normalize with a caller-provided record.
func (c *Ctx) NormalizeInto(msg []byte, rec Record) error {
	if err := c.check(); err != nil {
		return err
	}
	end, furthest, ok := c.dag.MatchFull(msg, rec)
	if !ok {
		rec[record.OriginalMsgKey] = string(msg)
		rec[record.UnparsedDataKey] = string(msg[furthest:])
		return nil
	}
	if len(end.Tags) > 0 {
		tags := make([]string, len(end.Tags))
		copy(tags, end.Tags)
		rec[record.TagsKey] = tags
		c.annots.Apply(rec, tags)
	}
	c.diag.Debugf("normalize: matched, %d tags", len(end.Tags))
	return nil
}
