package parser

import (
	"regexp"

	"github.com/averhart/lognorm/internal/pdag"
)

// regexParser anchors a regular expression at the current offset. It is
// only available when the context was created with the allow_regex
// option; rulebases relying on it are not portable across engines.
type regexParser struct {
	re *regexp.Regexp
}

func constructRegex(cfg Config, env *Env) (pdag.Parser, error) {
	if env == nil || !env.AllowRegex {
		return nil, ConfigError{Parser: "regex", Message: "regex support is disabled (allow_regex option)"}
	}
	expr := cfg.Extra
	if p := cfg.param("expr"); p.Exists() {
		expr = p.String()
	}
	if expr == "" {
		return nil, ConfigError{Parser: "regex", Message: "missing expression"}
	}
	re, err := regexp.Compile("^(?:" + expr + ")")
	if err != nil {
		return nil, ConfigError{Parser: "regex", Message: err.Error()}
	}
	return &regexParser{re: re}, nil
}

func (p *regexParser) Parse(buf []byte, off int) (int, any, error) {
	loc := p.re.FindIndex(buf[off:])
	if loc == nil {
		return 0, nil, pdag.ErrWrongParser
	}
	return loc[1], nil, nil
}
