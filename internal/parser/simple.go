package parser

import (
	"bytes"

	"github.com/averhart/lognorm/internal/pdag"
)

func constructLiteral(cfg Config, _ *Env) (pdag.Parser, error) {
	text := cfg.Extra
	if p := cfg.param("text"); p.Exists() {
		text = p.String()
	}
	if text == "" {
		return nil, ConfigError{Parser: "literal", Message: "missing 'text' parameter"}
	}
	return &pdag.Literal{Text: text}, nil
}

// numberParser matches the longest run of decimal digits.
type numberParser struct{}

func constructNumber(Config, *Env) (pdag.Parser, error) { return numberParser{}, nil }

func (numberParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && isDigit(buf[i]) {
		i++
	}
	if i == off {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// floatParser matches an optional leading '-' and digits with at most one
// decimal point.
type floatParser struct{}

func constructFloat(Config, *Env) (pdag.Parser, error) { return floatParser{}, nil }

func (floatParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i < len(buf) && buf[i] == '-' {
		i++
	}
	seenPoint := false
	for ; i < len(buf); i++ {
		if buf[i] == '.' {
			if seenPoint {
				break
			}
			seenPoint = true
		} else if !isDigit(buf[i]) {
			break
		}
	}
	if i == off {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// hexNumberParser matches 0x followed by hex digits, terminated by
// whitespace. The terminator is not consumed. An optional maxval bound
// rejects values exceeding it.
type hexNumberParser struct {
	maxval uint64
}

func constructHexNumber(cfg Config, env *Env) (pdag.Parser, error) {
	p := &hexNumberParser{}
	if v := cfg.param("maxval"); v.Exists() {
		p.maxval = v.Uint()
	}
	return p, nil
}

func (p *hexNumberParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i+1 >= len(buf) || buf[i] != '0' || buf[i+1] != 'x' {
		return 0, nil, pdag.ErrWrongParser
	}
	var val uint64
	for i += 2; i < len(buf) && isHexDigit(buf[i]); i++ {
		val = val*16 + hexVal(buf[i])
	}
	if i == off+2 || i >= len(buf) || !isSpace(buf[i]) {
		return 0, nil, pdag.ErrWrongParser
	}
	if p.maxval > 0 && val > p.maxval {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// whitespaceParser consumes at least one whitespace byte and then all
// consecutive whitespace.
type whitespaceParser struct{}

func constructWhitespace(Config, *Env) (pdag.Parser, error) { return whitespaceParser{}, nil }

func (whitespaceParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	if i == off {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// wordParser matches everything up to the next space character.
type wordParser struct{}

func constructWord(Config, *Env) (pdag.Parser, error) { return wordParser{}, nil }

func (wordParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && buf[i] != ' ' {
		i++
	}
	if i == off {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// alphaParser matches a run of alphabetic characters.
type alphaParser struct{}

func constructAlpha(Config, *Env) (pdag.Parser, error) { return alphaParser{}, nil }

func (alphaParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && isAlpha(buf[i]) {
		i++
	}
	if i == off {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// restParser consumes everything to the end of input, which may be nothing.
type restParser struct{}

func constructRest(Config, *Env) (pdag.Parser, error) { return restParser{}, nil }

func (restParser) Parse(buf []byte, off int) (int, any, error) {
	return len(buf) - off, nil, nil
}

// quotedStringParser matches a double-quoted string without embedded
// quotes. The quotes are consumed but stripped from the captured value.
type quotedStringParser struct{}

func constructQuotedString(Config, *Env) (pdag.Parser, error) { return quotedStringParser{}, nil }

func (quotedStringParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i+2 > len(buf) || buf[i] != '"' {
		return 0, nil, pdag.ErrWrongParser
	}
	i++
	for i < len(buf) && buf[i] != '"' {
		i++
	}
	if i == len(buf) {
		return 0, nil, pdag.ErrWrongParser
	}
	parsed := i + 1 - off
	return parsed, string(buf[off+1 : i]), nil
}

// opQuotedStringParser matches either a quoted string or a bare word. The
// extracted value never carries the quotes.
type opQuotedStringParser struct{}

func constructOpQuotedString(Config, *Env) (pdag.Parser, error) {
	return opQuotedStringParser{}, nil
}

func (opQuotedStringParser) Parse(buf []byte, off int) (int, any, error) {
	if off < len(buf) && buf[off] == '"' {
		return quotedStringParser{}.Parse(buf, off)
	}
	return wordParser{}.Parse(buf, off)
}

// stringToParser captures everything up to the first occurrence of a
// separator string. The separator itself is not consumed. The scan starts
// one byte past the current offset, so the captured text is never empty.
type stringToParser struct {
	sep []byte
}

func constructStringTo(cfg Config, _ *Env) (pdag.Parser, error) {
	sep := cfg.Extra
	if p := cfg.param("extradata"); p.Exists() {
		sep = p.String()
	}
	if sep == "" {
		return nil, ConfigError{Parser: "string-to", Message: "missing separator"}
	}
	return &stringToParser{sep: []byte(sep)}, nil
}

func (p *stringToParser) Parse(buf []byte, off int) (int, any, error) {
	if off+1 >= len(buf) {
		return 0, nil, pdag.ErrWrongParser
	}
	idx := bytes.Index(buf[off+1:], p.sep)
	if idx < 0 {
		return 0, nil, pdag.ErrWrongParser
	}
	return idx + 1, nil, nil
}

// charToParser captures everything up to the first byte contained in the
// terminator set. Fails if the offset already sits on a terminator or no
// terminator follows.
type charToParser struct {
	term []byte
}

func constructCharTo(cfg Config, _ *Env) (pdag.Parser, error) {
	term := cfg.Extra
	if p := cfg.param("extradata"); p.Exists() {
		term = p.String()
	}
	if term == "" {
		return nil, ConfigError{Parser: "char-to", Message: "missing terminator characters"}
	}
	return &charToParser{term: []byte(term)}, nil
}

func (p *charToParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && bytes.IndexByte(p.term, buf[i]) < 0 {
		i++
	}
	if i == off || i == len(buf) {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// charSeparatedParser is char-to that always succeeds: without a
// terminator it captures up to the end of input.
type charSeparatedParser struct {
	term []byte
}

func constructCharSeparated(cfg Config, _ *Env) (pdag.Parser, error) {
	term := cfg.Extra
	if p := cfg.param("extradata"); p.Exists() {
		term = p.String()
	}
	if term == "" {
		return nil, ConfigError{Parser: "char-sep", Message: "missing separator characters"}
	}
	return &charSeparatedParser{term: []byte(term)}, nil
}

func (p *charSeparatedParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) && bytes.IndexByte(p.term, buf[i]) < 0 {
		i++
	}
	return i - off, nil, nil
}
