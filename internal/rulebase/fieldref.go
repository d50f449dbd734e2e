package rulebase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/averhart/lognorm/internal/parser"
)

// maxFieldNameLen bounds the field name of a legacy field reference.
const maxFieldNameLen = 128

// jsonExtent reports how many bytes the JSON value starting at the
// beginning of buf occupies.
func jsonExtent(buf []byte) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	return int(dec.InputOffset()), true
}

// unescapeRuleText resolves backslash escapes in literal runs and legacy
// extra data: \\ and \% produce the bare character, anything else is kept
// verbatim.
func unescapeRuleText(s string) string {
	if !bytes.ContainsRune([]byte(s), '\\') {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '%') {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}

// parseFieldRef parses one field reference. On entry buf[i] is the leading
// '%'; on success the returned offset is just past the terminating '%'.
// Both the legacy `%name:type[:extra]%` form (with an optional embedded
// `{...}` parameter block) and the JSON `%{...}%` form are handled.
func parseFieldRef(buf []byte, i, line int) (parser.Config, int, error) {
	var cfg parser.Config
	i++ // eat '%'

	for i < len(buf) && (buf[i] == ' ' || buf[i] == '\t') {
		i++
	}
	if i == len(buf) {
		return cfg, i, invalidFieldDescr(line, "field reference is empty")
	}

	if buf[i] == '{' || buf[i] == '[' {
		consumed, ok := jsonExtent(buf[i:])
		if !ok {
			return cfg, i, invalidFieldDescr(line, fmt.Sprintf("invalid json in %q", buf[i:]))
		}
		raw := string(buf[i : i+consumed])
		i += consumed
		if i == len(buf) || buf[i] != '%' {
			return cfg, i, invalidFieldDescr(line, fmt.Sprintf("invalid json in %q", buf))
		}
		i++ // eat '%'
		cfg.Params = gjson.Parse(raw)
		cfg.Name = cfg.Params.Get("name").String()
		if cfg.Name == "" {
			cfg.Name = "-"
		}
		cfg.Type = cfg.Params.Get("type").String()
		return cfg, i, nil
	}

	// legacy form: name
	iName := i
	for i < len(buf) && buf[i] != ':' && i-iName <= maxFieldNameLen {
		i++
	}
	if i-iName > maxFieldNameLen {
		return cfg, i, invalidFieldDescr(line, fmt.Sprintf("field name too long in: %s", buf[iName:]))
	}
	if i == len(buf) {
		return cfg, i, invalidFieldDescr(line, fmt.Sprintf("field definition wrong in: %s", buf[iName:]))
	}
	if i == iName {
		return cfg, i, invalidFieldDescr(line, "empty field name")
	}
	cfg.Name = string(buf[iName:i])
	i++ // skip ':'

	// type, with trailing whitespace trimmed
	j := i
	for j < len(buf) && buf[j] != ':' && buf[j] != '{' && buf[j] != '%' {
		j++
	}
	cfg.Type = string(bytes.TrimRight(buf[i:j], " \t"))
	i = j
	if i == len(buf) {
		return cfg, i, invalidFieldDescr(line, "unterminated field reference")
	}

	if buf[i] == '{' {
		consumed, ok := jsonExtent(buf[i:])
		if !ok {
			return cfg, i, invalidFieldDescr(line, fmt.Sprintf("invalid json in %q", buf[i:]))
		}
		cfg.Params = gjson.Parse(string(buf[i : i+consumed]))
		i += consumed
	}

	if i < len(buf) && buf[i] == '%' {
		i++
	} else if i < len(buf) {
		// extra data: everything up to the terminating '%'
		i++
		iExtra := i
		for i < len(buf) {
			if buf[i] == '%' {
				break
			}
			i++
		}
		cfg.Extra = unescapeRuleText(string(buf[iExtra:i]))
		if i < len(buf) {
			i++ // eat '%'
		}
	}
	return cfg, i, nil
}
