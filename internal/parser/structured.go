package parser

import (
	"bytes"
	"encoding/json"

	"github.com/averhart/lognorm/internal/pdag"
)

// decodeJSONValue decodes a single JSON value starting at off and reports
// how many bytes the scanner consumed.
func decodeJSONValue(buf []byte, off int) (value any, consumed int, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(buf[off:]))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, 0, false
	}
	return v, int(dec.InputOffset()), true
}

// jsonParser matches a full JSON object or array starting at the current
// offset. Extra data after the JSON is permitted; exactly the bytes the
// JSON scanner used are consumed.
type jsonParser struct{}

func constructJSON(Config, *Env) (pdag.Parser, error) { return jsonParser{}, nil }

func (jsonParser) Parse(buf []byte, off int) (int, any, error) {
	if off >= len(buf) || (buf[off] != '{' && buf[off] != '[') {
		return 0, nil, pdag.ErrWrongParser
	}
	v, consumed, ok := decodeJSONValue(buf, off)
	if !ok {
		return 0, nil, pdag.ErrWrongParser
	}
	return consumed, v, nil
}

// ceeSyslogParser matches "@cee:" followed by optional whitespace and a
// JSON object that must extend to the end of the input (trailing
// whitespace permitted). Arrays are not allowed in CEE mode.
type ceeSyslogParser struct{}

func constructCEESyslog(Config, *Env) (pdag.Parser, error) { return ceeSyslogParser{}, nil }

func (ceeSyslogParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if len(buf) < i+7 || string(buf[i:i+5]) != "@cee:" {
		return 0, nil, pdag.ErrWrongParser
	}
	for i += 5; i < len(buf) && isSpace(buf[i]); i++ {
	}
	if i == len(buf) || buf[i] != '{' {
		return 0, nil, pdag.ErrWrongParser
	}
	v, consumed, ok := decodeJSONValue(buf, i)
	if !ok {
		return 0, nil, pdag.ErrWrongParser
	}
	for _, c := range buf[i+consumed:] {
		if !isSpace(c) {
			return 0, nil, pdag.ErrWrongParser
		}
	}
	return len(buf) - off, v, nil
}

func isValidNameChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '_' || c == '-'
}

// parseOneNameValue consumes one name=value pair. The value runs to the
// next whitespace and may be empty.
func parseOneNameValue(buf []byte, off int, val map[string]any) (end int, ok bool) {
	i := off
	iName := i
	for i < len(buf) && isValidNameChar(buf[i]) {
		i++
	}
	if i == iName || i == len(buf) || buf[i] != '=' {
		return off, false
	}
	name := string(buf[iName:i])
	i++
	iVal := i
	for i < len(buf) && !isSpace(buf[i]) {
		i++
	}
	if val != nil {
		val[name] = string(buf[iVal:i])
	}
	return i, true
}

// nameValueParser matches a whitespace-separated list of name=value pairs
// running to the end of the input. Detection runs first without
// extraction; the data is only materialized once the motif is known to
// match.
type nameValueParser struct{}

func constructNameValue(Config, *Env) (pdag.Parser, error) { return nameValueParser{}, nil }

func (nameValueParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	for i < len(buf) {
		var ok bool
		if i, ok = parseOneNameValue(buf, i, nil); !ok {
			return 0, nil, pdag.ErrWrongParser
		}
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
	}

	value := map[string]any{}
	i = off
	for i < len(buf) {
		i, _ = parseOneNameValue(buf, i, value)
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
	}
	return i - off, value, nil
}

// parseOneIPTablesField consumes one KEY[=value] token. Keys are
// restricted to upper-case letters to keep the motif from matching plain
// words; a key without '=' is a flag and maps to a nil value.
func parseOneIPTablesField(buf []byte, off int, val map[string]any) (end int, ok bool) {
	i := off
	iName := i
	for i < len(buf) && buf[i] >= 'A' && buf[i] <= 'Z' {
		i++
	}
	if i == iName || (i < len(buf) && buf[i] != '=' && buf[i] != ' ') {
		return off, false
	}
	name := string(buf[iName:i])
	if i < len(buf) && buf[i] == '=' {
		i++
		iVal := i
		for i < len(buf) && !isSpace(buf[i]) {
			i++
		}
		if val != nil {
			val[name] = string(buf[iVal:i])
		}
	} else if val != nil {
		val[name] = nil
	}
	return i, true
}

// v2IPTablesParser matches the structured part of iptables log lines: at
// least two KEY[=value] fields separated by single spaces, running to the
// end of the input.
type v2IPTablesParser struct{}

func constructV2IPTables(Config, *Env) (pdag.Parser, error) { return v2IPTablesParser{}, nil }

func (v2IPTablesParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	nfields := 0
	for i < len(buf) {
		var ok bool
		if i, ok = parseOneIPTablesField(buf, i, nil); !ok {
			return 0, nil, pdag.ErrWrongParser
		}
		nfields++
		// exactly one SP is permitted between fields
		if i < len(buf) && buf[i] == ' ' {
			i++
		}
	}
	if nfields < 2 {
		return 0, nil, pdag.ErrWrongParser
	}

	value := map[string]any{}
	i = off
	for i < len(buf) {
		i, _ = parseOneIPTablesField(buf, i, value)
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
	}
	return i - off, value, nil
}

// checkpointLEAParser matches the Checkpoint LEA on-disk format: one or
// more "key: value;" pairs separated by whitespace.
type checkpointLEAParser struct{}

func constructCheckpointLEA(Config, *Env) (pdag.Parser, error) {
	return checkpointLEAParser{}, nil
}

func (checkpointLEAParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	found := 0
	value := map[string]any{}
	for i < len(buf) {
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
		if i == len(buf) {
			break // trailing whitespace is fine
		}
		found++
		iName := i
		for i < len(buf) && buf[i] != ':' {
			i++
		}
		if i+1 >= len(buf) || buf[i] != ':' {
			return 0, nil, pdag.ErrWrongParser
		}
		name := string(buf[iName:i])
		i++
		for i < len(buf) && buf[i] == ' ' {
			i++
		}
		iVal := i
		for i < len(buf) && buf[i] != ';' {
			i++
		}
		if i == len(buf) || buf[i] != ';' {
			return 0, nil, pdag.ErrWrongParser
		}
		value[name] = string(buf[iVal:i])
		i++
	}
	if found == 0 {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, value, nil
}
