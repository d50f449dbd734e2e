package parser

import "github.com/averhart/lognorm/internal/pdag"

// cefHeaderField consumes one '|'-terminated CEF header field. '|' and
// '\' may be escaped with a backslash; the returned value has the escapes
// resolved.
func cefHeaderField(buf []byte, off int) (val string, end int, ok bool) {
	i := off
	for i < len(buf) && buf[i] != '|' {
		if buf[i] == '\\' {
			i++
			if i >= len(buf) || (buf[i] != '\\' && buf[i] != '|') {
				return "", 0, false
			}
		}
		i++
	}
	if i >= len(buf) {
		return "", 0, false
	}
	raw := buf[off:i]
	out := make([]byte, 0, len(raw))
	for j := 0; j < len(raw); j++ {
		if raw[j] == '\\' {
			j++
		}
		out = append(out, raw[j])
	}
	return string(out), i + 1, true
}

// cefExtensionValueEnd finds the end of an extension value. Values may
// contain unquoted spaces, so the value runs up to the last word before
// the next unescaped '=' (that word is the next extension's key), or to
// the end of the input.
func cefExtensionValueEnd(buf []byte, off int) (end int, ok bool) {
	i := off
	lastWordBegin := 0
	hadSP := false
	inEscape := false
	for ; i < len(buf); i++ {
		if inEscape {
			if buf[i] != '=' && buf[i] != '\\' && buf[i] != 'r' && buf[i] != 'n' {
				return 0, false
			}
			inEscape = false
			continue
		}
		if buf[i] == '=' {
			break
		} else if buf[i] == '\\' {
			inEscape = true
		} else if buf[i] == ' ' {
			hadSP = true
		} else if hadSP {
			lastWordBegin = i
			hadSP = false
		}
	}
	if i < len(buf) {
		if lastWordBegin == 0 {
			return i, true
		}
		return lastWordBegin - 1, true
	}
	return i, true
}

// cefExtensionName consumes an extension key. ArcSight themselves emit
// leading underscores and dots despite the CEF standard, so those are
// accepted.
func cefExtensionName(buf []byte, off int) (end int, ok bool) {
	i := off
	for i < len(buf) && buf[i] != '=' {
		if !(isAlnum(buf[i]) || buf[i] == '_' || buf[i] == '.') {
			return 0, false
		}
		i++
	}
	return i, true
}

func cefUnescapeValue(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case '=':
				out = append(out, '=')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			}
			continue
		}
		out = append(out, raw[i])
	}
	return string(out)
}

// cefParseExtensions walks the extension list. It either consumes
// everything or fails. With a nil map it only validates.
func cefParseExtensions(buf []byte, off int, ext map[string]any) bool {
	i := off
	for i < len(buf) {
		for i < len(buf) && buf[i] == ' ' {
			i++
		}
		iName := i
		end, ok := cefExtensionName(buf, i)
		if !ok {
			return false
		}
		i = end
		if i+1 >= len(buf) || buf[i] != '=' {
			return false
		}
		name := string(buf[iName:i])
		i++

		iValue := i
		end, ok = cefExtensionValueEnd(buf, i)
		if !ok {
			return false
		}
		i = end
		if ext != nil {
			ext[name] = cefUnescapeValue(buf[iValue:i])
		}
		i++ // skip past value
	}
	return true
}

// cefParser matches ArcSight Common Event Format version 0: the
// seven-part pipe-delimited header followed by name=value extensions.
type cefParser struct{}

func constructCEF(Config, *Env) (pdag.Parser, error) { return cefParser{}, nil }

func (cefParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	// minimum header: "CEF:0|x|x|x|x|x|x|"
	if len(buf) < i+17 ||
		buf[i] != 'C' || buf[i+1] != 'E' || buf[i+2] != 'F' ||
		buf[i+3] != ':' || buf[i+4] != '0' || buf[i+5] != '|' {
		return 0, nil, pdag.ErrWrongParser
	}
	i += 6

	hdr := make([]string, 6)
	for f := 0; f < 6; f++ {
		val, end, ok := cefHeaderField(buf, i)
		if !ok {
			return 0, nil, pdag.ErrWrongParser
		}
		hdr[f] = val
		i = end
	}

	beginExtensions := i
	if !cefParseExtensions(buf, i, nil) {
		return 0, nil, pdag.ErrWrongParser
	}

	ext := map[string]any{}
	cefParseExtensions(buf, beginExtensions, ext)
	value := map[string]any{
		"DeviceVendor":  hdr[0],
		"DeviceProduct": hdr[1],
		"DeviceVersion": hdr[2],
		"SignatureID":   hdr[3],
		"Name":          hdr[4],
		"Severity":      hdr[5],
		"Extensions":    ext,
	}
	return len(buf) - off, value, nil
}
