package parser

import "github.com/averhart/lognorm/internal/pdag"

// chkIPv4AddrByte consumes one dotted-quad component: 1 to 3 digits, value
// at most 255.
func chkIPv4AddrByte(buf []byte, off int) (end int, ok bool) {
	i := off
	if i == len(buf) || !isDigit(buf[i]) {
		return off, false
	}
	val := int(buf[i] - '0')
	i++
	if i < len(buf) && isDigit(buf[i]) {
		val = val*10 + int(buf[i]-'0')
		i++
		if i < len(buf) && isDigit(buf[i]) {
			val = val*10 + int(buf[i]-'0')
			i++
		}
	}
	if val > 255 {
		return off, false
	}
	return i, true
}

// ipv4Parser matches a dotted-quad IPv4 address. No particular character
// is required behind the address.
type ipv4Parser struct{}

func constructIPv4(Config, *Env) (pdag.Parser, error) { return ipv4Parser{}, nil }

func (ipv4Parser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i+7 > len(buf) {
		return 0, nil, pdag.ErrWrongParser
	}
	for b := 0; b < 4; b++ {
		end, ok := chkIPv4AddrByte(buf, i)
		if !ok {
			return 0, nil, pdag.ErrWrongParser
		}
		i = end
		if b < 3 {
			if i == len(buf) || buf[i] != '.' {
				return 0, nil, pdag.ErrWrongParser
			}
			i++
		}
	}
	return i - off, nil, nil
}

// ipv6Parser matches the RFC4291 2.2 textual form, with at most one "::"
// abbreviation and an optional embedded trailing IPv4 address. The address
// must be followed by whitespace or end of input; purely-IPv4 text does
// not match.
type ipv6Parser struct{}

func constructIPv6(Config, *Env) (pdag.Parser, error) { return ipv6Parser{}, nil }

func (ipv6Parser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i+2 > len(buf) {
		return 0, nil, pdag.ErrWrongParser
	}
	if !(isHexDigit(buf[i]) || (buf[i] == ':' && buf[i+1] == ':')) {
		return 0, nil, pdag.ErrWrongParser
	}

	hasIPv4 := false
	nBlocks := 0
	had0Abbrev := false
	beginBlock := i

	// try all potential blocks plus one more, so errors are seen
blocks:
	for j := 0; j < 9; j++ {
		beginBlock = i
		if i == len(buf) {
			return 0, nil, pdag.ErrWrongParser
		}
		for k := 0; k < 4 && i < len(buf) && isHexDigit(buf[i]); k++ {
			i++
		}
		nBlocks++
		if i == len(buf) || isSpace(buf[i]) {
			goto chkOK
		}
		if buf[i] == '.' {
			hasIPv4 = true
			break blocks
		}
		if buf[i] != ':' {
			return 0, nil, pdag.ErrWrongParser
		}
		i++
		if i == len(buf) {
			goto chkOK
		}
		if had0Abbrev {
			if buf[i] == ':' {
				return 0, nil, pdag.ErrWrongParser
			}
		} else if buf[i] == ':' {
			had0Abbrev = true
			i++
			if i == len(buf) {
				goto chkOK
			}
		}
	}

	if hasIPv4 {
		nBlocks--
		// reject text that is just an IPv4 address
		if beginBlock == off {
			return 0, nil, pdag.ErrWrongParser
		}
		i = beginBlock
		parsed4, _, err := (ipv4Parser{}).Parse(buf, i)
		if err != nil {
			return 0, nil, pdag.ErrWrongParser
		}
		i += parsed4
		if i < len(buf) && !isSpace(buf[i]) {
			return 0, nil, pdag.ErrWrongParser
		}
	}

chkOK:
	if nBlocks > 8 {
		return 0, nil, pdag.ErrWrongParser
	}
	if had0Abbrev && nBlocks >= 8 {
		return 0, nil, pdag.ErrWrongParser
	}
	// a trailing block must not be missing; two characters are always
	// present when this point is reached
	if buf[i-1] == ':' && buf[i-2] != ':' {
		return 0, nil, pdag.ErrWrongParser
	}
	return i - off, nil, nil
}

// mac48Parser matches the IEEE 802 MAC-48 text form: six hex pairs with a
// consistent ':' or '-' delimiter.
type mac48Parser struct{}

func constructMAC48(Config, *Env) (pdag.Parser, error) { return mac48Parser{}, nil }

func (mac48Parser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if len(buf) < i+17 || !isHexDigit(buf[i]) || !isHexDigit(buf[i+1]) {
		return 0, nil, pdag.ErrWrongParser
	}
	delim := buf[i+2]
	if delim != ':' && delim != '-' {
		return 0, nil, pdag.ErrWrongParser
	}
	for p := 1; p < 6; p++ {
		base := i + p*3
		if buf[base-1] != delim || !isHexDigit(buf[base]) || !isHexDigit(buf[base+1]) {
			return 0, nil, pdag.ErrWrongParser
		}
	}
	return 17, nil, nil
}

// ciscoInterfaceSpecParser matches the Cisco interface spec form
// "[interface:]ip/port [(ip2/port2)] [[SP](user)]" and decomposes it into
// an object.
type ciscoInterfaceSpecParser struct{}

func constructCiscoInterfaceSpec(Config, *Env) (pdag.Parser, error) {
	return ciscoInterfaceSpecParser{}, nil
}

func (ciscoInterfaceSpecParser) Parse(buf []byte, off int) (int, any, error) {
	i := off
	if i >= len(buf) || buf[i] == ':' || isSpace(buf[i]) {
		return 0, nil, pdag.ErrWrongParser
	}

	// if an IP comes first there is no interface part
	haveInterface := false
	var idxInterface, lenInterface int
	idxIP := i
	var lenIP int
	parsed4, _, err := (ipv4Parser{}).Parse(buf, i)
	if err == nil {
		lenIP = parsed4
		i += parsed4
	} else {
		idxInterface = i
		for i < len(buf) && buf[i] != ':' {
			if isSpace(buf[i]) {
				return 0, nil, pdag.ErrWrongParser
			}
			i++
		}
		if i == len(buf) {
			return 0, nil, pdag.ErrWrongParser
		}
		lenInterface = i - idxInterface
		haveInterface = true
		i++ // skip colon
		idxIP = i
		parsed4, _, err = (ipv4Parser{}).Parse(buf, i)
		if err != nil {
			return 0, nil, pdag.ErrWrongParser
		}
		lenIP = parsed4
		i += parsed4
	}

	if i == len(buf) || buf[i] != '/' {
		return 0, nil, pdag.ErrWrongParser
	}
	i++
	idxPort := i
	lenPort, _, err := (numberParser{}).Parse(buf, i)
	if err != nil {
		return 0, nil, pdag.ErrWrongParser
	}
	i += lenPort

	haveIP2 := false
	var idxIP2, lenIP2, idxPort2, lenPort2 int
	haveUser := false
	var idxUser, lenUser int

	if i < len(buf) {
		// optional second ip/port: " (ip2/port2)"
		if i+5 < len(buf) && buf[i] == ' ' && buf[i+1] == '(' {
			t := i + 2
			idxIP2 = t
			if p4, _, err := (ipv4Parser{}).Parse(buf, t); err == nil {
				t += p4
				if t < len(buf) && buf[t] == '/' {
					t++
					idxPort2 = t
					if pn, _, err := (numberParser{}).Parse(buf, t); err == nil {
						t += pn
						if t < len(buf) && buf[t] == ')' {
							lenIP2 = p4
							lenPort2 = pn
							i = t + 1
							haveIP2 = true
						}
					}
				}
			}
		}

		// optional username: "(user)" or " (user)"
		if (i+2 < len(buf) && buf[i] == '(' && !isSpace(buf[i+1])) ||
			(i+3 < len(buf) && buf[i] == ' ' && buf[i+1] == '(' && !isSpace(buf[i+2])) {
			idxUser = i + 1
			if buf[i] == ' ' {
				idxUser = i + 2
			}
			t := idxUser
			for t < len(buf) && !isSpace(buf[t]) && buf[t] != ')' {
				t++
			}
			if t < len(buf) && buf[t] == ')' {
				lenUser = t - idxUser
				i = t + 1
				haveUser = true
			}
		}
	}

	value := map[string]any{
		"ip":   string(buf[idxIP : idxIP+lenIP]),
		"port": string(buf[idxPort : idxPort+lenPort]),
	}
	if haveInterface {
		value["interface"] = string(buf[idxInterface : idxInterface+lenInterface])
	}
	if haveIP2 {
		value["ip2"] = string(buf[idxIP2 : idxIP2+lenIP2])
		value["port2"] = string(buf[idxPort2 : idxPort2+lenPort2])
	}
	if haveUser {
		value["user"] = string(buf[idxUser : idxUser+lenUser])
	}
	return i - off, value, nil
}
