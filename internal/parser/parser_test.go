package parser

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/averhart/lognorm/internal/pdag"
)

func mustConstruct(t *testing.T, kind string, cfg Config) pdag.Parser {
	t.Helper()
	_, info, ok := Lookup(kind)
	if !ok {
		t.Fatalf("unknown parser kind %q", kind)
	}
	p, err := info.Construct(cfg, &Env{})
	if err != nil {
		t.Fatalf("constructing %q: %v", kind, err)
	}
	return p
}

func TestKindIDsAreStable(t *testing.T) {
	// the 0-based IDs are part of the rulebase contract
	want := []string{
		"literal", "date-rfc3164", "date-rfc5424", "number", "float",
		"hexnumber", "kernel-timestamp", "whitespace", "ipv4", "ipv6",
		"word", "alpha", "rest", "op-quoted-string", "quoted-string",
		"date-iso", "time-24hr", "time-12hr", "duration",
		"cisco-interface-spec", "name-value-list", "json", "cee-syslog",
		"mac48", "cef", "checkpoint-lea", "v2-iptables", "string-to",
		"char-to", "char-sep", "repeat",
	}
	for id, name := range want {
		gotID, _, ok := Lookup(name)
		if !ok {
			t.Fatalf("parser %q not registered", name)
		}
		if gotID != id {
			t.Errorf("parser %q has ID %d, want %d", name, gotID, id)
		}
	}
	if pdag.KindLiteral != 0 {
		t.Errorf("literal kind ID must be 0, got %d", pdag.KindLiteral)
	}
}

func TestSimpleParsers(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		cfg        Config
		input      string
		off        int
		wantParsed int
		wantFail   bool
	}{
		{name: "number", kind: "number", input: "042x", wantParsed: 3},
		{name: "number no digits", kind: "number", input: "x42", wantFail: true},
		{name: "number mid-buffer", kind: "number", input: "ab123", off: 2, wantParsed: 3},

		{name: "float", kind: "float", input: "-3.14xyz", wantParsed: 5},
		{name: "float second point stops", kind: "float", input: "1.2.3", wantParsed: 3},
		{name: "float empty", kind: "float", input: "abc", wantFail: true},

		{name: "hexnumber", kind: "hexnumber", input: "0x1aF rest", wantParsed: 5},
		{name: "hexnumber at end of input", kind: "hexnumber", input: "0x1aF", wantFail: true},
		{name: "hexnumber no digits", kind: "hexnumber", input: "0x rest", wantFail: true},
		{name: "hexnumber no prefix", kind: "hexnumber", input: "1aF ", wantFail: true},

		{name: "whitespace", kind: "whitespace", input: "  \t x", wantParsed: 4},
		{name: "whitespace none", kind: "whitespace", input: "x", wantFail: true},

		{name: "word", kind: "word", input: "foo bar", wantParsed: 3},
		{name: "word to end", kind: "word", input: "foobar", wantParsed: 6},
		{name: "word on space", kind: "word", input: " foo", wantFail: true},

		{name: "alpha", kind: "alpha", input: "abc123", wantParsed: 3},
		{name: "alpha none", kind: "alpha", input: "123", wantFail: true},

		{name: "rest", kind: "rest", input: "anything at all", wantParsed: 15},
		{name: "rest empty", kind: "rest", input: "ab", off: 2, wantParsed: 0},

		{name: "quoted-string", kind: "quoted-string", input: `"abc" x`, wantParsed: 5},
		{name: "quoted-string unterminated", kind: "quoted-string", input: `"abc`, wantFail: true},
		{name: "quoted-string no quote", kind: "quoted-string", input: `abc`, wantFail: true},

		{name: "op-quoted bare word", kind: "op-quoted-string", input: "plain rest", wantParsed: 5},
		{name: "op-quoted quoted", kind: "op-quoted-string", input: `"a b" rest`, wantParsed: 5},

		{name: "string-to", kind: "string-to", cfg: Config{Extra: "->"}, input: "ab->c", wantParsed: 2},
		{name: "string-to not found", kind: "string-to", cfg: Config{Extra: "->"}, input: "abc", wantFail: true},
		{name: "string-to scan starts past offset", kind: "string-to", cfg: Config{Extra: ";"}, input: ";x;y", wantParsed: 2},

		{name: "char-to", kind: "char-to", cfg: Config{Extra: ","}, input: "abc,def", wantParsed: 3},
		{name: "char-to on terminator", kind: "char-to", cfg: Config{Extra: ","}, input: ",abc", wantFail: true},
		{name: "char-to missing terminator", kind: "char-to", cfg: Config{Extra: ","}, input: "abc", wantFail: true},

		{name: "char-sep", kind: "char-sep", cfg: Config{Extra: ","}, input: "abc,def", wantParsed: 3},
		{name: "char-sep to end", kind: "char-sep", cfg: Config{Extra: ","}, input: "abcdef", wantParsed: 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustConstruct(t, tc.kind, tc.cfg)
			parsed, _, err := p.Parse([]byte(tc.input), tc.off)
			if tc.wantFail {
				if !errors.Is(err, pdag.ErrWrongParser) {
					t.Fatalf("expected non-match, got parsed=%d err=%v", parsed, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed != tc.wantParsed {
				t.Errorf("parsed = %d, want %d", parsed, tc.wantParsed)
			}
		})
	}
}

func TestQuotedStringValueStripsQuotes(t *testing.T) {
	p := mustConstruct(t, "quoted-string", Config{})
	parsed, value, err := p.Parse([]byte(`"hello world" tail`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != 13 {
		t.Errorf("parsed = %d, want 13", parsed)
	}
	if value != "hello world" {
		t.Errorf("value = %q, want %q", value, "hello world")
	}
}

func TestHexNumberMaxval(t *testing.T) {
	cfg := Config{Params: gjson.Parse(`{"maxval":255}`)}
	p := mustConstruct(t, "hexnumber", cfg)
	if _, _, err := p.Parse([]byte("0xff "), 0); err != nil {
		t.Errorf("0xff should be within maxval 255: %v", err)
	}
	if _, _, err := p.Parse([]byte("0x100 "), 0); !errors.Is(err, pdag.ErrWrongParser) {
		t.Errorf("0x100 should exceed maxval 255")
	}
}

func TestDateTimeParsers(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		input      string
		wantParsed int
		wantFail   bool
	}{
		{name: "rfc3164", kind: "date-rfc3164", input: "Oct 11 22:14:15 host", wantParsed: 15},
		{name: "rfc3164 single digit day", kind: "date-rfc3164", input: "Jan  5 01:02:03", wantParsed: 15},
		{name: "rfc3164 lower case month", kind: "date-rfc3164", input: "jan 15 01:02:03", wantParsed: 15},
		{name: "rfc3164 with year", kind: "date-rfc3164", input: "Oct 11 2015 22:14:15", wantParsed: 20},
		{name: "rfc3164 trailing colon", kind: "date-rfc3164", input: "Oct 11 22:14:15: x", wantParsed: 16},
		{name: "rfc3164 bad month", kind: "date-rfc3164", input: "Xxx 11 22:14:15", wantFail: true},
		{name: "rfc3164 day out of range", kind: "date-rfc3164", input: "Oct 32 22:14:15", wantFail: true},

		{name: "rfc5424", kind: "date-rfc5424", input: "2015-03-04T05:06:07Z", wantParsed: 20},
		{name: "rfc5424 frac and offset", kind: "date-rfc5424", input: "2015-03-04T05:06:07.123+02:00 x", wantParsed: 29},
		{name: "rfc5424 malformed widths", kind: "date-rfc5424", input: "2003-9-1T1:0:0Z", wantParsed: 15},
		{name: "rfc5424 missing tz", kind: "date-rfc5424", input: "2015-03-04T05:06:07", wantFail: true},
		{name: "rfc5424 not followed by space", kind: "date-rfc5424", input: "2015-03-04T05:06:07Zx", wantFail: true},

		{name: "iso date", kind: "date-iso", input: "2015-12-31", wantParsed: 10},
		{name: "iso date bad month", kind: "date-iso", input: "2015-13-01", wantFail: true},
		{name: "iso date bad day", kind: "date-iso", input: "2015-01-32", wantFail: true},
		{name: "iso date too short", kind: "date-iso", input: "2015-01-3", wantFail: true},

		{name: "time 24hr", kind: "time-24hr", input: "23:59:59", wantParsed: 8},
		{name: "time 24hr high hour", kind: "time-24hr", input: "24:00:00", wantFail: true},
		{name: "time 12hr", kind: "time-12hr", input: "12:59:59", wantParsed: 8},
		{name: "time 12hr high hour", kind: "time-12hr", input: "13:00:00", wantFail: true},

		{name: "duration short hour", kind: "duration", input: "9:05:06", wantParsed: 7},
		{name: "duration big hours", kind: "duration", input: "37:00:00", wantParsed: 8},
		{name: "duration three digit hour", kind: "duration", input: "123:45:10", wantFail: true},

		{name: "kernel timestamp", kind: "kernel-timestamp", input: "[12345.678901] x", wantParsed: 14},
		{name: "kernel timestamp long seconds", kind: "kernel-timestamp", input: "[123456789012.678901]", wantParsed: 21},
		{name: "kernel timestamp short seconds", kind: "kernel-timestamp", input: "[1234.678901]", wantFail: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustConstruct(t, tc.kind, Config{})
			parsed, _, err := p.Parse([]byte(tc.input), 0)
			if tc.wantFail {
				if !errors.Is(err, pdag.ErrWrongParser) {
					t.Fatalf("expected non-match, got parsed=%d err=%v", parsed, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed != tc.wantParsed {
				t.Errorf("parsed = %d, want %d", parsed, tc.wantParsed)
			}
		})
	}
}

func TestNetworkParsers(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		input      string
		wantParsed int
		wantFail   bool
	}{
		{name: "ipv4", kind: "ipv4", input: "10.0.0.1 x", wantParsed: 8},
		{name: "ipv4 broadcast", kind: "ipv4", input: "255.255.255.255", wantParsed: 15},
		{name: "ipv4 byte out of range", kind: "ipv4", input: "256.0.0.1", wantFail: true},
		{name: "ipv4 too short", kind: "ipv4", input: "1.2.3", wantFail: true},

		{name: "ipv6 all zero", kind: "ipv6", input: "::", wantParsed: 2},
		{name: "ipv6 abbreviated", kind: "ipv6", input: "2001:db8::1 x", wantParsed: 11},
		{name: "ipv6 full", kind: "ipv6", input: "fe80:0:0:0:200:f8ff:fe21:67cf", wantParsed: 29},
		{name: "ipv6 embedded ipv4", kind: "ipv6", input: "::ffff:1.2.3.4", wantParsed: 14},
		{name: "ipv6 rejects pure ipv4", kind: "ipv6", input: "1.2.3.4", wantFail: true},
		{name: "ipv6 double abbreviation", kind: "ipv6", input: "1::2::3", wantFail: true},
		{name: "ipv6 needs boundary", kind: "ipv6", input: "::1x", wantFail: true},

		{name: "mac48 colons", kind: "mac48", input: "01:23:45:67:89:ab x", wantParsed: 17},
		{name: "mac48 hyphens", kind: "mac48", input: "01-23-45-67-89-AB", wantParsed: 17},
		{name: "mac48 mixed delimiters", kind: "mac48", input: "01:23-45:67-89:ab", wantFail: true},
		{name: "mac48 too short", kind: "mac48", input: "01:23:45:67:89", wantFail: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustConstruct(t, tc.kind, Config{})
			parsed, _, err := p.Parse([]byte(tc.input), 0)
			if tc.wantFail {
				if !errors.Is(err, pdag.ErrWrongParser) {
					t.Fatalf("expected non-match, got parsed=%d err=%v", parsed, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed != tc.wantParsed {
				t.Errorf("parsed = %d, want %d", parsed, tc.wantParsed)
			}
		})
	}
}

func TestRegexRequiresOption(t *testing.T) {
	_, info, ok := Lookup("regex")
	if !ok {
		t.Fatal("regex parser not registered")
	}
	if _, err := info.Construct(Config{Extra: `\d+`}, &Env{}); err == nil {
		t.Error("regex construction should fail with AllowRegex off")
	}
	p, err := info.Construct(Config{Extra: `\d+`}, &Env{AllowRegex: true})
	if err != nil {
		t.Fatalf("regex construction failed with AllowRegex on: %v", err)
	}
	parsed, _, err := p.Parse([]byte("123abc"), 0)
	if err != nil || parsed != 3 {
		t.Errorf("regex parse = (%d, %v), want (3, nil)", parsed, err)
	}
	if _, _, err := p.Parse([]byte("abc123"), 0); !errors.Is(err, pdag.ErrWrongParser) {
		t.Error("regex must anchor at the current offset")
	}
}
