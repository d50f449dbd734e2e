package parser

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/averhart/lognorm/internal/diag"
	"github.com/averhart/lognorm/internal/pdag"
)

// Config is the compile-time configuration of one parser instance, built
// by the rulebase compiler from a field reference. Extra carries the
// legacy `%name:type:extra%` payload; Params carries the JSON form
// (`%{...}%`) or a merged legacy `{...}` block.
type Config struct {
	Name   string
	Type   string
	Extra  string
	Params gjson.Result
}

// param returns the named JSON parameter, if present.
func (c Config) param(name string) gjson.Result {
	if !c.Params.Exists() {
		return gjson.Result{}
	}
	return c.Params.Get(name)
}

// Env gives constructors access to compiler services. BuildDAG compiles a
// JSON parser definition (object or sequence array) into a sub-DAG; the
// repeat parser uses it for its parser/while parameters.
type Env struct {
	BuildDAG   func(params gjson.Result) (*pdag.Node, error)
	AllowRegex bool
	Diag       *diag.Diag
}

// Info describes one parser kind. The position in the lookup table is the
// kind's stable ID.
type Info struct {
	Name      string
	Construct func(cfg Config, env *Env) (pdag.Parser, error)
}

// The lookup table. The initialization order defines the stable 0-based
// kind IDs and must not be changed.
var table = []Info{
	{"literal", constructLiteral}, // pdag.KindLiteral
	{"date-rfc3164", constructRFC3164Date},
	{"date-rfc5424", constructRFC5424Date},
	{"number", constructNumber},
	{"float", constructFloat},
	{"hexnumber", constructHexNumber},
	{"kernel-timestamp", constructKernelTimestamp},
	{"whitespace", constructWhitespace},
	{"ipv4", constructIPv4},
	{"ipv6", constructIPv6},
	{"word", constructWord},
	{"alpha", constructAlpha},
	{"rest", constructRest},
	{"op-quoted-string", constructOpQuotedString},
	{"quoted-string", constructQuotedString},
	{"date-iso", constructISODate},
	{"time-24hr", constructTime24hr},
	{"time-12hr", constructTime12hr},
	{"duration", constructDuration},
	{"cisco-interface-spec", constructCiscoInterfaceSpec},
	{"name-value-list", constructNameValue},
	{"json", constructJSON},
	{"cee-syslog", constructCEESyslog},
	{"mac48", constructMAC48},
	{"cef", constructCEF},
	{"checkpoint-lea", constructCheckpointLEA},
	{"v2-iptables", constructV2IPTables},
	{"string-to", constructStringTo},
	{"char-to", constructCharTo},
	{"char-sep", constructCharSeparated},
	{"repeat", constructRepeat},
	{"regex", constructRegex},
}

// Lookup resolves a parser kind by name.
func Lookup(name string) (id int, info Info, ok bool) {
	for i, in := range table {
		if in.Name == name {
			return i, in, true
		}
	}
	return 0, Info{}, false
}

// KindName returns the name for a kind ID.
func KindName(id int) string {
	if id < 0 || id >= len(table) {
		return "invalid"
	}
	return table[id].Name
}

// ConfigError reports an invalid parser configuration in a rulebase.
type ConfigError struct {
	Parser  string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("parser config error (%v): %v", e.Parser, e.Message)
}
