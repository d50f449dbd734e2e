package encoder

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/averhart/lognorm/internal/record"
)

// Encoder writes one normalized record to a stream.
type Encoder interface {
	Encode(w io.Writer, rec record.Record) error
}

// ForName resolves an encoder by its CLI name. fields is the
// encoder-specific format (the CSV column list).
func ForName(name string, fields []string) (Encoder, error) {
	switch name {
	case "json":
		return JSON{}, nil
	case "json-tags":
		return JSON{IncludeTags: true}, nil
	case "xml":
		return XML{}, nil
	case "csv":
		if len(fields) == 0 {
			return nil, fmt.Errorf("csv encoder requires a field list")
		}
		return CSV{Fields: fields}, nil
	case "rfc5424":
		return RFC5424{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder %q", name)
	}
}

// JSON renders the record as one JSON object per line. event.tags is
// omitted unless IncludeTags is set.
type JSON struct {
	IncludeTags bool
}

func (e JSON) Encode(w io.Writer, rec record.Record) error {
	out := rec
	if !e.IncludeTags {
		if _, ok := rec[record.TagsKey]; ok {
			out = make(record.Record, len(rec))
			for k, v := range rec {
				if k != record.TagsKey {
					out[k] = v
				}
			}
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func sortedKeys(rec record.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// XML renders the record as an <event> element with one <field> per
// entry. Nested objects become nested field lists, arrays repeated
// <value> elements.
type XML struct{}

func (e XML) Encode(w io.Writer, rec record.Record) error {
	var sb strings.Builder
	sb.WriteString("<event>")
	writeXMLFields(&sb, rec)
	sb.WriteString("</event>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeXMLFields(sb *strings.Builder, rec record.Record) {
	for _, k := range sortedKeys(rec) {
		sb.WriteString(`<field name="`)
		xmlEscape(sb, k)
		sb.WriteString(`">`)
		writeXMLValue(sb, rec[k])
		sb.WriteString("</field>")
	}
}

func writeXMLValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		writeXMLFields(sb, record.Record(val))
	case record.Record:
		writeXMLFields(sb, val)
	case []any:
		for _, item := range val {
			sb.WriteString("<value>")
			writeXMLValue(sb, item)
			sb.WriteString("</value>")
		}
	case []string:
		for _, item := range val {
			sb.WriteString("<value>")
			xmlEscape(sb, item)
			sb.WriteString("</value>")
		}
	case nil:
	default:
		sb.WriteString("<value>")
		xmlEscape(sb, fmt.Sprint(val))
		sb.WriteString("</value>")
	}
}

func xmlEscape(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			sb.WriteString("&amp;")
		case '"':
			sb.WriteString("&quot;")
		default:
			sb.WriteRune(r)
		}
	}
}

// CSV renders the chosen fields of each record as one CSV row. Missing
// fields produce empty columns.
type CSV struct {
	Fields []string
}

func (e CSV) Encode(w io.Writer, rec record.Record) error {
	row := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if v, ok := rec[f]; ok && v != nil {
			row[i] = fmt.Sprint(v)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// RFC5424 renders the record as a syslog structured-data element.
type RFC5424 struct{}

func (e RFC5424) Encode(w io.Writer, rec record.Record) error {
	var sb strings.Builder
	sb.WriteString("[lognorm@32473")
	for _, k := range sortedKeys(rec) {
		if k == record.TagsKey {
			continue
		}
		v := rec[k]
		if v == nil {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteString(`="`)
		sdEscape(&sb, fmt.Sprint(v))
		sb.WriteByte('"')
	}
	sb.WriteString("]\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func sdEscape(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"', ']':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
}
