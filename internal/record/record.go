package record

// Reserved keys in the output record.
const (
	OriginalMsgKey  = "originalmsg"
	UnparsedDataKey = "unparsed-data"
	TagsKey         = "event.tags"
)

// Record is the result object of a normalization: a tree of name/value
// pairs. Values are strings, nested objects (map[string]any), []any
// arrays, the []string tag list, nil for value-less flags, or the values
// decoded by the JSON-based parsers.
type Record map[string]any

// Tags returns the event.tags entry, if present.
func (r Record) Tags() []string {
	tags, _ := r[TagsKey].([]string)
	return tags
}

// Unparsed reports whether the record describes a non-matched message.
func (r Record) Unparsed() bool {
	_, ok := r[UnparsedDataKey]
	return ok
}
