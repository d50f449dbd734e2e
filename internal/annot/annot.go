package annot

import "github.com/averhart/lognorm/internal/record"

type Opcode int

const (
	OpAdd Opcode = iota
	OpRemove
)

// Op is one annotation operation: ADD sets a field to a literal value,
// REMOVE deletes it.
type Op struct {
	Opc   Opcode
	Name  string
	Value string
}

// Set is the tag-keyed annotation store of a context.
type Set struct {
	ops map[string][]Op
}

func CreateSet() *Set {
	return &Set{ops: make(map[string][]Op)}
}

// Add appends operations for a tag. Loading the same tag twice
// concatenates the operation lists, existing operations first.
func (s *Set) Add(tag string, ops []Op) {
	s.ops[tag] = append(s.ops[tag], ops...)
}

// Lookup returns the operations registered for a tag, or nil.
func (s *Set) Lookup(tag string) []Op {
	return s.ops[tag]
}

// Empty reports whether no annotation has been loaded at all.
func (s *Set) Empty() bool {
	return len(s.ops) == 0
}

// Apply runs the annotations for every given tag against the record, in
// tag order and op order. A tag without an annotation is not an error.
func (s *Set) Apply(rec record.Record, tags []string) {
	if s.Empty() {
		return
	}
	for _, tag := range tags {
		for _, op := range s.ops[tag] {
			switch op.Opc {
			case OpAdd:
				rec[op.Name] = op.Value
			case OpRemove:
				delete(rec, op.Name)
			}
		}
	}
}
