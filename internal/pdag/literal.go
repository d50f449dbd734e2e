package pdag

// Literal matches a fixed byte string. It lives in this package rather
// than the parser catalogue because the edge merge rule and the optimizer
// both manipulate literal text directly.
type Literal struct {
	Text string
}

// Parse matches the literal byte-by-byte. On a partial match it still
// reports the number of bytes that did match, so the matcher can account
// the furthest-reached offset even after the optimizer has compacted a
// per-byte chain into one multi-byte literal.
func (l *Literal) Parse(buf []byte, off int) (int, any, error) {
	i := off
	j := 0
	for j < len(l.Text) && i < len(buf) {
		if l.Text[j] != buf[i] {
			break
		}
		i++
		j++
	}
	if j < len(l.Text) {
		return j, nil, ErrWrongParser
	}
	return j, nil, nil
}
