package diag

import "fmt"

// Diag carries the per-context debug and error callbacks. It is threaded by
// reference through the compiler and matcher so that no package-level state
// is needed.
type Diag struct {
	DebugCB func(msg string)
	ErrorCB func(msg string)
}

func (d *Diag) Debugf(format string, args ...any) {
	if d == nil || d.DebugCB == nil {
		return
	}
	d.DebugCB(fmt.Sprintf(format, args...))
}

func (d *Diag) Errorf(format string, args ...any) {
	if d == nil || d.ErrorCB == nil {
		return
	}
	d.ErrorCB(fmt.Sprintf(format, args...))
}
