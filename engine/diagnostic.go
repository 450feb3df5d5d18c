package engine

import (
	"fmt"
	"strings"
)

type (
	// Diagnostic describes a single problem found in patch text. Line and
	// Column are zero when problem has no position.
	Diagnostic struct {
		Line    int
		Column  int
		Message string
	}

	// Diagnostics is returned by Apply when patch fails to compile.
	Diagnostics []Diagnostic
)

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return d.Message
	}
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

func (ds Diagnostics) Error() string {
	s := make([]string, 0, len(ds))
	for _, d := range ds {
		s = append(s, d.String())
	}
	return strings.Join(s, "; ")
}

// ret returns untyped nil if diagnostics list is empty.
func (ds Diagnostics) ret() error {
	if len(ds) > 0 {
		return ds
	}
	return nil
}
