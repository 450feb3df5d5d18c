package hotreload

import (
	"github.com/sirupsen/logrus"

	"github.com/dudk/livesynth/engine"
)

// Reporter receives diagnostics of rejected edits. It's called on the
// rendering goroutine, so it must return quickly.
type Reporter interface {
	Report(Edit, engine.Diagnostics)
}

// ReporterFunc is an adapter to use ordinary functions as reporters.
type ReporterFunc func(Edit, engine.Diagnostics)

// Report calls fn(e, diags).
func (fn ReporterFunc) Report(e Edit, diags engine.Diagnostics) {
	fn(e, diags)
}

// LogReporter logs every diagnostic as a separate error entry.
func LogReporter(l logrus.FieldLogger) Reporter {
	return ReporterFunc(func(e Edit, diags engine.Diagnostics) {
		for _, d := range diags {
			l.WithFields(logrus.Fields{
				"edit":   e.ID,
				"line":   d.Line,
				"column": d.Column,
			}).Error(d.Message)
		}
	})
}
