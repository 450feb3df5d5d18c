// Package mock provides mocks for livesynth components and allows to execute integration tests.
package mock

import (
	"strconv"
	"strings"
	"sync"

	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/hotreload"
	"github.com/dudk/livesynth/signal"
)

// Renderer mocks a hotreload.Renderer interface.
//
// By default every block continues a counter: channel c of block b holds
// values b*Channels*BlockSize + c*BlockSize + 1 and up. Apply accepts text
// with a number of channels, anything else is rejected with diagnostics.
// Renderer is not thread-safe, so counters should not be checked while it's
// in use.
type Renderer struct {
	counter
	Channels  int
	BlockSize int
	// Blocks are returned before counter blocks are generated.
	Blocks []signal.Float64
	// ErrorOnApply is returned by every Apply call if set.
	ErrorOnApply error
	// Started receives a value when render begins, if set.
	Started chan struct{}
	// Hold blocks render until it's closed or receives a value, if set.
	Hold chan struct{}

	applied []string
	value   float64
}

// Apply implements hotreload.Renderer.
func (m *Renderer) Apply(text string) error {
	m.applies++
	if m.ErrorOnApply != nil {
		return m.ErrorOnApply
	}
	channels, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || channels < 0 {
		return engine.Diagnostics{{Line: 1, Column: 1, Message: "expected number of channels"}}
	}
	m.Channels = channels
	m.applied = append(m.applied, text)
	return nil
}

// RenderBlock implements hotreload.Renderer.
func (m *Renderer) RenderBlock() signal.Float64 {
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Hold != nil {
		<-m.Hold
	}
	m.renders++
	if len(m.Blocks) > 0 {
		b := m.Blocks[0]
		m.Blocks = m.Blocks[1:]
		return b
	}
	b := signal.EmptyFloat64(m.Channels, m.BlockSize)
	for i := range b {
		for j := range b[i] {
			m.value++
			b[i][j] = m.value
		}
	}
	return b
}

// Applied returns texts of accepted edits in order of application.
func (m *Renderer) Applied() []string {
	return m.applied
}

// Report is a single call of Reporter.
type Report struct {
	hotreload.Edit
	Diagnostics engine.Diagnostics
}

// Reporter mocks a hotreload.Reporter interface. It's safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	reports []Report
}

// Report implements hotreload.Reporter.
func (r *Reporter) Report(edit hotreload.Edit, diags engine.Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{
		Edit:        edit,
		Diagnostics: diags,
	})
}

// Reports returns all received reports.
func (r *Reporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Submitter mocks an edit submitter. It's safe for concurrent use.
type Submitter struct {
	mu    sync.Mutex
	edits []string
}

// Submit records the edit text and returns its sequence number.
func (s *Submitter) Submit(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, text)
	return strconv.Itoa(len(s.edits))
}

// Edits returns all submitted texts.
func (s *Submitter) Edits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.edits...)
}

// counter counts calls.
type counter struct {
	applies int
	renders int
}

// Count returns number of apply and render calls.
func (c *counter) Count() (int, int) {
	return c.applies, c.renders
}
