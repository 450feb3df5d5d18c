// Package hotreload swaps the live graph while it's being rendered.
//
// Controller serializes access to a single renderer from two sides: the
// editing side submits patch text at any time and the rendering side asks
// for blocks. Submit only stores the text in a single-slot mailbox, the
// newest edit replaces the one that wasn't applied yet. The mailbox is
// checked before every block: pending edit is applied and the block is
// rendered under the same lock, so the renderer never observes a graph in
// the middle of a swap.
package hotreload

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/metric"
	"github.com/dudk/livesynth/signal"
)

type (
	// Renderer is the engine controlled by Controller. Its methods are
	// never called concurrently.
	Renderer interface {
		Apply(text string) error
		RenderBlock() signal.Float64
	}

	// Edit is a submitted patch text.
	Edit struct {
		ID        string
		Text      string
		Submitted time.Time
	}

	// State of the controller.
	State int32

	// Controller mediates access to the renderer.
	Controller struct {
		renderMu sync.Mutex
		renderer Renderer

		mailboxMu sync.Mutex
		pending   *Edit
		applying  int32

		reporter Reporter
		log      log.Logger
		meter    *metric.Meter
	}

	// Option provides a way to set functional parameters to controller.
	Option func(c *Controller)
)

const (
	// Idle means there are no pending edits.
	Idle State = iota
	// Dirty means there is an edit which will be applied before next block.
	Dirty
	// Applying means an edit is being applied.
	Applying
)

// WithReporter sets reporter for rejected edits. If this option is not
// provided, diagnostics are logged with the controller's logger.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithLogger sets logger to controller.
func WithLogger(logger log.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithMetric enables render and edit metrics for the controller.
func WithMetric(sampleRate int) Option {
	return func(c *Controller) {
		c.meter = metric.New(c, sampleRate)
	}
}

// New creates controller for provided renderer. Renderer must not be
// used directly after this call.
func New(r Renderer, options ...Option) *Controller {
	c := &Controller{
		renderer: r,
		log:      log.GetLogger(),
	}
	for _, option := range options {
		option(c)
	}
	if c.reporter == nil {
		c.reporter = defaultReporter(c.log)
	}
	return c
}

// defaultReporter logs diagnostics with l if it supports fields.
func defaultReporter(l log.Logger) Reporter {
	if fl, ok := l.(logrus.FieldLogger); ok {
		return LogReporter(fl)
	}
	return LogReporter(log.GetLogger())
}

// Load applies text right away and returns the renderer's error. It waits
// for the block being rendered. Pending edit stays in the mailbox and
// rejected text is not reported.
func (c *Controller) Load(text string) error {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	return c.renderer.Apply(text)
}

// Submit stores patch text to be applied before the next block. It never
// waits for rendering. Edit that wasn't applied yet is discarded. ID of
// the new edit is returned.
func (c *Controller) Submit(text string) string {
	e := &Edit{
		ID:        xid.New().String(),
		Text:      text,
		Submitted: time.Now(),
	}
	c.mailboxMu.Lock()
	discarded := c.pending
	c.pending = e
	c.mailboxMu.Unlock()

	if discarded != nil {
		c.log.Debug("edit ", discarded.ID, " replaced by ", e.ID)
	}
	return e.ID
}

// Pending returns the edit that waits in the mailbox.
func (c *Controller) Pending() (Edit, bool) {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	if c.pending == nil {
		return Edit{}, false
	}
	return *c.pending, true
}

// State returns current state of the controller.
func (c *Controller) State() State {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	switch {
	case atomic.LoadInt32(&c.applying) == 1:
		return Applying
	case c.pending != nil:
		return Dirty
	}
	return Idle
}

// RenderBlock applies pending edit if there is one and renders next block.
// Rejected edit is reported after the block is rendered, the block comes
// from the graph that was live before the edit.
func (c *Controller) RenderBlock() signal.Float64 {
	edit, dirty := c.take()

	c.renderMu.Lock()
	var err error
	if dirty {
		err = c.renderer.Apply(edit.Text)
		atomic.StoreInt32(&c.applying, 0)
	}
	start := time.Now()
	block := c.renderer.RenderBlock()
	c.meter.Block(block.Size(), time.Since(start))
	c.renderMu.Unlock()

	if dirty {
		c.applied(edit, err)
	}
	return block
}

// take empties the mailbox.
func (c *Controller) take() (Edit, bool) {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	if c.pending == nil {
		return Edit{}, false
	}
	e := *c.pending
	c.pending = nil
	atomic.StoreInt32(&c.applying, 1)
	return e, true
}

// applied counts the edit and reports diagnostics if it was rejected.
func (c *Controller) applied(e Edit, err error) {
	if err == nil {
		c.meter.Applied()
		c.log.Info("edit ", e.ID, " applied after ", time.Since(e.Submitted))
		return
	}
	c.meter.Rejected()
	var diags engine.Diagnostics
	if !errors.As(err, &diags) {
		diags = engine.Diagnostics{{Message: err.Error()}}
	}
	c.reporter.Report(e, diags)
}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Applying:
		return "applying"
	}
	return "unknown"
}
