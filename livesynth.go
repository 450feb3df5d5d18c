package livesynth

import (
	"github.com/sirupsen/logrus"

	"github.com/dudk/livesynth/config"
	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/hotreload"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/stream"
)

type (
	// Session is a live patch playing at configured sample rate.
	Session struct {
		Controller *hotreload.Controller
		Stream     *stream.Stream
	}

	// Option provides a way to set functional parameters to session.
	Option func(*options)

	options struct {
		logger   *logrus.Logger
		reporter hotreload.Reporter
	}
)

// WithLogger sets logger to all session components.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithReporter sets reporter of rejected edits.
func WithReporter(r hotreload.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// New returns a session with empty graph. Initial patch is set with Load.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	o := options{
		logger: log.GetLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = hotreload.LogReporter(o.logger)
	}

	e, err := engine.New(cfg.SampleRate, cfg.BlockSize, engine.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	c := hotreload.New(e,
		hotreload.WithLogger(o.logger),
		hotreload.WithReporter(o.reporter),
		hotreload.WithMetric(cfg.SampleRate),
	)
	return &Session{
		Controller: c,
		Stream:     stream.New(c, cfg.SampleRate, stream.WithLogger(o.logger)),
	}, nil
}

// Load compiles patch text. Unlike Submit, it's applied right away and its
// diagnostics are returned as engine.Diagnostics.
func (s *Session) Load(text string) error {
	return s.Controller.Load(text)
}

// Submit sends edited text to the controller.
func (s *Session) Submit(text string) string {
	return s.Controller.Submit(text)
}
