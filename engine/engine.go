// Package engine owns the signal graph compiled from patch text.
//
// Engine compiles patch text into a graph and renders it block by block.
// Apply builds the complete new graph before it replaces the live one, so
// a patch that fails to compile leaves the previous graph untouched and
// playable. Engine is not safe for concurrent use, access must be
// serialized by the caller (see hotreload package).
package engine

import (
	"errors"

	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/signal"
)

const (
	// DefaultBlockSize is the number of samples per channel in a block.
	DefaultBlockSize = 128
	// DefaultSampleRate is used when no sample rate is configured.
	DefaultSampleRate = 44100
)

var (
	// ErrInvalidBlockSize is returned when engine is created with non-positive block size.
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate is returned when engine is created with non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Engine renders blocks of the live graph.
type Engine struct {
	name       string
	sampleRate int
	blockSize  int
	graph      *graph
	text       string
	log        log.Logger
}

// Option provides a way to set functional parameters to engine.
type Option func(e *Engine)

// WithLogger sets logger to engine.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// WithName sets name to engine.
func WithName(n string) Option {
	return func(e *Engine) {
		e.name = n
	}
}

// New creates engine without graph. Until the first successful Apply,
// blocks have no channels.
func New(sampleRate, blockSize int, options ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	e := &Engine{
		name:       "engine",
		sampleRate: sampleRate,
		blockSize:  blockSize,
		log:        log.GetLogger(),
	}
	for _, option := range options {
		option(e)
	}
	return e, nil
}

// Check parses and validates patch text without building a graph.
// Diagnostics are returned if text is not valid.
func Check(text string) error {
	_, diags := parse(text)
	return diags.ret()
}

// Apply compiles patch text and replaces the live graph. If text doesn't
// compile, Diagnostics are returned and the live graph stays as is.
func (e *Engine) Apply(text string) error {
	pl, diags := parse(text)
	if len(diags) > 0 {
		e.log.Debug(e.name, ": patch rejected: ", diags)
		return diags
	}
	e.graph = build(pl, e.graph, e.sampleRate, e.blockSize)
	e.text = text
	e.log.Debug(e.name, ": patch applied, channels: ", len(e.graph.outputs))
	return nil
}

// RenderBlock renders next block of the live graph. Returned block
// belongs to the caller. Every channel has BlockSize samples.
func (e *Engine) RenderBlock() signal.Float64 {
	if e.graph == nil {
		return signal.Float64{}
	}
	return e.graph.render()
}

// Text returns text of the live graph.
func (e *Engine) Text() string {
	return e.text
}

// NumChannels returns number of channels in blocks of the live graph.
func (e *Engine) NumChannels() int {
	if e.graph == nil {
		return 0
	}
	return len(e.graph.outputs)
}

// BlockSize returns number of samples per channel in a block.
func (e *Engine) BlockSize() int {
	return e.blockSize
}

// SampleRate returns the engine sample rate.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

func (e *Engine) String() string {
	return e.name
}
