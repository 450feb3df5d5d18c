// Package stream flattens rendered blocks into a pull-based sequence of
// samples.
//
// Blocks are non-interleaved, the stream walks every channel of a sample
// before moving to the next one, so the produced sequence is interleaved.
// New block is rendered only when the current one is exhausted and its
// channel count is read again, so a graph with different number of outputs
// takes effect exactly at the block boundary.
package stream

import (
	"time"

	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/signal"
)

type (
	// Source renders blocks. Both engine and hot reload controller
	// implement it.
	Source interface {
		RenderBlock() signal.Float64
	}

	// Stream is an infinite sequence of samples. It's not safe for
	// concurrent use, it's meant to be pulled by a single playback
	// goroutine.
	Stream struct {
		source     Source
		sampleRate int
		log        log.Logger

		block   signal.Float64
		size    int
		channel int
		index   int
		loaded  bool
		renders int
	}

	// Descriptor describes the stream for a playback backend.
	Descriptor struct {
		Channels   int
		SampleRate int
	}

	// Option provides a way to set functional parameters to stream.
	Option func(s *Stream)
)

// WithLogger sets logger to stream.
func WithLogger(logger log.Logger) Option {
	return func(s *Stream) {
		s.log = logger
	}
}

// New returns a stream of blocks rendered by source. Sample rate is only
// reported to the backend, source is expected to render at this rate.
// First block is rendered lazily, on the first pull.
func New(source Source, sampleRate int, options ...Option) *Stream {
	s := &Stream{
		source:     source,
		sampleRate: sampleRate,
		log:        log.GetLogger(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Next returns the next sample. False is returned when the freshly
// rendered block has no channels or no samples, caller should retry later.
func (s *Stream) Next() (float32, bool) {
	if !s.ready() {
		return 0, false
	}
	v := s.block[s.channel][s.index]
	s.channel++
	return float32(v), true
}

// Read copies samples into p and returns number of samples written with
// the channel count they are laid out in. Read starts at most one new block
// and stops at its end, so all samples of a single call share the channel
// layout. New frame is started only if it fits into p completely. Zero is
// returned for degenerate blocks.
func (s *Stream) Read(p []float32) (int, int) {
	if !s.ready() {
		return 0, 0
	}
	channels := len(s.block)
	n := 0
	for {
		if s.channel >= channels {
			s.channel = 0
			s.index++
		}
		if s.index >= s.size || n == len(p) {
			break
		}
		if s.channel == 0 && len(p)-n < channels {
			break
		}
		p[n] = float32(s.block[s.channel][s.index])
		s.channel++
		n++
	}
	return n, channels
}

// ChannelCount returns number of channels in the current block. If no block
// was rendered yet, it's rendered.
func (s *Stream) ChannelCount() int {
	if !s.loaded {
		s.ready()
	}
	return len(s.block)
}

// SampleRate returns sample rate of the stream.
func (s *Stream) SampleRate() int {
	return s.sampleRate
}

// Duration of the stream is unknown, it never ends.
func (s *Stream) Duration() (time.Duration, bool) {
	return 0, false
}

// FrameLen returns number of samples left in the current block. Channel
// count can only change after this many samples.
func (s *Stream) FrameLen() int {
	if s.index >= s.size {
		return 0
	}
	return (s.size-s.index)*len(s.block) - s.channel
}

// Descriptor returns metadata of the current block.
func (s *Stream) Descriptor() Descriptor {
	return Descriptor{
		Channels:   s.ChannelCount(),
		SampleRate: s.sampleRate,
	}
}

// Reset drops the current block, the next pull renders a new one.
func (s *Stream) Reset() {
	s.block = nil
	s.size = 0
	s.channel = 0
	s.index = 0
	s.loaded = false
}

// Renders returns number of rendered blocks.
func (s *Stream) Renders() int {
	return s.renders
}

// ready moves cursor to the next sample position and renders a new block
// if the current one is exhausted. It returns false if there is no sample
// to return.
func (s *Stream) ready() bool {
	if s.channel >= len(s.block) {
		s.channel = 0
		s.index++
	}
	if s.index < s.size {
		return true
	}
	s.refresh()
	return len(s.block) > 0 && s.size > 0
}

// refresh renders a new block and resets cursor.
func (s *Stream) refresh() {
	prev := len(s.block)
	block := s.source.RenderBlock()
	s.renders++
	// ragged blocks are truncated to the shortest channel
	s.size = block.MinSize()
	if !block.Uniform() {
		s.log.Debug("ragged block truncated to ", s.size, " samples")
	}
	if s.loaded && prev != len(block) {
		s.log.Debug("channel count changed from ", prev, " to ", len(block))
	}
	s.block = block
	s.channel = 0
	s.index = 0
	s.loaded = true
}
