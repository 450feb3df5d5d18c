// Package backend connects a stream to audio devices.
//
// Devices are opened with a fixed number of channels, while the stream
// changes its layout whenever the graph does. Mapper converts stream
// frames to device frames: mono is duplicated to every device channel,
// extra stream channels are dropped and missing ones are silent.
package backend

import (
	"context"
	"errors"
	"math"

	"github.com/dudk/livesynth/stream"
)

var (
	// ErrInvalidChannels is returned when device is opened without channels.
	ErrInvalidChannels = errors.New("device must have at least one channel")
	// ErrInvalidBufferSize is returned when device buffer can't hold a frame.
	ErrInvalidBufferSize = errors.New("buffer size must be positive")
)

// Player plays the stream on a device until the context is done.
type Player interface {
	Play(ctx context.Context) error
	Close() error
}

// Mapper pulls frames from the stream and lays them out for a device.
// It's not safe for concurrent use.
type Mapper struct {
	stream   *stream.Stream
	channels int

	buf     []float32
	pending []float32
	layout  int
}

// NewMapper returns mapper for a device with provided number of channels.
// Frames are pulled from the stream in chunks of bufferSize frames.
func NewMapper(s *stream.Stream, channels, bufferSize int) (*Mapper, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if bufferSize <= 0 {
		return nil, ErrInvalidBufferSize
	}
	return &Mapper{
		stream:   s,
		channels: channels,
		// room for stereo frames, grows for wider layouts
		buf: make([]float32, bufferSize*2),
	}, nil
}

// NumChannels returns number of device channels.
func (m *Mapper) NumChannels() int {
	return m.channels
}

// Fill writes device frames into dst. Non-finite samples are silenced. Tail of dst that can't hold a whole
// frame is zeroed. If the stream yields a degenerate block, the rest of dst
// is filled with silence and the stream is retried on the next call.
func (m *Mapper) Fill(dst []float32) {
	n := 0
	for n+m.channels <= len(dst) {
		if len(m.pending) == 0 {
			read, layout := m.stream.Read(m.buf)
			if read == 0 {
				if layout > len(m.buf) {
					m.buf = make([]float32, len(m.buf)/2*layout)
					continue
				}
				break
			}
			m.pending, m.layout = m.buf[:read], layout
		}
		frame := m.pending[:m.layout]
		for c := 0; c < m.channels; c++ {
			switch {
			case m.layout == 1:
				dst[n+c] = finite(frame[0])
			case c < m.layout:
				dst[n+c] = finite(frame[c])
			default:
				dst[n+c] = 0
			}
		}
		m.pending = m.pending[m.layout:]
		n += m.channels
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// finite returns 0 for NaN and infinite samples.
func finite(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}
