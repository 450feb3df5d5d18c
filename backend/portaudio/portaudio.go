// Package portaudio plays the stream with portaudio blocking API. Frames
// are pushed to the default device from the goroutine that calls Play.
package portaudio

import (
	"context"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/livesynth/backend"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/stream"
)

type (
	// Player represents portaudio player which allows to play stream
	// using default device.
	Player struct {
		mapper *backend.Mapper
		buf    []float32
		stream *portaudio.Stream
		log    log.Logger
	}

	// Option provides a way to set functional parameters to player.
	Option func(p *Player)
)

// WithLogger sets logger to player.
func WithLogger(logger log.Logger) Option {
	return func(p *Player) {
		p.log = logger
	}
}

// New initializes portaudio and opens default stream with provided number
// of channels. Buffer size is the number of frames written at once.
func New(s *stream.Stream, channels, bufferSize int, options ...Option) (*Player, error) {
	m, err := backend.NewMapper(s, channels, bufferSize)
	if err != nil {
		return nil, err
	}
	p := &Player{
		mapper: m,
		buf:    make([]float32, bufferSize*channels),
		log:    log.GetLogger(),
	}
	for _, option := range options {
		option(p)
	}

	if err = portaudio.Initialize(); err != nil {
		return nil, err
	}
	p.stream, err = portaudio.OpenDefaultStream(0, channels, float64(s.SampleRate()), bufferSize, &p.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return p, nil
}

// Play writes frames to the device until the context is done. Underflows
// are logged and playback continues.
func (p *Player) Play(ctx context.Context) error {
	if err := p.stream.Start(); err != nil {
		return err
	}
	p.log.Info("playback started")
	var err error
	for ctx.Err() == nil {
		p.mapper.Fill(p.buf)
		if err = p.stream.Write(); err != nil {
			if err != portaudio.OutputUnderflowed {
				break
			}
			p.log.Warn("output underflowed")
			err = nil
		}
	}
	if stopErr := p.stream.Stop(); err == nil {
		err = stopErr
	}
	p.log.Info("playback stopped")
	return err
}

// Close terminates portaudio structures.
func (p *Player) Close() error {
	err := p.stream.Close()
	if err != nil {
		return err
	}
	return portaudio.Terminate()
}
