// Package oto plays the stream with ebitengine/oto. Oto pulls samples
// from its own goroutine whenever device buffer drains.
package oto

import (
	"context"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/dudk/livesynth/backend"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/stream"
)

type (
	// Player plays stream on default device.
	Player struct {
		ctx    *oto.Context
		player *oto.Player
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

// New opens default device with provided number of channels. Buffer size
// defines device latency. Only one player can exist in the process.
func New(s *stream.Stream, channels int, bufferSize time.Duration, options ...Option) (*Player, error) {
	frames := int(int64(s.SampleRate()) * int64(bufferSize) / int64(time.Second))
	if frames <= 0 {
		return nil, backend.ErrInvalidBufferSize
	}
	m, err := backend.NewMapper(s, channels, frames)
	if err != nil {
		return nil, err
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.SampleRate(),
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	p := &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(backend.NewReader(m)),
		log:    log.GetLogger(),
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

// Play starts playback and blocks until the context is done.
func (p *Player) Play(ctx context.Context) error {
	p.player.Play()
	p.log.Info("playback started")
	<-ctx.Done()
	p.player.Pause()
	p.log.Info("playback stopped")
	return p.player.Err()
}

// Close releases the player.
func (p *Player) Close() error {
	return p.player.Close()
}
