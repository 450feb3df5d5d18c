// +build portaudio

package portaudio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/livesynth/backend/portaudio"
	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/stream"
)

const bufferSize = 512

func TestPlay(t *testing.T) {
	e, err := engine.New(engine.DefaultSampleRate, bufferSize)
	assert.Nil(t, err)
	assert.Nil(t, e.Apply("out: sin 440 >> mul 0.2"))

	p, err := portaudio.New(stream.New(e, e.SampleRate()), 2, bufferSize)
	assert.Nil(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Nil(t, p.Play(ctx))
	assert.Nil(t, p.Close())
}
