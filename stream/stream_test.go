package stream_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/hotreload"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/mock"
	"github.com/dudk/livesynth/signal"
	"github.com/dudk/livesynth/stream"
)

const sampleRate = 44100

func newStream(source stream.Source) *stream.Stream {
	return stream.New(source, sampleRate, stream.WithLogger(log.Silent()))
}

func pull(t *testing.T, s *stream.Stream, n int) []float32 {
	t.Helper()
	result := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		v, ok := s.Next()
		assert.True(t, ok)
		result = append(result, v)
	}
	return result
}

func TestInterleave(t *testing.T) {
	r := &mock.Renderer{Channels: 2, BlockSize: 4}
	s := newStream(r)

	assert.Equal(t, []float32{1, 5, 2, 6, 3, 7, 4, 8}, pull(t, s, 8))
	assert.Equal(t, 1, s.Renders())
	assert.Equal(t, 0, s.FrameLen())

	// block is exhausted, the next pull triggers exactly one refresh
	assert.Equal(t, []float32{9}, pull(t, s, 1))
	assert.Equal(t, 2, s.Renders())
	_, renders := r.Count()
	assert.Equal(t, 2, renders)
}

func TestRenderCount(t *testing.T) {
	for _, channels := range []int{1, 2, 3} {
		for _, blockSize := range []int{1, 4, 7} {
			for samples := 0; samples <= 50; samples++ {
				s := newStream(&mock.Renderer{Channels: channels, BlockSize: blockSize})
				produced := pull(t, s, samples)
				perBlock := channels * blockSize
				expected := (samples + perBlock - 1) / perBlock
				assert.Equal(t, expected, s.Renders(), fmt.Sprintf("channels: %d block size: %d samples: %d", channels, blockSize, samples))

				// no skipped or duplicated samples
				for i, v := range produced {
					block, offset := i/perBlock, i%perBlock
					frame, channel := offset/channels, offset%channels
					assert.Equal(t, float32(block*perBlock+channel*blockSize+frame+1), v)
				}
			}
		}
	}
}

func TestChannelCountChange(t *testing.T) {
	r := &mock.Renderer{Channels: 2, BlockSize: 4}
	c := hotreload.New(r,
		hotreload.WithLogger(log.Silent()),
		hotreload.WithReporter(&mock.Reporter{}),
	)
	s := newStream(c)

	assert.Equal(t, 2, s.ChannelCount())
	assert.Equal(t, []float32{1, 5, 2}, pull(t, s, 3))
	c.Submit("1")

	// the rest of the block keeps the old layout
	assert.Equal(t, []float32{6, 3, 7, 4, 8}, pull(t, s, 5))
	assert.Equal(t, 2, s.ChannelCount())
	assert.Equal(t, 1, s.Renders())

	// new layout starts with the next block
	assert.Equal(t, []float32{9, 10, 11, 12, 13}, pull(t, s, 5))
	assert.Equal(t, 1, s.ChannelCount())
	assert.Equal(t, 3, s.Renders())
}

func TestDegenerateBlocks(t *testing.T) {
	r := &mock.Renderer{
		Channels:  1,
		BlockSize: 2,
		Blocks: []signal.Float64{
			{},
			nil,
			{{}, {}},
			{{1, 2, 3}, {4, 5}},
		},
	}
	s := newStream(r)

	for i := 0; i < 3; i++ {
		v, ok := s.Next()
		assert.False(t, ok)
		assert.Equal(t, float32(0), v)
		assert.Equal(t, 0, s.FrameLen())
	}
	assert.Equal(t, 3, s.Renders())

	// ragged block is truncated to the shortest channel
	assert.Equal(t, []float32{1, 4, 2, 5}, pull(t, s, 4))
	assert.Equal(t, 4, s.Renders())
	assert.Equal(t, []float32{1, 2}, pull(t, s, 2))
	assert.Equal(t, 5, s.Renders())
}

func TestRead(t *testing.T) {
	r := &mock.Renderer{Channels: 2, BlockSize: 4}
	s := newStream(r)

	p := make([]float32, 5)
	n, channels := s.Read(p)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, channels)
	assert.Equal(t, []float32{1, 5, 2, 6}, p[:n])

	// read stops at the block boundary
	p = make([]float32, 100)
	n, channels = s.Read(p)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, channels)
	assert.Equal(t, []float32{3, 7, 4, 8}, p[:n])
	assert.Equal(t, 1, s.Renders())

	n, _ = s.Read(p)
	assert.Equal(t, 8, n)
	assert.Equal(t, 2, s.Renders())

	// buffer can't hold a frame
	n, channels = s.Read(make([]float32, 1))
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, channels)

	// degenerate block
	r.Blocks = []signal.Float64{{}}
	s.Reset()
	n, channels = s.Read(p)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, channels)
}

func TestReadAfterNext(t *testing.T) {
	s := newStream(&mock.Renderer{Channels: 2, BlockSize: 4})
	assert.Equal(t, []float32{1}, pull(t, s, 1))

	// frame started by Next is completed first
	p := make([]float32, 4)
	n, _ := s.Read(p)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{5, 2, 6}, p[:n])
}

func TestFrameLenAndReset(t *testing.T) {
	r := &mock.Renderer{Channels: 2, BlockSize: 4}
	s := newStream(r)
	assert.Equal(t, 0, s.FrameLen())
	assert.Equal(t, 0, s.Renders())

	pull(t, s, 1)
	assert.Equal(t, 7, s.FrameLen())
	pull(t, s, 2)
	assert.Equal(t, 5, s.FrameLen())

	s.Reset()
	assert.Equal(t, 0, s.FrameLen())
	assert.Equal(t, []float32{9, 13}, pull(t, s, 2))
	assert.Equal(t, 2, s.Renders())
}

func TestDescriptor(t *testing.T) {
	s := newStream(&mock.Renderer{Channels: 3, BlockSize: 4})
	assert.Equal(t, stream.Descriptor{Channels: 3, SampleRate: sampleRate}, s.Descriptor())
	assert.Equal(t, sampleRate, s.SampleRate())
	d, ok := s.Duration()
	assert.False(t, ok)
	assert.Zero(t, d)

	// descriptor loads the first block and it's not rendered again
	assert.Equal(t, []float32{1, 5, 9}, pull(t, s, 3))
	assert.Equal(t, 1, s.Renders())
}

func TestInvalidEditMidStream(t *testing.T) {
	patch := `
~lfo: tri 3 >> mul 0.5 >> add 0.5
left: saw 220 >> mul ~lfo >> lpf 2000
right: sin 330 >> delay 3
`
	newEngine := func() *engine.Engine {
		e, err := engine.New(engine.DefaultSampleRate, 64, engine.WithLogger(log.Silent()))
		assert.Nil(t, err)
		assert.Nil(t, e.Apply(patch))
		return e
	}
	reporter := &mock.Reporter{}
	c := hotreload.New(newEngine(),
		hotreload.WithLogger(log.Silent()),
		hotreload.WithReporter(reporter),
	)
	edited := newStream(c)
	reference := newStream(newEngine())

	assert.Equal(t, pull(t, reference, 1000), pull(t, edited, 1000))
	c.Submit("left: saw 220 >> mul ~missing")
	assert.Equal(t, pull(t, reference, 1000), pull(t, edited, 1000))
	assert.Equal(t, reference.Renders(), edited.Renders())

	reports := reporter.Reports()
	assert.Equal(t, 1, len(reports))
	assert.Equal(t, engine.Diagnostics{
		{Line: 1, Column: 22, Message: "undefined reference ~missing"},
	}, reports[0].Diagnostics)
}
