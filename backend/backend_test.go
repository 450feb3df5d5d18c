package backend_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/livesynth/backend"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/mock"
	"github.com/dudk/livesynth/signal"
	"github.com/dudk/livesynth/stream"
)

func newMapper(t *testing.T, blocks []signal.Float64, channels, bufferSize int) *backend.Mapper {
	t.Helper()
	r := &mock.Renderer{Blocks: blocks}
	m, err := backend.NewMapper(stream.New(r, 44100, stream.WithLogger(log.Silent())), channels, bufferSize)
	assert.Nil(t, err)
	return m
}

func TestNewMapper(t *testing.T) {
	s := stream.New(&mock.Renderer{}, 44100)
	_, err := backend.NewMapper(s, 0, 16)
	assert.Equal(t, backend.ErrInvalidChannels, err)
	_, err = backend.NewMapper(s, 2, 0)
	assert.Equal(t, backend.ErrInvalidBufferSize, err)
	m, err := backend.NewMapper(s, 2, 16)
	assert.Nil(t, err)
	assert.Equal(t, 2, m.NumChannels())
}

func TestFill(t *testing.T) {
	tests := []struct {
		description string
		blocks      []signal.Float64
		channels    int
		bufferSize  int
		size        int
		expected    []float32
	}{
		{
			description: "same layout",
			blocks:      []signal.Float64{{{1, 2}, {3, 4}}},
			channels:    2,
			bufferSize:  16,
			size:        4,
			expected:    []float32{1, 3, 2, 4},
		},
		{
			description: "non-finite silenced",
			blocks:      []signal.Float64{{{math.NaN(), 1}, {math.Inf(1), math.Inf(-1)}}},
			channels:    2,
			bufferSize:  16,
			size:        4,
			expected:    []float32{0, 0, 1, 0},
		},
		{
			description: "non-finite mono silenced",
			blocks:      []signal.Float64{{{math.NaN(), 0.5}}},
			channels:    2,
			bufferSize:  16,
			size:        4,
			expected:    []float32{0, 0, 0.5, 0.5},
		},
		{
			description: "mono duplicated",
			blocks:      []signal.Float64{{{1, 2}}},
			channels:    2,
			bufferSize:  16,
			size:        4,
			expected:    []float32{1, 1, 2, 2},
		},
		{
			description: "extra channels dropped",
			blocks:      []signal.Float64{{{1, 2}, {3, 4}, {5, 6}}},
			channels:    2,
			bufferSize:  1,
			size:        4,
			expected:    []float32{1, 3, 2, 4},
		},
		{
			description: "missing channels silent",
			blocks:      []signal.Float64{{{1, 2}, {3, 4}}},
			channels:    3,
			bufferSize:  16,
			size:        6,
			expected:    []float32{1, 3, 0, 2, 4, 0},
		},
		{
			description: "layout change",
			blocks: []signal.Float64{
				{{1, 2}},
				{{3, 4}, {5, 6}},
			},
			channels:   2,
			bufferSize: 16,
			size:       8,
			expected:   []float32{1, 1, 2, 2, 3, 5, 4, 6},
		},
		{
			description: "degenerate block",
			blocks: []signal.Float64{
				{{1}},
				{},
			},
			channels:   1,
			bufferSize: 16,
			size:       3,
			expected:   []float32{1, 0, 0},
		},
		{
			description: "partial frame",
			blocks:      []signal.Float64{{{1, 2}, {3, 4}}},
			channels:    2,
			bufferSize:  16,
			size:        3,
			expected:    []float32{1, 3, 0},
		},
	}

	for _, test := range tests {
		m := newMapper(t, test.blocks, test.channels, test.bufferSize)
		dst := make([]float32, test.size)
		for i := range dst {
			dst[i] = -1
		}
		m.Fill(dst)
		assert.Equal(t, test.expected, dst, test.description)
	}
}

func TestFillContinues(t *testing.T) {
	m := newMapper(t, []signal.Float64{
		{{1, 2, 3}, {4, 5, 6}},
		{},
		{{7}},
	}, 2, 2)

	dst := make([]float32, 4)
	m.Fill(dst)
	assert.Equal(t, []float32{1, 4, 2, 5}, dst)
	m.Fill(dst)
	assert.Equal(t, []float32{3, 6, 0, 0}, dst)
	m.Fill(dst)
	assert.Equal(t, []float32{7, 7, 0, 0}, dst)
}

func TestReader(t *testing.T) {
	m := newMapper(t, []signal.Float64{{{0.5, -0.25}}}, 2, 16)
	reader := backend.NewReader(m)

	// shorter than a frame
	n, err := reader.Read(make([]byte, 7))
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	p := make([]byte, 20)
	n, err = reader.Read(p)
	assert.Nil(t, err)
	assert.Equal(t, 16, n)

	var samples []float32
	for i := 0; i < n; i += 4 {
		samples = append(samples, math.Float32frombits(binary.LittleEndian.Uint32(p[i:])))
	}
	assert.Equal(t, []float32{0.5, 0.5, -0.25, -0.25}, samples)

	// degenerate blocks are silent
	n, err = reader.Read(p)
	assert.Nil(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, make([]byte, 16), p[:n])
}
