package backend

import (
	"encoding/binary"
	"math"
)

const bytesPerSample = 4

// Reader encodes device frames as float32 little-endian bytes for pull
// based devices.
type Reader struct {
	mapper *Mapper
	frame  int
	buf    []float32
}

// NewReader returns reader of mapped frames.
func NewReader(m *Mapper) *Reader {
	return &Reader{
		mapper: m,
		frame:  m.NumChannels() * bytesPerSample,
	}
}

// Read implements io.Reader. Only whole frames are written, so p shorter
// than a frame results in zero bytes read.
func (r *Reader) Read(p []byte) (int, error) {
	samples := len(p) / r.frame * r.mapper.NumChannels()
	if samples == 0 {
		return 0, nil
	}
	if cap(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	r.buf = r.buf[:samples]
	r.mapper.Fill(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(v))
	}
	return samples * bytesPerSample, nil
}
