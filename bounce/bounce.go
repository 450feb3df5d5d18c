// Package bounce renders the stream into audio files.
//
// Channel layout of a file is fixed by the first block of the stream, the
// following blocks are mapped to it the same way they are mapped to a
// device.
package bounce

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/viert/lame"

	"github.com/dudk/livesynth/backend"
	"github.com/dudk/livesynth/signal"
	"github.com/dudk/livesynth/stream"
)

// chunkSize is the number of frames encoded at once.
const chunkSize = 1024

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrNoChannels is returned when the stream has no output channels.
	ErrNoChannels = errors.New("stream has no channels")
)

// Wav writes frames of the stream into wav encoded ws.
func Wav(ws io.WriteSeeker, s *stream.Stream, frames int, bitDepth signal.BitDepth) error {
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return ErrUnsupportedBitDepth
	}
	numChannels := s.ChannelCount()
	if numChannels == 0 {
		return ErrNoChannels
	}
	m, err := backend.NewMapper(s, numChannels, chunkSize)
	if err != nil {
		return err
	}

	e := wav.NewEncoder(ws, s.SampleRate(), int(bitDepth), numChannels, 1)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  s.SampleRate(),
		},
		SourceBitDepth: int(bitDepth),
	}
	err = render(m, frames, func(b signal.InterFloat32) error {
		ib.Data = b.AsInt(bitDepth)
		return e.Write(ib)
	})
	if err != nil {
		return err
	}
	return e.Close()
}

// Mp3 writes frames of the stream into mp3 encoded w. It's always encoded
// as joint stereo.
func Mp3(w io.Writer, s *stream.Stream, frames int, bitRate, quality int) error {
	const numChannels = 2
	if s.ChannelCount() == 0 {
		return ErrNoChannels
	}
	m, err := backend.NewMapper(s, numChannels, chunkSize)
	if err != nil {
		return err
	}

	wr := lame.NewWriter(w)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(s.SampleRate())
	wr.Encoder.SetMode(lame.JOINT_STEREO)
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()

	buf := new(bytes.Buffer)
	err = render(m, frames, func(b signal.InterFloat32) error {
		buf.Reset()
		ints := b.AsInt(signal.BitDepth16)
		for i := range ints {
			if err := binary.Write(buf, binary.LittleEndian, int16(ints[i])); err != nil {
				return err
			}
		}
		_, err := wr.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return err
	}
	return wr.Close()
}

// render pulls frames in chunks and passes them to the encoder.
func render(m *backend.Mapper, frames int, encode func(signal.InterFloat32) error) error {
	buf := make(signal.InterFloat32, chunkSize*m.NumChannels())
	for frames > 0 {
		n := chunkSize
		if frames < n {
			n = frames
		}
		b := buf[:n*m.NumChannels()]
		m.Fill(b)
		if err := encode(b); err != nil {
			return err
		}
		frames -= n
	}
	return nil
}
