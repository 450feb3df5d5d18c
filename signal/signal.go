// Package signal defines blocks of digital signal produced by the engine
// and the conversions needed to hand them to devices and encoders.
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal. First dimension is for
// channels, second is for samples. It's the engine's unit of production.
type Float64 [][]float64

// InterFloat32 is an interleaved float32 signal, the way devices take it.
type InterFloat32 []float32

// BitDepth of integer samples.
type BitDepth int

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// fullScale is the integer value of float sample 1.0. One step is left
// as headroom. Unknown depths keep float values as is.
func (bitDepth BitDepth) fullScale() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	}
	return 1
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// EmptyFloat64 returns a silent block of provided dimensions.
func EmptyFloat64(numChannels, size int) Float64 {
	block := make(Float64, numChannels)
	for i := range block {
		block[i] = make([]float64, size)
	}
	return block
}

// NumChannels returns number of channels in the block.
func (block Float64) NumChannels() int {
	return len(block)
}

// Size returns length of the first channel. Use Uniform to check that
// all channels have the same length.
func (block Float64) Size() int {
	if len(block) == 0 {
		return 0
	}
	return len(block[0])
}

// Uniform returns true if all channels have the same length.
func (block Float64) Uniform() bool {
	size := block.Size()
	for _, ch := range block {
		if len(ch) != size {
			return false
		}
	}
	return true
}

// MinSize returns the length of the shortest channel.
func (block Float64) MinSize() int {
	size := block.Size()
	for _, ch := range block {
		if len(ch) < size {
			size = len(ch)
		}
	}
	return size
}

// AsInt converts interleaved floats to ints of provided bit depth.
// Values are clamped to [-1, 1], NaN becomes silence.
func (samples InterFloat32) AsInt(bitDepth BitDepth) []int {
	scale := bitDepth.fullScale()
	ints := make([]int, len(samples))
	for i, v := range samples {
		ints[i] = int(clamp(float64(v)) * scale)
	}
	return ints
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
