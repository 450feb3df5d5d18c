package dsp

import (
	"math"
)

// maxDelay limits the delay line length in seconds.
const maxDelay = 2.0

func init() {
	register(Kind{Name: "mul", MinArgs: 1, MaxArgs: 1, New: newPassiveProcessor(multiply)})
	register(Kind{Name: "add", MinArgs: 1, MaxArgs: 1, New: newPassiveProcessor(sum)})
	register(Kind{Name: "clip", MinArgs: 0, MaxArgs: 1, New: newPassiveProcessor(clip)})
	register(Kind{Name: "lpf", MinArgs: 1, MaxArgs: 2, New: newBiquad(lowPass)})
	register(Kind{Name: "hpf", MinArgs: 1, MaxArgs: 2, New: newBiquad(highPass)})
	register(Kind{Name: "delay", MinArgs: 1, MaxArgs: 1, New: newDelay})
}

// passiveProcessor is a processor without state.
type passiveProcessor func(in, out []float64, args []Param)

func newPassiveProcessor(fn passiveProcessor) func(int, []float64) Node {
	return func(int, []float64) Node {
		return fn
	}
}

func (fn passiveProcessor) Process(in, out []float64, args []Param) {
	fn(in, out, args)
}

func multiply(in, out []float64, args []Param) {
	for i := range out {
		out[i] = in[i] * args[0].At(i)
	}
}

func sum(in, out []float64, args []Param) {
	for i := range out {
		out[i] = in[i] + args[0].At(i)
	}
}

func clip(in, out []float64, args []Param) {
	level := optional(args, 0, 1)
	for i := range out {
		l := math.Abs(level.At(i))
		out[i] = math.Max(-l, math.Min(l, in[i]))
	}
}

type response int

const (
	lowPass response = iota
	highPass
)

// biquad is a second order filter with cutoff and optional q arguments.
type biquad struct {
	response
	sampleRate float64
	// cached parameters for coefficients
	cutoff, q          float64
	b0, b1, b2, a1, a2 float64
	// filter memory
	x1, x2, y1, y2 float64
}

func newBiquad(r response) func(int, []float64) Node {
	return func(sampleRate int, _ []float64) Node {
		return &biquad{
			response:   r,
			sampleRate: float64(sampleRate),
			cutoff:     -1,
		}
	}
}

func (f *biquad) Process(in, out []float64, args []Param) {
	cutoff := args[0]
	q := optional(args, 1, math.Sqrt2/2)
	for i := range out {
		f.update(cutoff.At(i), q.At(i))
		x := in[i]
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		out[i] = y
	}
}

// update recalculates coefficients when parameters change.
func (f *biquad) update(cutoff, q float64) {
	nyquist := f.sampleRate / 2
	cutoff = math.Max(1, math.Min(cutoff, nyquist*0.99))
	q = math.Max(q, 0.01)
	if cutoff == f.cutoff && q == f.q {
		return
	}
	f.cutoff, f.q = cutoff, q

	w0 := 2 * math.Pi * cutoff / f.sampleRate
	cos := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	switch f.response {
	case highPass:
		f.b0 = (1 + cos) / 2 / a0
		f.b1 = -(1 + cos) / a0
	default:
		f.b0 = (1 - cos) / 2 / a0
		f.b1 = (1 - cos) / a0
	}
	f.b2 = f.b0
	f.a1 = -2 * cos / a0
	f.a2 = (1 - alpha) / a0
}

// delay delays the input by the time in milliseconds.
type delay struct {
	sampleRate float64
	line       []float64
	pos        int
}

func newDelay(sampleRate int, _ []float64) Node {
	return &delay{
		sampleRate: float64(sampleRate),
		line:       make([]float64, int(maxDelay*float64(sampleRate))+1),
	}
}

func (d *delay) Process(in, out []float64, args []Param) {
	size := len(d.line)
	for i := range out {
		samples := int(args[0].At(i) / 1000 * d.sampleRate)
		if samples < 0 {
			samples = 0
		}
		if samples > size-1 {
			samples = size - 1
		}
		d.line[d.pos] = in[i]
		read := d.pos - samples
		if read < 0 {
			read += size
		}
		out[i] = d.line[read]
		d.pos = (d.pos + 1) % size
	}
}
