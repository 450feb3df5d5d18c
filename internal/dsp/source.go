package dsp

import (
	"math"
	"math/rand"

	"github.com/dudk/livesynth/internal/dsl"
)

func init() {
	register(Kind{Name: "sin", MinArgs: 1, MaxArgs: 1, Source: true, New: newOscillator(sine)})
	register(Kind{Name: "saw", MinArgs: 1, MaxArgs: 1, Source: true, New: newOscillator(saw)})
	register(Kind{Name: "squ", MinArgs: 1, MaxArgs: 1, Source: true, New: newOscillator(square)})
	register(Kind{Name: "tri", MinArgs: 1, MaxArgs: 1, Source: true, New: newOscillator(triangle)})
	register(Kind{Name: "imp", MinArgs: 1, MaxArgs: 1, Source: true, New: newImpulse})
	register(Kind{Name: "noise", MinArgs: 0, MaxArgs: 1, Source: true, New: newNoise})
	register(Kind{Name: "const", MinArgs: 1, MaxArgs: 1, Source: true, New: newPassive(constant)})
	register(Kind{Name: "mix", MinArgs: 1, MaxArgs: Variadic, Source: true, New: newPassive(mix)})
	register(Kind{Name: dsl.RefNode, MinArgs: 1, MaxArgs: 1, Source: true, New: newPassive(constant)})
}

// waveform maps phase in [0, 1) to sample value.
type waveform func(phase float64) float64

func sine(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

func saw(phase float64) float64 {
	return 2*phase - 1
}

func square(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return -1
}

func triangle(phase float64) float64 {
	return 1 - 4*math.Abs(phase-0.5)
}

// oscillator generates periodic signal with frequency from the first argument.
type oscillator struct {
	wave       waveform
	sampleRate float64
	phase      float64
}

func newOscillator(wave waveform) func(int, []float64) Node {
	return func(sampleRate int, _ []float64) Node {
		return &oscillator{
			wave:       wave,
			sampleRate: float64(sampleRate),
		}
	}
}

func (o *oscillator) Process(_, out []float64, args []Param) {
	freq := args[0]
	for i := range out {
		out[i] = o.wave(o.phase)
		o.phase = advance(o.phase, freq.At(i)/o.sampleRate)
	}
}

// advance moves phase and wraps it into [0, 1).
func advance(phase, delta float64) float64 {
	phase += delta
	if phase >= 1 || phase < 0 {
		phase -= math.Floor(phase)
	}
	return phase
}

// impulse emits single sample of 1 every period.
type impulse struct {
	sampleRate float64
	phase      float64
}

func newImpulse(sampleRate int, _ []float64) Node {
	return &impulse{sampleRate: float64(sampleRate)}
}

func (n *impulse) Process(_, out []float64, args []Param) {
	freq := args[0]
	for i := range out {
		if n.phase == 0 {
			out[i] = 1
		} else {
			out[i] = 0
		}
		next := n.phase + freq.At(i)/n.sampleRate
		if next >= 1 {
			next = 0
		}
		n.phase = next
	}
}

// noise emits white noise from seeded generator, so renders are reproducible.
type noise struct {
	rand *rand.Rand
}

func newNoise(_ int, args []float64) Node {
	var seed int64
	if len(args) > 0 {
		seed = int64(args[0])
	}
	return &noise{rand: rand.New(rand.NewSource(seed))}
}

func (n *noise) Process(_, out []float64, _ []Param) {
	for i := range out {
		out[i] = n.rand.Float64()*2 - 1
	}
}

// passive nodes have no state.
type passive func(out []float64, args []Param)

func newPassive(fn passive) func(int, []float64) Node {
	return func(int, []float64) Node {
		return fn
	}
}

func (fn passive) Process(_, out []float64, args []Param) {
	fn(out, args)
}

// constant copies the first argument, it's also used for references.
func constant(out []float64, args []Param) {
	v := args[0]
	for i := range out {
		out[i] = v.At(i)
	}
}

// mix sums all arguments.
func mix(out []float64, args []Param) {
	for i := range out {
		var sum float64
		for _, arg := range args {
			sum += arg.At(i)
		}
		out[i] = sum
	}
}
