// Package metric publishes render and reload counters with expvar.
//
// Every metered component type gets its own expvar map named
// "livesynth.<type>", instances of the same type share it.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/livesynth/signal"
)

const prefix = "livesynth."

const (
	// BlockCounter measures number of rendered blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of rendered samples per channel.
	SampleCounter = "Samples"
	// LatencyCounter measures the time spent on the latest render.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of rendered signal.
	DurationCounter = "Duration"
	// AppliedCounter counts accepted edits.
	AppliedCounter = "Applied"
	// RejectedCounter counts edits that failed to compile.
	RejectedCounter = "Rejected"
	// ComponentCounter counts number of metered instances.
	ComponentCounter = "Components"
)

var registry = struct {
	sync.Mutex
	sets map[string]*set
}{
	sets: make(map[string]*set),
}

// set is the published map of a single component type.
type set struct {
	vars     *expvar.Map
	latency  *duration
	duration *duration
}

// lookup returns the set of component type. Missing set is published
// only if create is true.
func lookup(componentType string, create bool) *set {
	registry.Lock()
	defer registry.Unlock()
	if s, ok := registry.sets[componentType]; ok || !create {
		return s
	}
	s := &set{
		vars:     expvar.NewMap(prefix + componentType),
		latency:  &duration{},
		duration: &duration{},
	}
	for _, counter := range []string{ComponentCounter, BlockCounter, SampleCounter, AppliedCounter, RejectedCounter} {
		s.vars.Add(counter, 0)
	}
	s.vars.Set(LatencyCounter, s.latency)
	s.vars.Set(DurationCounter, s.duration)
	registry.sets[componentType] = s
	return s
}

func (s *set) values() map[string]string {
	m := make(map[string]string)
	if s == nil {
		return m
	}
	s.vars.Do(func(kv expvar.KeyValue) {
		m[kv.Key] = kv.Value.String()
	})
	return m
}

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return lookup(typeOf(component), false).values()
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	registry.Lock()
	sets := make(map[string]*set, len(registry.sets))
	for componentType, s := range registry.sets {
		sets[componentType] = s
	}
	registry.Unlock()

	all := make(map[string]map[string]string, len(sets))
	for componentType, s := range sets {
		all[componentType] = s.values()
	}
	return all
}

// Meter captures counters of a single component instance.
type Meter struct {
	set        *set
	sampleRate int
	// cached duration of the last block size.
	blockSize     int
	blockDuration time.Duration
}

// New creates new meter to capture component counters. Components of the
// same type share counters.
func New(component interface{}, sampleRate int) *Meter {
	s := lookup(typeOf(component), true)
	s.vars.Add(ComponentCounter, 1)
	return &Meter{
		set:        s,
		sampleRate: sampleRate,
	}
}

// Block captures metrics when block is rendered. Nil meter is no-op.
func (m *Meter) Block(size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.blockSize != size {
		m.blockSize = size
		m.blockDuration = signal.DurationOf(m.sampleRate, int64(size))
	}
	m.set.latency.store(elapsed)
	m.set.duration.add(m.blockDuration)
	m.set.vars.Add(BlockCounter, 1)
	m.set.vars.Add(SampleCounter, int64(size))
}

// Applied counts accepted edit. Nil meter is no-op.
func (m *Meter) Applied() {
	if m != nil {
		m.set.vars.Add(AppliedCounter, 1)
	}
}

// Rejected counts rejected edit. Nil meter is no-op.
func (m *Meter) Rejected() {
	if m != nil {
		m.set.vars.Add(RejectedCounter, 1)
	}
}

// typeOf returns the name of dereferenced component type.
func typeOf(component interface{}) string {
	t := reflect.TypeOf(component)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// duration is an expvar.Var of time.Duration formatted as a quoted string.
type duration struct {
	ns int64
}

func (d *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&d.ns)))
}

func (d *duration) add(delta time.Duration) {
	atomic.AddInt64(&d.ns, int64(delta))
}

func (d *duration) store(value time.Duration) {
	atomic.StoreInt64(&d.ns, int64(value))
}
