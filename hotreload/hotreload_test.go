package hotreload_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/dudk/livesynth/engine"
	"github.com/dudk/livesynth/hotreload"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/metric"
	"github.com/dudk/livesynth/mock"
	"github.com/dudk/livesynth/signal"
)

const blockSize = 4

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newController(r hotreload.Renderer, reporter hotreload.Reporter) *hotreload.Controller {
	return hotreload.New(r,
		hotreload.WithLogger(log.Silent()),
		hotreload.WithReporter(reporter),
	)
}

func TestLastEditWins(t *testing.T) {
	r := &mock.Renderer{Channels: 1, BlockSize: blockSize}
	c := newController(r, &mock.Reporter{})

	assert.Equal(t, hotreload.Idle, c.State())
	first := c.Submit("2")
	second := c.Submit("3")
	assert.NotEqual(t, first, second)
	assert.Equal(t, hotreload.Dirty, c.State())
	pending, ok := c.Pending()
	assert.True(t, ok)
	assert.Equal(t, second, pending.ID)
	assert.Equal(t, "3", pending.Text)

	block := c.RenderBlock()
	assert.Equal(t, 3, block.NumChannels())
	assert.Equal(t, []string{"3"}, r.Applied())
	applies, renders := r.Count()
	assert.Equal(t, 1, applies)
	assert.Equal(t, 1, renders)
	assert.Equal(t, hotreload.Idle, c.State())
	_, ok = c.Pending()
	assert.False(t, ok)

	// mailbox is empty, nothing is applied again
	c.RenderBlock()
	applies, renders = r.Count()
	assert.Equal(t, 1, applies)
	assert.Equal(t, 2, renders)
}

func TestRejectedEdit(t *testing.T) {
	reporter := &mock.Reporter{}
	edited := &mock.Renderer{Channels: 2, BlockSize: blockSize}
	reference := &mock.Renderer{Channels: 2, BlockSize: blockSize}
	c := newController(edited, reporter)
	ref := newController(reference, &mock.Reporter{})

	assert.Equal(t, ref.RenderBlock(), c.RenderBlock())
	id := c.Submit("not a number")
	assert.Equal(t, ref.RenderBlock(), c.RenderBlock())
	assert.Equal(t, ref.RenderBlock(), c.RenderBlock())

	reports := reporter.Reports()
	assert.Equal(t, 1, len(reports))
	assert.Equal(t, id, reports[0].ID)
	assert.Equal(t, "not a number", reports[0].Text)
	assert.Equal(t, 1, len(reports[0].Diagnostics))
	assert.NotEmpty(t, reports[0].Diagnostics[0].Message)
	assert.Equal(t, hotreload.Idle, c.State())
}

func TestRejectedEditKeepsEngineOutput(t *testing.T) {
	patch := "~lfo: sin 2 >> mul 3\nleft: saw ~lfo >> lpf 1000\nright: noise 1"
	newEngine := func() *engine.Engine {
		e, err := engine.New(engine.DefaultSampleRate, engine.DefaultBlockSize, engine.WithLogger(log.Silent()))
		assert.Nil(t, err)
		assert.Nil(t, e.Apply(patch))
		return e
	}
	reporter := &mock.Reporter{}
	c := newController(newEngine(), reporter)
	ref := newController(newEngine(), &mock.Reporter{})

	for i := 0; i < 5; i++ {
		assert.Equal(t, ref.RenderBlock(), c.RenderBlock())
	}
	c.Submit("left: saw ~lfo >>> lpf 1000")
	for i := 0; i < 5; i++ {
		assert.Equal(t, ref.RenderBlock(), c.RenderBlock())
	}

	reports := reporter.Reports()
	assert.Equal(t, 1, len(reports))
	assert.NotEmpty(t, reports[0].Diagnostics)
	assert.NotEmpty(t, reports[0].Diagnostics.Error())
}

func TestErrorWithoutDiagnostics(t *testing.T) {
	reporter := &mock.Reporter{}
	r := &mock.Renderer{
		Channels:     1,
		BlockSize:    blockSize,
		ErrorOnApply: errors.New("engine failed"),
	}
	c := newController(r, reporter)
	c.Submit("1")
	block := c.RenderBlock()
	assert.Equal(t, 1, block.NumChannels())

	reports := reporter.Reports()
	assert.Equal(t, 1, len(reports))
	assert.Equal(t, engine.Diagnostics{{Message: "engine failed"}}, reports[0].Diagnostics)
}

func TestSubmitDoesNotWaitForRender(t *testing.T) {
	r := &mock.Renderer{
		Channels:  1,
		BlockSize: blockSize,
		Started:   make(chan struct{}),
		Hold:      make(chan struct{}),
	}
	c := newController(r, &mock.Reporter{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.RenderBlock()
	}()
	<-r.Started

	submitted := make(chan struct{})
	go func() {
		c.Submit("2")
		close(submitted)
	}()
	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("submit is blocked by render")
	}
	assert.Equal(t, hotreload.Dirty, c.State())

	// release the first render and let the next one through
	r.Hold <- struct{}{}
	wg.Wait()
	r.Started, r.Hold = nil, nil

	assert.Equal(t, 2, c.RenderBlock().NumChannels())
	assert.Equal(t, []string{"2"}, r.Applied())
}

// blockingRenderer waits in Apply until released.
type blockingRenderer struct {
	applying chan struct{}
	release  chan struct{}
}

func (r *blockingRenderer) Apply(string) error {
	r.applying <- struct{}{}
	<-r.release
	return nil
}

func (r *blockingRenderer) RenderBlock() signal.Float64 {
	return signal.EmptyFloat64(1, blockSize)
}

func TestApplyingState(t *testing.T) {
	r := &blockingRenderer{
		applying: make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := newController(r, &mock.Reporter{})
	c.Submit("patch")

	done := make(chan struct{})
	go func() {
		c.RenderBlock()
		close(done)
	}()
	<-r.applying
	assert.Equal(t, hotreload.Applying, c.State())
	assert.Equal(t, "applying", c.State().String())

	// edit submitted while applying waits for the next block
	c.Submit("next")
	assert.Equal(t, hotreload.Applying, c.State())
	close(r.release)
	<-done
	assert.Equal(t, hotreload.Dirty, c.State())
	go func() {
		<-r.applying
	}()
	c.RenderBlock()
	assert.Equal(t, hotreload.Idle, c.State())
}

func TestConcurrentEdits(t *testing.T) {
	r := &mock.Renderer{Channels: 1, BlockSize: blockSize}
	c := newController(r, &mock.Reporter{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Submit(strconv.Itoa(1 + i%4))
		}
	}()
	for i := 0; i < 500; i++ {
		block := c.RenderBlock()
		assert.True(t, block.NumChannels() >= 1 && block.NumChannels() <= 4)
		assert.True(t, block.Uniform())
		assert.Equal(t, blockSize, block.Size())
	}
	wg.Wait()

	// the latest edit is applied on the next block
	block := c.RenderBlock()
	assert.Equal(t, 4, block.NumChannels())
}

func TestLogReporter(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	reporter := hotreload.LogReporter(logger)
	reporter.Report(hotreload.Edit{ID: "edit-1"}, engine.Diagnostics{
		{Line: 2, Column: 3, Message: `unknown node "sinn"`},
		{Message: "cycle"},
	})

	entries := hook.AllEntries()
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, `unknown node "sinn"`, entries[0].Message)
	assert.Equal(t, logrus.Fields{"edit": "edit-1", "line": 2, "column": 3}, entries[0].Data)
	assert.Equal(t, "cycle", entries[1].Message)
}

func TestDefaultReporterUsesLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := &mock.Renderer{Channels: 1, BlockSize: blockSize}
	c := hotreload.New(r, hotreload.WithLogger(logger))

	id := c.Submit("not a number")
	c.RenderBlock()

	entry := hook.LastEntry()
	assert.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, id, entry.Data["edit"])
}

func TestLoad(t *testing.T) {
	reporter := &mock.Reporter{}
	r := &mock.Renderer{Channels: 1, BlockSize: blockSize}
	c := newController(r, reporter)

	assert.Nil(t, c.Load("2"))
	assert.Equal(t, []string{"2"}, r.Applied())
	assert.Equal(t, 2, c.RenderBlock().NumChannels())

	// rejected load is returned, not reported
	assert.NotNil(t, c.Load("not a number"))
	assert.Equal(t, 0, len(reporter.Reports()))
	assert.Equal(t, 2, c.RenderBlock().NumChannels())

	// pending edit is kept
	c.Submit("3")
	assert.Nil(t, c.Load("1"))
	assert.Equal(t, hotreload.Dirty, c.State())
	assert.Equal(t, 3, c.RenderBlock().NumChannels())
	assert.Equal(t, []string{"2", "1", "3"}, r.Applied())
}

func TestLoadWaitsForRender(t *testing.T) {
	r := &mock.Renderer{
		Channels:  1,
		BlockSize: blockSize,
		Started:   make(chan struct{}),
		Hold:      make(chan struct{}),
	}
	c := newController(r, &mock.Reporter{})

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		c.RenderBlock()
	}()
	<-r.Started

	loaded := make(chan error)
	go func() {
		loaded <- c.Load("2")
	}()
	select {
	case <-loaded:
		t.Fatal("load must wait for the block being rendered")
	case <-time.After(20 * time.Millisecond):
	}

	close(r.Hold)
	<-rendered
	assert.Nil(t, <-loaded)
	r.Started = nil
	assert.Equal(t, 2, c.RenderBlock().NumChannels())
}

func TestMetric(t *testing.T) {
	r := &mock.Renderer{Channels: 1, BlockSize: blockSize}
	c := hotreload.New(r,
		hotreload.WithLogger(log.Silent()),
		hotreload.WithReporter(&mock.Reporter{}),
		hotreload.WithMetric(44100),
	)
	counter := func(name string) int {
		v, err := strconv.Atoi(metric.Get(c)[name])
		assert.Nil(t, err)
		return v
	}
	blocks, applied, rejected := counter(metric.BlockCounter), counter(metric.AppliedCounter), counter(metric.RejectedCounter)

	c.Submit("2")
	c.RenderBlock()
	c.Submit("x")
	c.RenderBlock()

	assert.Equal(t, blocks+2, counter(metric.BlockCounter))
	assert.Equal(t, applied+1, counter(metric.AppliedCounter))
	assert.Equal(t, rejected+1, counter(metric.RejectedCounter))
}
