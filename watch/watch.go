// Package watch submits edits of a patch file.
package watch

import (
	"context"
	"io/ioutil"
	"os"
	"time"

	"github.com/dudk/livesynth/log"
)

// DefaultInterval between file checks.
const DefaultInterval = 200 * time.Millisecond

type (
	// Submitter receives edited text. Hot reload controller implements it.
	Submitter interface {
		Submit(text string) string
	}

	// Watcher polls modification time of the patch file and submits its
	// content when it changes. Same text is never submitted twice in a row.
	Watcher struct {
		path      string
		submitter Submitter
		interval  time.Duration
		log       log.Logger

		modTime time.Time
		size    int64
		text    string
	}

	// Option provides a way to set functional parameters to watcher.
	Option func(w *Watcher)
)

// WithInterval sets interval between file checks.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithLogger sets logger to watcher.
func WithLogger(logger log.Logger) Option {
	return func(w *Watcher) {
		w.log = logger
	}
}

// New returns watcher of the file at path.
func New(path string, s Submitter, options ...Option) *Watcher {
	w := &Watcher{
		path:      path,
		submitter: s,
		interval:  DefaultInterval,
		log:       log.GetLogger(),
	}
	for _, option := range options {
		option(w)
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	return w
}

// Load reads the file without submitting it. Loaded text is considered
// submitted, so it's not sent again until the file changes.
func (w *Watcher) Load() (string, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return "", err
	}
	text, err := ioutil.ReadFile(w.path)
	if err != nil {
		return "", err
	}
	w.modTime, w.size, w.text = info.ModTime(), info.Size(), string(text)
	return w.text, nil
}

// Poll checks the file once and submits its content if it has changed.
// It returns true if the text was submitted.
func (w *Watcher) Poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, err
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false, nil
	}
	b, err := ioutil.ReadFile(w.path)
	if err != nil {
		return false, err
	}
	w.modTime, w.size = info.ModTime(), info.Size()
	text := string(b)
	if text == w.text {
		return false, nil
	}
	w.text = text
	id := w.submitter.Submit(text)
	w.log.Debug("submitted ", w.path, " as edit ", id)
	return true, nil
}

// Run polls the file until the context is done. Failed checks are logged
// and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Poll(); err != nil {
				w.log.Warn("failed to check ", w.path, ": ", err)
			}
		}
	}
}
