package audio

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of events into a single callback which fires
// once the quiet period elapsed after the most recent event.
type debouncer struct {
	quiet time.Duration
	fn    func()

	timer *time.Timer
	mutex sync.Mutex
}

func newDebouncer(quiet time.Duration, fn func()) *debouncer {
	return &debouncer{
		quiet: quiet,
		fn:    fn,
	}
}

func (this *debouncer) trigger() {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.timer != nil {
		this.timer.Stop()
	}
	this.timer = time.AfterFunc(this.quiet, this.fn)
}

func (this *debouncer) stop() {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.timer != nil {
		this.timer.Stop()
		this.timer = nil
	}
}
