// Package runloop provides a minimal serial executor. Everything posted to
// a Loop executes on the single goroutine which calls Run, so state owned
// by that loop never needs locking.
package runloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCapacity = 256

func New() *Loop {
	return &Loop{
		work: make(chan func(), defaultCapacity),
	}
}

type Loop struct {
	work chan func()

	spill    []func()
	spilling bool
	mutex    sync.Mutex
}

// Post enqueues fn for execution on the loop. It does not wait for fn to
// run and it never blocks the caller: when the queue is full fn goes into
// an overflow list which a helper goroutine drains in submission order, so
// FIFO holds even beyond the queue's capacity.
func (this *Loop) Post(fn func()) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.spilling {
		select {
		case this.work <- fn:
			return
		default:
		}
		this.spilling = true
		go this.drainSpill()
	}
	this.spill = append(this.spill, fn)
}

// drainSpill moves overflowed closures into the queue one by one. While it
// runs, Post appends to the overflow list instead of the queue; that keeps
// later posts behind earlier ones.
func (this *Loop) drainSpill() {
	for {
		this.mutex.Lock()
		if len(this.spill) == 0 {
			this.spill = nil
			this.spilling = false
			this.mutex.Unlock()
			return
		}
		fn := this.spill[0]
		this.mutex.Unlock()

		this.work <- fn

		this.mutex.Lock()
		this.spill = this.spill[1:]
		this.mutex.Unlock()
	}
}

// After schedules fn to be posted to the loop once d elapsed. The returned
// cancel function prevents the execution, even when the timer already fired
// but fn did not run yet.
func (this *Loop) After(d time.Duration, fn func()) (cancel func()) {
	var cancelled atomic.Bool
	timer := time.AfterFunc(d, func() {
		this.Post(func() {
			if cancelled.Load() {
				return
			}
			fn()
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Run executes posted closures until ctx is done.
func (this *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-this.work:
			fn()
		}
	}
}
