package hotkey

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/echocat/slf4g"
)

const (
	registrationAttempts    = 5
	registrationBackoffStep = 150 * time.Millisecond
)

// Scheduler executes closures on the application's run loop.
type Scheduler interface {
	Post(fn func())
	After(d time.Duration, fn func()) (cancel func())
}

// Binder is the platform seam which talks to the OS.
type Binder interface {
	// Bind registers the given key system wide. The OS only reports
	// key-down for it, never key-up; release has to be discovered via
	// Pressed. onPressed can be invoked from an OS thread.
	Bind(key Key, onPressed func()) error

	// Unbind releases the current registration, if any.
	Unbind() error

	// Pressed samples whether the given key is physically held right now.
	Pressed(key Key) bool

	// Close detaches from the OS message source.
	Close() error
}

// Service owns exactly one system wide key binding at a time.
//
// Registration with the OS can transiently fail, for example while another
// process still holds the binding. The first attempt happens inline; further
// attempts are scheduled with increasing backoff on the run loop so no
// caller thread ever sleeps. The final outcome arrives via OnRegistered.
//
// Binder calls are never made while the mutex is held: the binder's message
// pump can be delivering a press at the same moment, and handlePressed must
// never have to wait for a bind or unbind request to finish.
type Service struct {
	// OnPressed is fired once per physical key-down of the bound key. It
	// can be called from an OS thread; the owner has to marshal.
	OnPressed func()

	// OnRegistered reports the outcome of a Register call once
	// registration succeeded or all attempts are exhausted.
	OnRegistered func(key Key, ok bool)

	// OnError is fired for non-fatal operational errors.
	OnError func(err error)

	binder Binder
	sched  Scheduler

	current  Key
	rev      uint64
	cancel   func()
	disposed atomic.Bool
	mutex    sync.Mutex
}

func NewService(binder Binder, sched Scheduler) *Service {
	return &Service{
		binder: binder,
		sched:  sched,
	}
}

// Register binds the given key, releasing the previous binding first.
func (this *Service) Register(key Key) error {
	if key.IsZero() {
		return fmt.Errorf("illegal-key: %v", key)
	}
	if this.disposed.Load() {
		return fmt.Errorf("already disposed")
	}

	this.mutex.Lock()
	this.rev++
	rev := this.rev
	if c := this.cancel; c != nil {
		c()
		this.cancel = nil
	}
	previous := this.current
	this.current = KeyNone
	this.mutex.Unlock()

	if !previous.IsZero() {
		if err := this.binder.Unbind(); err != nil {
			log.WithError(err).
				With("key", previous).
				Warn("Cannot release previous hotkey binding.")
		}
	}

	this.tryRegister(key, rev, 1)
	return nil
}

func (this *Service) tryRegister(key Key, rev uint64, attempt int) {
	if this.disposed.Load() || !this.isCurrentRev(rev) {
		return
	}

	err := this.binder.Bind(key, this.handlePressed)

	this.mutex.Lock()
	if this.disposed.Load() || rev != this.rev {
		this.mutex.Unlock()
		if err == nil {
			// A newer registration took over while we were binding.
			_ = this.binder.Unbind()
		}
		return
	}

	if err == nil {
		this.current = key
		this.cancel = nil
		this.mutex.Unlock()
		log.With("key", key).
			Info("Hotkey registered.")
		this.reportRegistered(key, true)
		return
	}

	if attempt >= registrationAttempts {
		this.cancel = nil
		this.mutex.Unlock()
		this.reportError(fmt.Errorf("cannot register hotkey %v after %d attempts: %w", key, attempt, err))
		this.reportRegistered(key, false)
		return
	}

	delay := time.Duration(attempt) * registrationBackoffStep
	log.WithError(err).
		With("key", key).
		With("attempt", attempt).
		With("retryIn", delay).
		Debug("Hotkey registration failed; will retry.")
	this.cancel = this.sched.After(delay, func() {
		this.tryRegister(key, rev, attempt+1)
	})
	this.mutex.Unlock()
}

func (this *Service) isCurrentRev(rev uint64) bool {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return rev == this.rev
}

// Unregister releases the current binding. It is idempotent and safe to
// call when nothing is registered.
func (this *Service) Unregister() {
	this.mutex.Lock()
	this.rev++
	if c := this.cancel; c != nil {
		c()
		this.cancel = nil
	}
	previous := this.current
	this.current = KeyNone
	this.mutex.Unlock()

	if previous.IsZero() {
		return
	}
	if err := this.binder.Unbind(); err != nil {
		log.WithError(err).
			With("key", previous).
			Warn("Cannot unregister hotkey.")
	}
}

// Current returns the currently bound key, if any.
func (this *Service) Current() Key {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.current
}

// IsPressed samples whether the bound key is physically held right now.
func (this *Service) IsPressed() bool {
	if this.disposed.Load() {
		return false
	}

	this.mutex.Lock()
	key := this.current
	this.mutex.Unlock()

	if key.IsZero() {
		return false
	}
	return this.binder.Pressed(key)
}

func (this *Service) Dispose() error {
	if this.disposed.Swap(true) {
		return nil
	}

	this.mutex.Lock()
	this.rev++
	if c := this.cancel; c != nil {
		c()
		this.cancel = nil
	}
	current := this.current
	this.current = KeyNone
	this.mutex.Unlock()

	if !current.IsZero() {
		_ = this.binder.Unbind()
	}
	return this.binder.Close()
}

// handlePressed arrives from the binder's message pump. It stays lock-free:
// the pump may currently be blocked inside a bind or unbind request of this
// very service.
func (this *Service) handlePressed() {
	if this.disposed.Load() {
		return
	}
	if f := this.OnPressed; f != nil {
		f()
	}
}

func (this *Service) reportRegistered(key Key, ok bool) {
	if f := this.OnRegistered; f != nil {
		f(key, ok)
	}
}

func (this *Service) reportError(err error) {
	if f := this.OnError; f != nil {
		f(err)
	}
}
