package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/talk-switch/pkg/common"
)

const (
	DefaultPollInterval     = 200 * time.Millisecond
	DefaultTopologyDebounce = 500 * time.Millisecond
)

// ApplyResult reports the outcome of one mute write across all currently
// active capture devices.
type ApplyResult struct {
	Applied int
	Failed  int
}

func (this ApplyResult) String() string {
	return fmt.Sprintf("applied=%d,failed=%d", this.Applied, this.Failed)
}

// pendingWrite is the stamp of an internal mute write which was not yet
// observed back by the poll. It suppresses exactly the matching external
// classification, nothing else; a newer write supersedes it.
type pendingWrite struct {
	value      bool
	generation uint64
}

// Controller keeps all active capture devices in one logical mute state,
// detects drift caused outside this process and classifies every observed
// transition as either internal or external.
//
// Event callbacks are delivered through Notify when set; the application
// points Notify at its run loop so handlers never execute on the poll
// goroutine or an OS callback thread.
type Controller struct {
	// OnMuteStateChanged is fired for every confirmed state change, no
	// matter who caused it.
	OnMuteStateChanged func(muted bool)

	// OnExternalChange is fired for the subset of state changes which were
	// not caused by a write of this process.
	OnExternalChange func(muted bool)

	// OnDeviceChanged is fired when the device topology or the default
	// capture device changed. Add/remove churn is debounced.
	OnDeviceChanged func()

	// OnError is fired for non-fatal operational errors.
	OnError func(err error)

	// Notify delivers the events above; defaults to direct invocation.
	Notify func(fn func())

	PollInterval     time.Duration
	TopologyDebounce time.Duration

	backend Backend
	churn   *debouncer

	lastKnown      bool
	lastKnownValid bool
	pending        *pendingWrite
	generation     uint64
	mutex          sync.Mutex
}

func NewController(backend Backend) *Controller {
	return &Controller{
		PollInterval:     DefaultPollInterval,
		TopologyDebounce: DefaultTopologyDebounce,
		backend:          backend,
	}
}

// Initialize attaches the controller to the backend's topology
// notifications. It has to be called before Run.
func (this *Controller) Initialize() error {
	this.churn = newDebouncer(this.TopologyDebounce, this.deviceChanged)
	if err := this.backend.Listen(this); err != nil {
		return fmt.Errorf("cannot listen for device topology changes: %w", err)
	}
	return nil
}

func (this *Controller) Dispose() error {
	if c := this.churn; c != nil {
		c.stop()
	}
	return nil
}

// GetMuted reads the mute flag of the default capture device.
func (this *Controller) GetMuted() (bool, error) {
	devices, err := this.backend.Devices()
	if err != nil {
		return false, fmt.Errorf("cannot enumerate capture devices: %w", err)
	}
	first, ok := devices.First()
	if !ok {
		return false, NoActiveDeviceError{}
	}
	return first.Muted, nil
}

// SetMuted applies target to every currently active capture device. A
// single device failing to apply is counted but does not abort the
// remaining devices; the operation fails only if no device applied.
//
// The write is stamped before the hardware is touched, so the poll can
// attribute the resulting transition to this process.
func (this *Controller) SetMuted(target bool) (ApplyResult, error) {
	devices, err := this.backend.Devices()
	if err != nil {
		err = fmt.Errorf("cannot enumerate capture devices: %w", err)
		this.reportError(err)
		return ApplyResult{}, err
	}
	if devices.IsZero() {
		err := NoActiveDeviceError{}
		this.reportError(err)
		return ApplyResult{}, err
	}

	generation := this.stamp(target)

	var result ApplyResult
	for _, device := range devices {
		if err := this.backend.SetMuted(device.ID, target); err != nil {
			log.WithError(err).
				With("device", device).
				With("target", target).
				Warn("Cannot apply mute state to device.")
			result.Failed++
			continue
		}
		result.Applied++
	}

	if result.Applied == 0 {
		// The hardware was never touched; do not suppress anything.
		this.clearStamp(generation)
		err := DeviceApplyError{Failed: result.Failed}
		this.reportError(err)
		return result, err
	}

	if result.Failed > 0 {
		this.reportError(fmt.Errorf("mute state %v was only applied to %d of %d devices", target, result.Applied, result.Applied+result.Failed))
	}

	// The cache follows the request even on a partial apply. When the
	// default device itself was among the failures the next poll reads the
	// old value back and reports the flip-back as drift; the stamp only
	// matches the requested value.
	this.mutex.Lock()
	this.lastKnown = target
	this.lastKnownValid = true
	this.mutex.Unlock()

	this.emitMuteStateChanged(target)

	return result, nil
}

// Toggle reads the current state of the default capture device and applies
// the complement to all devices.
func (this *Controller) Toggle() (ApplyResult, error) {
	current, err := this.GetMuted()
	if err != nil {
		this.reportError(err)
		return ApplyResult{}, err
	}
	return this.SetMuted(!current)
}

// Run polls the hardware mute state until ctx is done.
func (this *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(this.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Mute poll loop interrupted.")
			return
		case <-ticker.C:
			this.pollOnce()
		}
	}
}

// pollOnce re-reads the default device's mute flag, consumes a matching
// internal-write stamp and classifies any drift against the cached state.
func (this *Controller) pollOnce() {
	muted, err := this.GetMuted()
	if err != nil {
		// A machine without microphones is not drift; it surfaces through
		// the write path when the user actually acts.
		if _, ok := common.AsError[NoActiveDeviceError](err); !ok {
			this.reportError(err)
		}
		return
	}

	this.mutex.Lock()

	internal := false
	if p := this.pending; p != nil && p.value == muted {
		this.pending = nil
		internal = true
	}

	if !this.lastKnownValid {
		this.lastKnown = muted
		this.lastKnownValid = true
		this.mutex.Unlock()
		return
	}

	drift := this.lastKnown != muted
	this.lastKnown = muted
	this.mutex.Unlock()

	if !drift {
		return
	}

	this.emitMuteStateChanged(muted)
	if !internal {
		log.With("muted", muted).
			Info("Mute state was changed outside of this process.")
		this.emitExternalChange(muted)
	}
}

func (this *Controller) stamp(value bool) uint64 {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.generation++
	this.pending = &pendingWrite{
		value:      value,
		generation: this.generation,
	}
	return this.generation
}

func (this *Controller) clearStamp(generation uint64) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if p := this.pending; p != nil && p.generation == generation {
		this.pending = nil
	}
}

func (this *Controller) DeviceAdded(string) {
	this.churn.trigger()
}

func (this *Controller) DeviceRemoved(string) {
	this.churn.trigger()
}

func (this *Controller) DefaultDeviceChanged(string) {
	this.deviceChanged()
}

func (this *Controller) DevicePropertyChanged(string) {
	this.deviceChanged()
}

func (this *Controller) deviceChanged() {
	if f := this.OnDeviceChanged; f != nil {
		this.emit(func() { f() })
	}
}

func (this *Controller) emitMuteStateChanged(muted bool) {
	if f := this.OnMuteStateChanged; f != nil {
		this.emit(func() { f(muted) })
	}
}

func (this *Controller) emitExternalChange(muted bool) {
	if f := this.OnExternalChange; f != nil {
		this.emit(func() { f(muted) })
	}
}

func (this *Controller) reportError(err error) {
	if f := this.OnError; f != nil {
		this.emit(func() { f(err) })
	}
}

func (this *Controller) emit(fn func()) {
	if n := this.Notify; n != nil {
		n(fn)
		return
	}
	fn()
}
