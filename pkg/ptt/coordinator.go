package ptt

import (
	"fmt"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/talk-switch/pkg/audio"
)

const (
	DefaultHoldThreshold       = 400 * time.Millisecond
	DefaultReleasePollInterval = 30 * time.Millisecond
)

// MuteControl is the part of the audio controller the coordinator drives.
type MuteControl interface {
	GetMuted() (bool, error)
	SetMuted(target bool) (audio.ApplyResult, error)
	Toggle() (audio.ApplyResult, error)
}

// KeySampler reports whether the bound key is physically held right now.
// The OS only signals key-down; release is discovered by sampling.
type KeySampler interface {
	IsPressed() bool
}

// Scheduler executes closures on the run loop which owns the coordinator.
type Scheduler interface {
	Post(fn func())
	After(d time.Duration, fn func()) (cancel func())
}

// session only exists between hold confirmation and key release. At most
// one is open at any time; a press while a cycle is in flight is ignored.
type session struct {
	preSessionMuted bool
	startTime       time.Time
}

// Coordinator disambiguates taps from holds on the single bound key. A tap
// toggles the mute state permanently; a hold flips it at the hold threshold
// and restores the captured state on release.
//
// All methods have to be invoked on the run loop represented by the given
// Scheduler. The state machine is not otherwise synchronized.
type Coordinator struct {
	HoldThreshold       time.Duration
	ReleasePollInterval time.Duration

	// Now is the state machine's clock; replaced in tests.
	Now func() time.Time

	control MuteControl
	keys    KeySampler
	sched   Scheduler

	state        State
	session      *session
	holdDeadline time.Time
	cancelHold   func()
	cancelPoll   func()
	disposed     bool
}

func NewCoordinator(control MuteControl, keys KeySampler, sched Scheduler) *Coordinator {
	return &Coordinator{
		HoldThreshold:       DefaultHoldThreshold,
		ReleasePollInterval: DefaultReleasePollInterval,
		Now:                 time.Now,
		control:             control,
		keys:                keys,
		sched:               sched,
		state:               StateIdle,
	}
}

func (this *Coordinator) State() State {
	return this.state
}

// HandlePress is the entry point for a key-down notification.
func (this *Coordinator) HandlePress() {
	defer this.recoverTransition("press")

	if this.disposed || this.state != StateIdle {
		return
	}

	this.holdDeadline = this.Now().Add(this.HoldThreshold)
	this.cancelHold = this.sched.After(this.HoldThreshold, this.onHoldTimer)
	this.armReleasePoll()
	this.state = StateHoldPending

	log.With("holdThreshold", this.HoldThreshold).
		Debug("Key pressed; waiting whether this becomes a tap or a hold.")
}

// Reset forces the state machine back to idle, restoring the pre-session
// state if a push-to-talk session is open. It has to be called before the
// key binding is changed.
func (this *Coordinator) Reset() {
	defer this.recoverTransition("reset")

	sess := this.session
	this.stopTimers()
	this.session = nil
	this.state = StateIdle

	if sess != nil {
		if _, err := this.control.SetMuted(sess.preSessionMuted); err != nil {
			log.WithError(err).
				Warn("Cannot restore mute state while resetting.")
		}
	}
}

func (this *Coordinator) Dispose() error {
	if this.disposed {
		return nil
	}
	this.Reset()
	this.disposed = true
	return nil
}

func (this *Coordinator) armReleasePoll() {
	this.cancelPoll = this.sched.After(this.ReleasePollInterval, this.onReleaseTick)
}

func (this *Coordinator) onHoldTimer() {
	defer this.recoverTransition("hold")

	if this.disposed || this.state != StateHoldPending {
		return
	}
	this.confirmHold()
}

// confirmHold performs the HoldPending -> Active transition: capture the
// current state and flip it for the duration of the session.
func (this *Coordinator) confirmHold() {
	if c := this.cancelHold; c != nil {
		c()
		this.cancelHold = nil
	}

	pre, err := this.control.GetMuted()
	if err != nil {
		this.recoverNow(fmt.Errorf("cannot read mute state at hold confirmation: %w", err))
		return
	}
	if _, err := this.control.SetMuted(!pre); err != nil {
		this.recoverNow(fmt.Errorf("cannot flip mute state at hold confirmation: %w", err))
		return
	}

	this.session = &session{
		preSessionMuted: pre,
		startTime:       this.Now(),
	}
	this.state = StateActive

	log.With("preSessionMuted", pre).
		Debug("Hold confirmed; push-to-talk session opened.")
}

func (this *Coordinator) onReleaseTick() {
	defer this.recoverTransition("release-poll")

	if this.disposed || this.state == StateIdle {
		return
	}
	this.cancelPoll = nil

	// Tie-break: when this tick runs at or after the hold deadline while
	// the hold transition did not happen yet, the hold wins and is
	// processed first. A same-tick release then closes the session.
	if this.state == StateHoldPending && !this.Now().Before(this.holdDeadline) {
		this.confirmHold()
		if this.state != StateActive {
			return
		}
	}

	if this.keys.IsPressed() {
		this.armReleasePoll()
		return
	}

	switch this.state {
	case StateHoldPending:
		this.stopTimers()
		this.state = StateIdle
		if _, err := this.control.Toggle(); err != nil {
			log.WithError(err).
				Warn("Cannot toggle mute state on tap.")
			return
		}
		log.Debug("Tap detected; mute state toggled.")
	case StateActive:
		sess := this.session
		this.stopTimers()
		this.session = nil
		this.state = StateIdle
		if sess == nil {
			return
		}
		if _, err := this.control.SetMuted(sess.preSessionMuted); err != nil {
			log.WithError(err).
				Warn("Cannot restore mute state after push-to-talk session.")
			return
		}
		log.With("duration", this.Now().Sub(sess.startTime)).
			With("restored", sess.preSessionMuted).
			Debug("Push-to-talk session closed.")
	}
}

func (this *Coordinator) stopTimers() {
	if c := this.cancelHold; c != nil {
		c()
		this.cancelHold = nil
	}
	if c := this.cancelPoll; c != nil {
		c()
		this.cancelPoll = nil
	}
}

func (this *Coordinator) recoverTransition(step string) {
	if v := recover(); v != nil {
		this.recoverNow(fmt.Errorf("unexpected failure in %s step: %v", step, v))
	}
}

// recoverNow is the emergency path: stop everything, go back to idle and
// try one best-effort toggle so the microphone is at least not stuck in a
// state the user cannot see.
func (this *Coordinator) recoverNow(err error) {
	log.WithError(err).
		Error("Push-to-talk state machine failed; recovering to idle.")

	this.stopTimers()
	this.session = nil
	this.state = StateIdle

	func() {
		defer func() {
			_ = recover()
		}()
		_, _ = this.control.Toggle()
	}()
}
