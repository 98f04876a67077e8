package ptt

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/talk-switch/pkg/audio"
)

// virtualClock drives the coordinator with deterministic time: Post runs
// inline, After registers a timer at now+d and advance fires due timers in
// chronological order.
type virtualClock struct {
	now    time.Time
	timers []*virtualTimer
}

type virtualTimer struct {
	at        time.Time
	fn        func()
	cancelled bool
	fired     bool
}

func newVirtualClock() *virtualClock {
	return &virtualClock{now: time.Unix(0, 0)}
}

func (this *virtualClock) Post(fn func()) {
	fn()
}

func (this *virtualClock) After(d time.Duration, fn func()) (cancel func()) {
	t := &virtualTimer{at: this.now.Add(d), fn: fn}
	this.timers = append(this.timers, t)
	return func() {
		t.cancelled = true
	}
}

func (this *virtualClock) advance(d time.Duration) {
	target := this.now.Add(d)
	for {
		next := this.nextDueBefore(target)
		if next == nil {
			break
		}
		this.now = next.at
		next.fired = true
		next.fn()
	}
	this.now = target
}

func (this *virtualClock) nextDueBefore(target time.Time) *virtualTimer {
	var due []*virtualTimer
	for _, t := range this.timers {
		if !t.cancelled && !t.fired && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}

type fakeControl struct {
	clock *virtualClock

	muted bool
	calls []string

	getErr     error
	panicOnSet bool
}

func (this *fakeControl) GetMuted() (bool, error) {
	if this.getErr != nil {
		return false, this.getErr
	}
	return this.muted, nil
}

func (this *fakeControl) SetMuted(target bool) (audio.ApplyResult, error) {
	if this.panicOnSet {
		this.panicOnSet = false
		panic("set exploded")
	}
	this.calls = append(this.calls, fmt.Sprintf("set:%v@%v", target, this.clock.now.Sub(time.Unix(0, 0))))
	this.muted = target
	return audio.ApplyResult{Applied: 1}, nil
}

func (this *fakeControl) Toggle() (audio.ApplyResult, error) {
	this.calls = append(this.calls, fmt.Sprintf("toggle@%v", this.clock.now.Sub(time.Unix(0, 0))))
	this.muted = !this.muted
	return audio.ApplyResult{Applied: 1}, nil
}

// fakeKeys holds the key down until the configured instant of virtual time.
type fakeKeys struct {
	clock     *virtualClock
	downUntil time.Time
}

func (this *fakeKeys) holdFor(d time.Duration) {
	this.downUntil = this.clock.now.Add(d)
}

func (this *fakeKeys) IsPressed() bool {
	return this.clock.now.Before(this.downUntil)
}

func newTestCoordinator() (*Coordinator, *fakeControl, *fakeKeys, *virtualClock) {
	clock := newVirtualClock()
	control := &fakeControl{clock: clock}
	keys := &fakeKeys{clock: clock}
	instance := NewCoordinator(control, keys, clock)
	instance.Now = func() time.Time {
		return clock.now
	}
	return instance, control, keys, clock
}

func TestCoordinator_tapTogglesExactlyOnce(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(150 * time.Millisecond)
	instance.HandlePress()
	assert.Equal(t, StateHoldPending, instance.State())

	clock.advance(time.Second)

	assert.Equal(t, []string{"toggle@150ms"}, control.calls)
	assert.True(t, control.muted)
	assert.Equal(t, StateIdle, instance.State())
}

func TestCoordinator_holdFlipsAndRestores(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(500 * time.Millisecond)
	instance.HandlePress()

	clock.advance(450 * time.Millisecond)
	assert.Equal(t, StateActive, instance.State())
	assert.True(t, control.muted)

	clock.advance(time.Second)

	// Flip at the threshold, restore at the first tick after release; the
	// net state equals the pre-press state.
	assert.Equal(t, []string{"set:true@400ms", "set:false@510ms"}, control.calls)
	assert.False(t, control.muted)
	assert.Equal(t, StateIdle, instance.State())
}

func TestCoordinator_holdRestoresToMuted(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()
	control.muted = true

	keys.holdFor(500 * time.Millisecond)
	instance.HandlePress()
	clock.advance(time.Second)

	assert.Equal(t, []string{"set:false@400ms", "set:true@510ms"}, control.calls)
	assert.True(t, control.muted)
}

func TestCoordinator_pressWhileInFlightIsIgnored(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(150 * time.Millisecond)
	instance.HandlePress()
	clock.advance(50 * time.Millisecond)
	instance.HandlePress()
	instance.HandlePress()
	clock.advance(time.Second)

	assert.Equal(t, []string{"toggle@150ms"}, control.calls)
	assert.Equal(t, StateIdle, instance.State())
}

func TestCoordinator_releaseTickAfterDeadlineCountsAsHold(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(405 * time.Millisecond)
	instance.HandlePress()
	clock.advance(390 * time.Millisecond)
	require.Equal(t, StateHoldPending, instance.State())

	// Simulate the scheduler running the 420ms release tick before the
	// 400ms hold timer: the tick itself has to process the hold first and
	// then close the session, never treat it as a tap.
	clock.now = clock.now.Add(30 * time.Millisecond)
	instance.onReleaseTick()

	assert.Equal(t, []string{"set:true@420ms", "set:false@420ms"}, control.calls)
	assert.False(t, control.muted)
	assert.Equal(t, StateIdle, instance.State())
}

func TestCoordinator_secondCycleWorksAfterTheFirst(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(100 * time.Millisecond)
	instance.HandlePress()
	clock.advance(time.Second)

	keys.holdFor(100 * time.Millisecond)
	instance.HandlePress()
	clock.advance(time.Second)

	require.Len(t, control.calls, 2)
	assert.False(t, control.muted)
}

func TestCoordinator_getErrorAtHoldConfirmationRecovers(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()
	control.getErr = fmt.Errorf("audio subsystem went away")

	keys.holdFor(time.Second)
	instance.HandlePress()
	clock.advance(500 * time.Millisecond)

	// One best-effort toggle, then idle again.
	require.Len(t, control.calls, 1)
	assert.Contains(t, control.calls[0], "toggle")
	assert.Equal(t, StateIdle, instance.State())
}

func TestCoordinator_panicInTransitionRecovers(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()
	control.panicOnSet = true

	keys.holdFor(time.Second)
	instance.HandlePress()
	clock.advance(500 * time.Millisecond)

	require.Len(t, control.calls, 1)
	assert.Contains(t, control.calls[0], "toggle")
	assert.Equal(t, StateIdle, instance.State())

	// The machine is usable again afterwards.
	clock.advance(time.Second)
	keys.holdFor(50 * time.Millisecond)
	instance.HandlePress()
	clock.advance(time.Second)
	assert.Len(t, control.calls, 2)
}

func TestCoordinator_resetRestoresOpenSession(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	keys.holdFor(time.Hour)
	instance.HandlePress()
	clock.advance(450 * time.Millisecond)
	require.Equal(t, StateActive, instance.State())

	instance.Reset()

	assert.Equal(t, StateIdle, instance.State())
	assert.Equal(t, "set:false@450ms", control.calls[len(control.calls)-1])
	assert.False(t, control.muted)

	// No stray timers keep running.
	calls := len(control.calls)
	clock.advance(time.Hour)
	assert.Len(t, control.calls, calls)
}

func TestCoordinator_disposeMakesItInert(t *testing.T) {
	instance, control, keys, clock := newTestCoordinator()

	require.NoError(t, instance.Dispose())
	require.NoError(t, instance.Dispose())

	keys.holdFor(50 * time.Millisecond)
	instance.HandlePress()
	clock.advance(time.Second)

	assert.Empty(t, control.calls)
	assert.Equal(t, StateIdle, instance.State())
}
