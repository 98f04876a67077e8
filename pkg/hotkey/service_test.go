package hotkey

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinder struct {
	failures  int
	bindCalls int
	unbinds   int
	bound     Key
	down      bool
	closed    bool
}

func (this *fakeBinder) Bind(key Key, _ func()) error {
	this.bindCalls++
	if this.failures > 0 {
		this.failures--
		return fmt.Errorf("binding is still held elsewhere")
	}
	this.bound = key
	return nil
}

func (this *fakeBinder) Unbind() error {
	this.unbinds++
	this.bound = KeyNone
	return nil
}

func (this *fakeBinder) Pressed(Key) bool {
	return this.down
}

func (this *fakeBinder) Close() error {
	this.closed = true
	return nil
}

type fakeSched struct {
	delays []time.Duration
	tasks  []func()
}

func (this *fakeSched) Post(fn func()) {
	fn()
}

func (this *fakeSched) After(d time.Duration, fn func()) (cancel func()) {
	this.delays = append(this.delays, d)
	this.tasks = append(this.tasks, fn)
	return func() {}
}

func (this *fakeSched) runAll() {
	for len(this.tasks) > 0 {
		task := this.tasks[0]
		this.tasks = this.tasks[1:]
		task()
	}
}

type registrationRecorder struct {
	outcomes []bool
	errors   []error
}

func (this *registrationRecorder) attachTo(instance *Service) {
	instance.OnRegistered = func(_ Key, ok bool) {
		this.outcomes = append(this.outcomes, ok)
	}
	instance.OnError = func(err error) {
		this.errors = append(this.errors, err)
	}
}

func TestService_Register_succeedsOnFirstAttempt(t *testing.T) {
	binder := &fakeBinder{}
	sched := &fakeSched{}
	instance := NewService(binder, sched)
	recorder := &registrationRecorder{}
	recorder.attachTo(instance)

	require.NoError(t, instance.Register(KeyF8))

	assert.Equal(t, 1, binder.bindCalls)
	assert.Equal(t, KeyF8, binder.bound)
	assert.Equal(t, KeyF8, instance.Current())
	assert.Equal(t, []bool{true}, recorder.outcomes)
	assert.Empty(t, sched.delays)
}

func TestService_Register_retriesWithIncreasingBackoff(t *testing.T) {
	binder := &fakeBinder{failures: 4}
	sched := &fakeSched{}
	instance := NewService(binder, sched)
	recorder := &registrationRecorder{}
	recorder.attachTo(instance)

	require.NoError(t, instance.Register(KeyF8))
	sched.runAll()

	assert.Equal(t, 5, binder.bindCalls)
	assert.Equal(t, []time.Duration{
		150 * time.Millisecond,
		300 * time.Millisecond,
		450 * time.Millisecond,
		600 * time.Millisecond,
	}, sched.delays)
	assert.Equal(t, []bool{true}, recorder.outcomes)
	assert.Empty(t, recorder.errors)
}

func TestService_Register_exhaustsRetries(t *testing.T) {
	binder := &fakeBinder{failures: 99}
	sched := &fakeSched{}
	instance := NewService(binder, sched)
	recorder := &registrationRecorder{}
	recorder.attachTo(instance)

	require.NoError(t, instance.Register(KeyF8))
	sched.runAll()

	assert.Equal(t, 5, binder.bindCalls)
	assert.Equal(t, []bool{false}, recorder.outcomes)
	require.Len(t, recorder.errors, 1)
	assert.ErrorContains(t, recorder.errors[0], "after 5 attempts")
	assert.Equal(t, KeyNone, instance.Current())
}

func TestService_Register_rejectsZeroKey(t *testing.T) {
	instance := NewService(&fakeBinder{}, &fakeSched{})
	assert.ErrorContains(t, instance.Register(KeyNone), "illegal-key")
}

func TestService_Register_replacesPreviousBinding(t *testing.T) {
	binder := &fakeBinder{}
	instance := NewService(binder, &fakeSched{})

	require.NoError(t, instance.Register(KeyF8))
	require.NoError(t, instance.Register(KeyF9))

	assert.Equal(t, 1, binder.unbinds)
	assert.Equal(t, KeyF9, binder.bound)
	assert.Equal(t, KeyF9, instance.Current())
}

func TestService_Register_supersedesPendingRetries(t *testing.T) {
	binder := &fakeBinder{failures: 99}
	sched := &fakeSched{}
	instance := NewService(binder, sched)
	recorder := &registrationRecorder{}
	recorder.attachTo(instance)

	require.NoError(t, instance.Register(KeyF8))
	binder.failures = 0
	require.NoError(t, instance.Register(KeyF9))
	sched.runAll()

	// The stale retry of f8 must not fire anymore.
	assert.Equal(t, KeyF9, binder.bound)
	assert.Equal(t, []bool{true}, recorder.outcomes)
}

// deliveringBinder mimics the single threaded OS message pump: a press that
// is already sitting in the queue gets delivered before any bind or unbind
// request is serviced, and the request only returns once the press handler
// returned.
type deliveringBinder struct {
	onPressed   func()
	pressQueued bool
	bound       Key
	unbinds     int
}

func (this *deliveringBinder) deliverQueued() {
	if this.pressQueued {
		this.pressQueued = false
		if f := this.onPressed; f != nil {
			f()
		}
	}
}

func (this *deliveringBinder) Bind(key Key, onPressed func()) error {
	this.deliverQueued()
	this.bound = key
	this.onPressed = onPressed
	return nil
}

func (this *deliveringBinder) Unbind() error {
	this.deliverQueued()
	this.bound = KeyNone
	this.onPressed = nil
	this.unbinds++
	return nil
}

func (this *deliveringBinder) Pressed(Key) bool { return false }

func (this *deliveringBinder) Close() error { return nil }

func TestService_Register_pressDeliveredDuringRebindCannotBlock(t *testing.T) {
	binder := &deliveringBinder{}
	instance := NewService(binder, &fakeSched{})
	presses := 0
	instance.OnPressed = func() { presses++ }

	require.NoError(t, instance.Register(KeyF8))

	// A press of f8 is already queued when the rebind asks for the unbind;
	// the pump delivers it first.
	binder.pressQueued = true

	done := make(chan error, 1)
	go func() {
		done <- instance.Register(KeyF9)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("rebind never completed while a press was being delivered")
	}

	assert.Equal(t, KeyF9, binder.bound)
	assert.Equal(t, KeyF9, instance.Current())
	assert.Equal(t, 1, presses)
}

func TestService_Unregister_isIdempotent(t *testing.T) {
	binder := &fakeBinder{}
	instance := NewService(binder, &fakeSched{})

	instance.Unregister()
	assert.Equal(t, 0, binder.unbinds)

	require.NoError(t, instance.Register(KeyF8))
	instance.Unregister()
	instance.Unregister()
	assert.Equal(t, 1, binder.unbinds)
	assert.Equal(t, KeyNone, instance.Current())
}

func TestService_IsPressed_samplesTheBoundKey(t *testing.T) {
	binder := &fakeBinder{}
	instance := NewService(binder, &fakeSched{})

	binder.down = true
	assert.False(t, instance.IsPressed(), "nothing bound yet")

	require.NoError(t, instance.Register(KeyF8))
	assert.True(t, instance.IsPressed())

	binder.down = false
	assert.False(t, instance.IsPressed())
}

func TestService_Dispose(t *testing.T) {
	binder := &fakeBinder{}
	instance := NewService(binder, &fakeSched{})
	require.NoError(t, instance.Register(KeyF8))

	require.NoError(t, instance.Dispose())
	assert.Equal(t, 1, binder.unbinds)
	assert.True(t, binder.closed)

	// Everything afterwards is a no-op.
	assert.Error(t, instance.Register(KeyF9))
	assert.False(t, instance.IsPressed())
	require.NoError(t, instance.Dispose())
}
