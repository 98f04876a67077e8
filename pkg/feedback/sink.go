package feedback

import (
	"github.com/blaubaer/talk-switch/pkg/audio"
)

// Sink reflects the current microphone state to the user through one
// channel, like the system tray, a light or a sound cue.
type Sink interface {
	Dispose() error
	Ensure(Context) error
	Update() error

	GetType() Type
}

// Context is what a Sink gets to render from.
type Context interface {
	State() State
	Devices() audio.Devices
}

func NewContext(state State, devices audio.Devices) Context {
	return &plainContext{state, devices}
}

type plainContext struct {
	state   State
	devices audio.Devices
}

func (this *plainContext) State() State {
	return this.state
}

func (this *plainContext) Devices() audio.Devices {
	return this.devices
}
