package feedback

import (
	"fmt"
	"strings"
)

type State uint8

const (
	StateMuted = State(0)
	StateLive  = State(1)
)

var (
	AllStates = States{
		StateMuted,
		StateLive,
	}
)

// StateOfMuted maps the microphone mute flag to the feedback state.
func StateOfMuted(muted bool) State {
	if muted {
		return StateMuted
	}
	return StateLive
}

func (this State) Muted() bool {
	return this == StateMuted
}

func (this *State) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "muted", "off", "0", "false":
		*this = StateMuted
		return nil
	case "live", "on", "1", "true":
		*this = StateLive
		return nil
	default:
		return fmt.Errorf("illegal-feedback-state: %s", plain)
	}
}

func (this State) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-feedback-state-%d", this)
	}
	return string(v)
}

func (this State) MarshalText() (text []byte, err error) {
	switch this {
	case StateMuted:
		return []byte("muted"), nil
	case StateLive:
		return []byte("live"), nil
	default:
		return nil, fmt.Errorf("illegal feedback state: %d", this)
	}
}

func (this *State) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

type States []State

func (this States) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this States) String() string {
	return strings.Join(this.Strings(), ",")
}
