package ptt

import (
	"fmt"
	"strings"
)

type State uint8

const (
	StateIdle        = State(0)
	StateHoldPending = State(1)
	StateActive      = State(2)
)

var (
	AllStates = States{
		StateIdle,
		StateHoldPending,
		StateActive,
	}
)

func (this *State) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "idle":
		*this = StateIdle
		return nil
	case "hold-pending":
		*this = StateHoldPending
		return nil
	case "active":
		*this = StateActive
		return nil
	default:
		return fmt.Errorf("illegal-state: %s", plain)
	}
}

func (this State) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-state-%d", this)
	}
	return string(v)
}

func (this State) MarshalText() (text []byte, err error) {
	switch this {
	case StateIdle:
		return []byte("idle"), nil
	case StateHoldPending:
		return []byte("hold-pending"), nil
	case StateActive:
		return []byte("active"), nil
	default:
		return nil, fmt.Errorf("illegal state: %d", this)
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
