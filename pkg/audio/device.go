package audio

import (
	"fmt"
	"strings"
)

// Device is a read-mostly snapshot of one active capture endpoint. It is
// used to compute the aggregate mute state and to report partial failures;
// it is never persisted.
type Device struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index uint32 `json:"index"`
	Muted bool   `json:"muted"`
}

func (this Device) String() string {
	return fmt.Sprintf("[%d] %s", this.Index, this.Name)
}

func (this Device) CloneBare() Device {
	return Device{
		strings.Clone(this.ID),
		strings.Clone(this.Name),
		this.Index,
		this.Muted,
	}
}

type Devices []Device

func (this Devices) IsZero() bool {
	return len(this) <= 0
}

func (this Devices) HasContent() bool {
	return !this.IsZero()
}

// First returns the snapshot of the default capture device. The backend
// guarantees that the default endpoint leads the enumeration.
func (this Devices) First() (Device, bool) {
	if len(this) == 0 {
		return Device{}, false
	}
	return this[0], true
}
