package audio

import "fmt"

// NoActiveDeviceError indicates that there is currently no active capture
// device at all.
type NoActiveDeviceError struct{}

func (this NoActiveDeviceError) Error() string {
	return "No active microphones"
}

// DeviceApplyError indicates that a mute write was rejected by every
// currently active capture device.
type DeviceApplyError struct {
	Failed int
}

func (this DeviceApplyError) Error() string {
	return fmt.Sprintf("cannot apply mute state to any device: all %d device(s) failed", this.Failed)
}
