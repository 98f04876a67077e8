//go:build !windows

package audio

// Stack is only functional on Windows; on every other platform it behaves
// like a machine without any capture device.
type Stack struct{}

func (this *Stack) Initialize() error {
	return nil
}

func (this *Stack) Dispose() error {
	return nil
}

func (this *Stack) Devices() (Devices, error) {
	return nil, nil
}

func (this *Stack) Muted(string) (bool, error) {
	return false, NoActiveDeviceError{}
}

func (this *Stack) SetMuted(string, bool) error {
	return NoActiveDeviceError{}
}

func (this *Stack) Listen(TopologyListener) error {
	return nil
}
