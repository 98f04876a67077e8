package audio

// TopologyListener receives asynchronous device topology notifications from
// the OS. Callbacks can arrive on arbitrary threads.
type TopologyListener interface {
	DeviceAdded(id string)
	DeviceRemoved(id string)
	DefaultDeviceChanged(id string)
	DevicePropertyChanged(id string)
}

// Backend is the platform seam of the Controller. Stack is the production
// implementation.
type Backend interface {
	// Devices enumerates all currently active capture endpoints, the
	// default one first.
	Devices() (Devices, error)
	// Muted reads the hardware mute flag of the given endpoint.
	Muted(id string) (bool, error)
	// SetMuted writes the hardware mute flag of the given endpoint.
	SetMuted(id string, muted bool) error
	// Listen registers the given listener for topology notifications. At
	// most one listener is supported.
	Listen(listener TopologyListener) error
}
