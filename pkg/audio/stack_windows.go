//go:build windows

package audio

import (
	"fmt"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// Stack talks to the Windows Core Audio capture endpoints. It owns the OLE
// apartment and the device enumerator for the whole process lifetime.
type Stack struct {
	initialized bool
	enumerator  *wca.IMMDeviceEnumerator
	callback    *wca.IMMNotificationClient
	mutex       sync.RWMutex
}

func (this *Stack) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.initialized {
		return nil
	}

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return fmt.Errorf("failed to initialize ole: %v", err)
	}

	var de *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &de); err != nil {
		ole.CoUninitialize()
		return fmt.Errorf("cannot create IMMDeviceEnumerator instance: %w", err)
	}

	this.enumerator = de
	this.initialized = true
	return nil
}

func (this *Stack) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return nil
	}

	if cb := this.callback; cb != nil {
		_ = this.enumerator.UnregisterEndpointNotificationCallback(cb)
		this.callback = nil
	}
	this.enumerator.Release()
	this.enumerator = nil

	ole.CoUninitialize()
	this.initialized = false

	return nil
}

func (this *Stack) Listen(listener TopologyListener) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return fmt.Errorf("not initialized")
	}
	if this.callback != nil {
		return fmt.Errorf("already listening")
	}

	cb := wca.NewIMMNotificationClient(wca.IMMNotificationClientCallback{
		OnDeviceAdded: func(deviceId string) error {
			listener.DeviceAdded(deviceId)
			return nil
		},
		OnDeviceRemoved: func(deviceId string) error {
			listener.DeviceRemoved(deviceId)
			return nil
		},
		OnDefaultDeviceChanged: func(flow wca.EDataFlow, role wca.ERole, deviceId string) error {
			if flow == wca.ECapture {
				listener.DefaultDeviceChanged(deviceId)
			}
			return nil
		},
		OnDeviceStateChanged: func(deviceId string, state uint64) error {
			listener.DevicePropertyChanged(deviceId)
			return nil
		},
		OnPropertyValueChanged: func(deviceId string, key uint64) error {
			listener.DevicePropertyChanged(deviceId)
			return nil
		},
	})
	if err := this.enumerator.RegisterEndpointNotificationCallback(cb); err != nil {
		return fmt.Errorf("cannot register endpoint notification callback: %w", err)
	}

	this.callback = cb
	return nil
}

func (this *Stack) Devices() (Devices, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if !this.initialized {
		return nil, fmt.Errorf("not initialized")
	}

	defaultID := ""
	var dd *wca.IMMDevice
	if err := this.enumerator.GetDefaultAudioEndpoint(wca.ECapture, wca.EConsole, &dd); err == nil {
		defaultID, _ = idOf(dd)
		dd.Release()
	}

	var collection *wca.IMMDeviceCollection
	if err := this.enumerator.EnumAudioEndpoints(wca.ECapture, wca.DEVICE_STATE_ACTIVE, &collection); err != nil {
		return nil, fmt.Errorf("cannot query IMMDevices: %w", err)
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, fmt.Errorf("cannot get count of IMMDevice collection: %w", err)
	}

	result := make(Devices, 0, count)
	for i := uint32(0); i < count; i++ {
		device, err := this.introspectDeviceOf(collection, i)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}

	// The default endpoint leads; GetMuted and the poll read the first entry.
	for i := range result {
		if result[i].ID == defaultID && i > 0 {
			result[0], result[i] = result[i], result[0]
			break
		}
	}

	return result, nil
}

func (this *Stack) Muted(id string) (bool, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if !this.initialized {
		return false, fmt.Errorf("not initialized")
	}

	device, err := this.deviceOf(id)
	if err != nil {
		return false, err
	}
	defer device.Release()

	return this.mutedOf(device)
}

func (this *Stack) SetMuted(id string, muted bool) error {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if !this.initialized {
		return fmt.Errorf("not initialized")
	}

	device, err := this.deviceOf(id)
	if err != nil {
		return err
	}
	defer device.Release()

	var aev *wca.IAudioEndpointVolume
	if err := device.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return fmt.Errorf("cannot activate endpoint volume of device %q: %w", id, err)
	}
	defer aev.Release()

	if err := aev.SetMute(muted, nil); err != nil {
		return fmt.Errorf("cannot set mute state of device %q to %v: %w", id, muted, err)
	}

	return nil
}

func (this *Stack) deviceOf(id string) (*wca.IMMDevice, error) {
	var device *wca.IMMDevice
	if err := this.enumerator.GetDevice(id, &device); err != nil {
		return nil, fmt.Errorf("cannot resolve device %q: %w", id, err)
	}
	return device, nil
}

func (this *Stack) introspectDeviceOf(collection *wca.IMMDeviceCollection, deviceIndex uint32) (Device, error) {
	var device *wca.IMMDevice
	if err := collection.Item(deviceIndex, &device); err != nil {
		return Device{}, fmt.Errorf("cannot get item %d of IMMDevice collection: %w", deviceIndex, err)
	}
	defer device.Release()

	return this.introspectDevice(device, deviceIndex)
}

func (this *Stack) introspectDevice(captureDevice *wca.IMMDevice, deviceIndex uint32) (Device, error) {
	id, err := idOf(captureDevice)
	if err != nil {
		return Device{}, fmt.Errorf("cannot get id of device %d of IMMDevice collection: %w", deviceIndex, err)
	}

	var propertyStore *wca.IPropertyStore
	if err := captureDevice.OpenPropertyStore(wca.STGM_READ, &propertyStore); err != nil {
		return Device{}, fmt.Errorf("cannot get properties of device %d of IMMDevice collection: %w", deviceIndex, err)
	}
	defer propertyStore.Release()

	var name wca.PROPVARIANT
	if err := propertyStore.GetValue(&wca.PKEY_Device_FriendlyName, &name); err != nil {
		return Device{}, fmt.Errorf("cannot get name of device %d of IMMDevice collection: %w", deviceIndex, err)
	}

	muted, err := this.mutedOf(captureDevice)
	if err != nil {
		return Device{}, fmt.Errorf("cannot get mute state of device %d of IMMDevice collection: %w", deviceIndex, err)
	}

	return Device{
		ID:    id,
		Name:  name.String(),
		Index: deviceIndex,
		Muted: muted,
	}, nil
}

func (this *Stack) mutedOf(device *wca.IMMDevice) (bool, error) {
	var aev *wca.IAudioEndpointVolume
	if err := device.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return false, fmt.Errorf("cannot activate endpoint volume: %w", err)
	}
	defer aev.Release()

	var muted bool
	if err := aev.GetMute(&muted); err != nil {
		return false, fmt.Errorf("cannot get mute state: %w", err)
	}
	return muted, nil
}

func idOf(device *wca.IMMDevice) (string, error) {
	var id string
	if err := device.GetId(&id); err != nil {
		return "", err
	}
	return id, nil
}
