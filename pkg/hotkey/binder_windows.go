//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState   = user32.NewProc("GetAsyncKeyState")
)

const (
	wmQuit   = 0x0012
	wmHotkey = 0x0312
	wmApp    = 0x8000

	// Suppresses WM_HOTKEY auto-repeat while the key is held; the hold is
	// tracked by sampling, not by repeated down events.
	modNoRepeat = 0x4000

	pmNoRemove = 0x0000

	bindingID = 1
)

type message struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	ptX     int32
	ptY     int32
}

// windowsBinder pumps a Win32 message loop on a dedicated locked OS thread.
// RegisterHotKey/UnregisterHotKey only work from the thread which retrieves
// the messages, so both are executed as requests on the pump thread.
type windowsBinder struct {
	threadID  uint32
	requests  chan func() error
	results   chan error
	ready     chan struct{}
	done      chan struct{}
	onPressed func()
	closed    bool
	mutex     sync.Mutex

	post func(threadID uint32) error
}

func NewBinder() Binder {
	result := &windowsBinder{
		requests: make(chan func() error, 1),
		results:  make(chan error, 1),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	result.post = result.postWakeup
	go result.pump()
	<-result.ready
	return result
}

func (this *windowsBinder) pump() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	this.threadID = windows.GetCurrentThreadId()

	var m message
	// The thread's message queue only exists after the first call into the
	// message APIs; until then PostThreadMessageW to this thread fails. Touch
	// the queue before anybody is allowed to post.
	_, _, _ = procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmApp, wmApp, pmNoRemove)

	close(this.ready)
	defer close(this.done)

	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			// WM_QUIT or a failed retrieval; either way the pump ends.
			return
		}
		switch m.message {
		case wmHotkey:
			this.mutex.Lock()
			fn := this.onPressed
			this.mutex.Unlock()
			if fn != nil {
				fn()
			}
		case wmApp:
			select {
			case action := <-this.requests:
				this.results <- action()
			default:
			}
		}
	}
}

// perform executes action on the pump thread and waits for its result.
func (this *windowsBinder) perform(action func() error) error {
	this.mutex.Lock()
	if this.closed {
		this.mutex.Unlock()
		return fmt.Errorf("already closed")
	}
	threadID := this.threadID
	this.mutex.Unlock()

	select {
	case this.requests <- action:
	case <-this.done:
		return fmt.Errorf("already closed")
	}
	if err := this.post(threadID); err != nil {
		// Take the request back; the pump was never told about it and
		// waiting for a result would block forever.
		select {
		case <-this.requests:
		default:
		}
		return err
	}

	select {
	case err := <-this.results:
		return err
	case <-this.done:
		return fmt.Errorf("already closed")
	}
}

func (this *windowsBinder) postWakeup(threadID uint32) error {
	r, _, lastErr := procPostThreadMessageW.Call(uintptr(threadID), wmApp, 0, 0)
	if r == 0 {
		return fmt.Errorf("cannot signal hotkey thread %d: %w", threadID, lastErr)
	}
	return nil
}

func (this *windowsBinder) Bind(key Key, onPressed func()) error {
	return this.perform(func() error {
		r, _, lastErr := procRegisterHotKey.Call(0, bindingID, modNoRepeat, uintptr(key.VirtualKey()))
		if r == 0 {
			return fmt.Errorf("cannot register hotkey %v: %w", key, lastErr)
		}
		this.mutex.Lock()
		this.onPressed = onPressed
		this.mutex.Unlock()
		return nil
	})
}

func (this *windowsBinder) Unbind() error {
	return this.perform(func() error {
		this.mutex.Lock()
		this.onPressed = nil
		this.mutex.Unlock()
		r, _, lastErr := procUnregisterHotKey.Call(0, bindingID)
		if r == 0 {
			return fmt.Errorf("cannot unregister hotkey: %w", lastErr)
		}
		return nil
	})
}

func (this *windowsBinder) Pressed(key Key) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(key.VirtualKey()))
	return r&0x8000 != 0
}

func (this *windowsBinder) Close() error {
	this.mutex.Lock()
	if this.closed {
		this.mutex.Unlock()
		return nil
	}
	this.closed = true
	threadID := this.threadID
	this.mutex.Unlock()

	_, _, _ = procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	<-this.done
	return nil
}
