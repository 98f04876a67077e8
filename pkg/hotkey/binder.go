//go:build !windows

package hotkey

import "fmt"

// System wide key bindings are only supported on Windows; on every other
// platform the binder rejects all bindings and the host has to fall back to
// its alternate control path.
type stubBinder struct{}

func NewBinder() Binder {
	return stubBinder{}
}

func (this stubBinder) Bind(Key, func()) error {
	return fmt.Errorf("global hotkeys are not supported on this platform")
}

func (this stubBinder) Unbind() error {
	return nil
}

func (this stubBinder) Pressed(Key) bool {
	return false
}

func (this stubBinder) Close() error {
	return nil
}
