//go:build !windows

package credentials

// There is no credentials store integration on this platform; the caller
// falls back to persisting inside its own configuration.

func (this *Credentials) ReadFromStore() (supported bool, err error) {
	return false, nil
}

func (this *Credentials) WriteToStore() (supported bool, err error) {
	return false, nil
}
