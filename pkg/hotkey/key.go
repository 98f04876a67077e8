package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is one bindable key. Only plain function keys are supported; chords
// and modifiers are not.
type Key uint8

const (
	KeyNone = Key(0)

	KeyF1  = Key(1)
	KeyF8  = Key(8)
	KeyF9  = Key(9)
	KeyF12 = Key(12)
	KeyF24 = Key(24)

	KeyDefault = KeyF8
)

var (
	AllKeys = func() Keys {
		result := make(Keys, KeyF24)
		for i := range result {
			result[i] = Key(i + 1)
		}
		return result
	}()
)

func (this *Key) Set(plain string) error {
	normalized := strings.TrimSpace(strings.ToLower(plain))
	if normalized == "" {
		*this = KeyNone
		return nil
	}
	if !strings.HasPrefix(normalized, "f") {
		return fmt.Errorf("illegal-key: %s", plain)
	}
	n, err := strconv.Atoi(normalized[1:])
	if err != nil || n < int(KeyF1) || n > int(KeyF24) {
		return fmt.Errorf("illegal-key: %s", plain)
	}
	*this = Key(n)
	return nil
}

func (this Key) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-key-%d", this)
	}
	return string(v)
}

func (this Key) MarshalText() (text []byte, err error) {
	if this.IsZero() {
		return nil, nil
	}
	if this > KeyF24 {
		return nil, fmt.Errorf("illegal key: %d", this)
	}
	return []byte(fmt.Sprintf("f%d", uint8(this))), nil
}

func (this *Key) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

func (this Key) IsZero() bool {
	return this == KeyNone
}

// VirtualKey is the Windows virtual key code of this key. VK_F1 is 0x70;
// the function keys are contiguous up to VK_F24.
func (this Key) VirtualKey() uint32 {
	if this.IsZero() {
		return 0
	}
	return 0x6F + uint32(this)
}

type Keys []Key

func (this Keys) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Keys) String() string {
	return strings.Join(this.Strings(), ",")
}
