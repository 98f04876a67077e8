package feedback

import (
	"fmt"
	"strings"
)

type Type uint8

const (
	TypeSystray = Type(0)
	TypeHue     = Type(1)
	TypeSound   = Type(2)

	TypeDefault = TypeSystray
)

var (
	AllTypes = Types{
		TypeSystray,
		TypeHue,
		TypeSound,
	}
)

func (this *Type) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "systray":
		*this = TypeSystray
		return nil
	case "hue":
		*this = TypeHue
		return nil
	case "sound":
		*this = TypeSound
		return nil
	default:
		return fmt.Errorf("illegal-feedback-type: %s", plain)
	}
}

func (this Type) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-feedback-type-%d", this)
	}
	return string(v)
}

func (this Type) MarshalText() (text []byte, err error) {
	switch this {
	case TypeSystray:
		return []byte("systray"), nil
	case TypeHue:
		return []byte("hue"), nil
	case TypeSound:
		return []byte("sound"), nil
	default:
		return nil, fmt.Errorf("illegal feedback type: %d", this)
	}
}

func (this *Type) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

type Types []Type

// Set accepts a comma separated list, for usage as flag value.
func (this *Types) Set(plain string) error {
	var result Types
	for _, part := range strings.Split(plain, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var buf Type
		if err := buf.Set(part); err != nil {
			return err
		}
		result = append(result, buf)
	}
	*this = result
	return nil
}

func (this Types) Has(v Type) bool {
	for _, candidate := range this {
		if candidate == v {
			return true
		}
	}
	return false
}

func (this Types) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Types) String() string {
	return strings.Join(this.Strings(), ",")
}

func (this Types) MarshalText() (text []byte, err error) {
	return []byte(this.String()), nil
}

func (this *Types) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}
