package credentials

import (
	"encoding/json"
)

const appName = "github.com/blaubaer/talk-switch"

// Credentials holds the pairing of this application with a hue bridge.
// They are kept in the OS credentials store where one exists.
type Credentials struct {
	HueBridge string `json:"hue_bridge,omitempty"`
	HueUser   string `json:"hue_user,omitempty"`
}

func (this *Credentials) IsZero() bool {
	return this.HueBridge == "" && this.HueUser == ""
}

func (this *Credentials) MarshalBinary() (data []byte, err error) {
	return json.Marshal(this)
}

func (this *Credentials) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, this)
}
