package hue

import "github.com/blaubaer/talk-switch/pkg/common"

func NewConfiguration() Configuration {
	return Configuration{
		Pair:   false,
		Bridge: "",
		User:   "",

		Name: common.MustNewRegexp("^OnAir"),

		Brightness: 254,
		Hue:        65535,
		Saturation: 254,
	}
}

type Configuration struct {
	Pair   bool   `yaml:"pair,omitempty"`
	Bridge string `yaml:"bridge,omitempty"`
	User   string `yaml:"user,omitempty"`

	Name common.Regexp `yaml:"target"`

	Brightness uint8  `yaml:"brightness"`
	Hue        uint16 `yaml:"hue"`
	Saturation uint8  `yaml:"saturation"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("feedback.hue.pair", "If true this application will pair again with an existing hue bridge. This is implicitly enabled if this application is not already paired.").
		Envar("TS_FEEDBACK_HUE_PAIR").
		BoolVar(&this.Pair)
	using.Flag("feedback.hue.bridge", "Usually the bridge is automatically detected. You can specify an explicit one if there are more than one. This is only required while pairing and will afterwards be ignored.").
		Envar("TS_FEEDBACK_HUE_BRIDGE").
		StringVar(&this.Bridge)
	using.Flag("feedback.hue.user", "Usually this is set while pairing and will then be persisted. If set this will be used and not be persisted.").
		Envar("TS_FEEDBACK_HUE_USER").
		StringVar(&this.User)
	using.Flag("feedback.hue.name", "Name as regex of the lights which should act as on-air indicator.").
		Envar("TS_FEEDBACK_HUE_NAME").
		SetValue(&this.Name)

	using.Flag("feedback.hue.brightness", "The brightness value to set the light to while the microphone is live. Brightness is a scale from 1 (the minimum the light is capable of) to 254 (the maximum).").
		Envar("TS_FEEDBACK_HUE_BRIGHTNESS").
		Uint8Var(&this.Brightness)
	using.Flag("feedback.hue.hue", "The hue value to set the light to while the microphone is live. The hue value is a wrapping value between 0 and 65535. Both 0 and 65535 are red, 25500 is green and 46920 is blue.").
		Envar("TS_FEEDBACK_HUE_HUE").
		Uint16Var(&this.Hue)
	using.Flag("feedback.hue.saturation", "Saturation of the light while the microphone is live. 254 is the most saturated (colored) and 0 is the least saturated (white).").
		Envar("TS_FEEDBACK_HUE_SATURATION").
		Uint8Var(&this.Saturation)
}
