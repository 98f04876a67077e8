package facade

import (
	"github.com/blaubaer/talk-switch/pkg/common"
	"github.com/blaubaer/talk-switch/pkg/feedback"
	"github.com/blaubaer/talk-switch/pkg/feedback/hue"
	"github.com/blaubaer/talk-switch/pkg/feedback/sound"
)

func NewConfiguration() Configuration {
	return Configuration{
		Types: feedback.Types{feedback.TypeDefault},
		Hue:   hue.NewConfiguration(),
		Sound: sound.NewConfiguration(),
	}
}

type Configuration struct {
	Types feedback.Types      `yaml:"types"`
	Hue   hue.Configuration   `yaml:"hue,omitempty"`
	Sound sound.Configuration `yaml:"sound,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("feedback", "Feedback channel(s) to use, comma separated. All possible values: "+feedback.AllTypes.String()).
		Envar("TS_FEEDBACK").
		SetValue(&this.Types)

	this.Hue.SetupConfiguration(using)
	this.Sound.SetupConfiguration(using)
}
