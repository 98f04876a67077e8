package sound

import (
	"time"

	"github.com/blaubaer/talk-switch/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		LiveFrequency:  880,
		MutedFrequency: 440,
		CueDuration:    90 * time.Millisecond,
	}
}

type Configuration struct {
	LiveFrequency  int           `yaml:"liveFrequency"`
	MutedFrequency int           `yaml:"mutedFrequency"`
	CueDuration    time.Duration `yaml:"cueDuration"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("feedback.sound.liveFrequency", "Frequency (Hz) of the cue played when the microphone goes live.").
		Envar("TS_FEEDBACK_SOUND_LIVE_FREQUENCY").
		IntVar(&this.LiveFrequency)
	using.Flag("feedback.sound.mutedFrequency", "Frequency (Hz) of the cue played when the microphone gets muted.").
		Envar("TS_FEEDBACK_SOUND_MUTED_FREQUENCY").
		IntVar(&this.MutedFrequency)
	using.Flag("feedback.sound.cueDuration", "How long a cue is played.").
		Envar("TS_FEEDBACK_SOUND_CUE_DURATION").
		DurationVar(&this.CueDuration)
}
