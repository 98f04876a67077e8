package sound

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/blaubaer/talk-switch/pkg/feedback"
)

const sampleRate = beep.SampleRate(44100)

// Sound plays a short tone cue whenever the mute state changes. The very
// first Ensure only seeds the reference state and stays silent.
type Sound struct {
	conf *Configuration

	seeded bool
	last   feedback.State
	mutex  sync.Mutex
}

var speakerInit sync.Once

func (this *Sound) Initialize(conf *Configuration) error {
	this.conf = conf

	var err error
	speakerInit.Do(func() {
		err = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	if err != nil {
		return fmt.Errorf("cannot initialize speaker for sound feedback: %w", err)
	}
	return nil
}

func (this *Sound) Dispose() error {
	this.conf = nil
	return nil
}

func (this *Sound) Ensure(ctx feedback.Context) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	state := ctx.State()
	if !this.seeded {
		this.seeded = true
		this.last = state
		return nil
	}
	if state == this.last {
		return nil
	}
	this.last = state

	freq := this.conf.LiveFrequency
	if state.Muted() {
		freq = this.conf.MutedFrequency
	}
	return this.play(freq)
}

func (this *Sound) play(freq int) error {
	tone, err := generators.SinTone(sampleRate, freq)
	if err != nil {
		return fmt.Errorf("cannot generate %dHz cue: %w", freq, err)
	}
	speaker.Play(beep.Take(sampleRate.N(this.conf.CueDuration), tone))
	return nil
}

func (this *Sound) Update() error {
	return nil
}

func (this *Sound) GetType() feedback.Type {
	return feedback.TypeSound
}
