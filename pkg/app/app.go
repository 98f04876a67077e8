package app

import (
	"context"
	"os"
	"time"

	"dario.cat/mergo"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/talk-switch/pkg/audio"
	"github.com/blaubaer/talk-switch/pkg/common"
	"github.com/blaubaer/talk-switch/pkg/feedback"
	"github.com/blaubaer/talk-switch/pkg/feedback/facade"
	"github.com/blaubaer/talk-switch/pkg/hotkey"
	"github.com/blaubaer/talk-switch/pkg/ptt"
	"github.com/blaubaer/talk-switch/pkg/runloop"
)

func NewApp() *App {
	return &App{
		config: NewConfiguration(),
	}
}

// App wires the audio stack, the hotkey, the press state machine and the
// feedback channels together. Everything which touches shared state runs on
// one run loop; OS callbacks and the poll goroutine only post to it.
type App struct {
	AudioStack        audio.Stack
	Feedback          facade.Facade
	ConfigurationFile string

	configFromFlags Configuration
	config          Configuration

	loop        *runloop.Loop
	controller  *audio.Controller
	hotkeys     *hotkey.Service
	coordinator *ptt.Coordinator
}

func (this *App) SetupConfiguration(using common.FlagHolder) {
	this.configFromFlags.SetupConfiguration(using)

	using.Flag("configuration", "Defines the file from which the configuration should be loaded and/or stored to.").
		Short('c').
		StringVar(&this.ConfigurationFile)
}

func (this *App) Initialize() (rErr error) {
	success := false
	defer func() {
		if !success {
			if err := this.Dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}
	}()

	if err := this.config.loadFromFile(this.configurationFile(), true); err != nil {
		return err
	}
	if err := mergo.Merge(&this.config, this.configFromFlags); err != nil {
		return err
	}

	this.loop = runloop.New()

	if err := this.AudioStack.Initialize(); err != nil {
		return err
	}

	this.controller = audio.NewController(&this.AudioStack)
	this.controller.PollInterval = this.config.MutePollInterval
	this.controller.TopologyDebounce = this.config.TopologyDebounce
	this.controller.Notify = this.loop.Post
	this.controller.OnMuteStateChanged = this.onMuteStateChanged
	this.controller.OnExternalChange = this.onExternalChange
	this.controller.OnDeviceChanged = this.onDeviceChanged
	this.controller.OnError = this.onError
	if err := this.controller.Initialize(); err != nil {
		return err
	}

	if err := this.Feedback.Initialize(&this.config.Feedback, this.alwaysSaveConf); err != nil {
		return err
	}

	this.hotkeys = hotkey.NewService(hotkey.NewBinder(), this.loop)
	this.hotkeys.OnPressed = this.onPressed
	this.hotkeys.OnRegistered = this.onRegistered
	this.hotkeys.OnError = this.onError

	this.coordinator = ptt.NewCoordinator(this.controller, this.hotkeys, this.loop)
	this.coordinator.HoldThreshold = this.config.HoldThreshold
	this.coordinator.ReleasePollInterval = this.config.ReleasePollInterval

	if err := this.saveConf(false); err != nil {
		return err
	}

	success = true
	return nil
}

// Run drives the application until ctx is done: the mute poll on its own
// goroutine, the feedback refresh on another one, everything else on the
// run loop.
func (this *App) Run(ctx context.Context) error {
	ctxInner, cancel := context.WithCancel(ctx)
	defer cancel()

	go this.controller.Run(ctxInner)

	go func() {
		for {
			log.With("interval", this.config.FeedbackRefreshInterval).
				Debug("Wait until the next feedback refresh...")
			select {
			case <-ctxInner.Done():
				log.Debug("Feedback refresh loop interrupted.")
				return
			case <-time.After(this.config.FeedbackRefreshInterval):
			}

			if err := this.Feedback.Update(); err != nil {
				log.WithError(err).
					Error("Cannot refresh feedback channels.")
				continue
			}
			this.loop.Post(this.ensureFeedback)
		}
	}()

	if err := this.hotkeys.Register(this.config.Key); err != nil {
		return err
	}
	this.loop.Post(this.ensureFeedback)

	this.loop.Run(ctx)
	return nil
}

// Rebind switches the controlling key at runtime. Any in-flight press cycle
// is resolved first so no session leaks across the change.
func (this *App) Rebind(key hotkey.Key) {
	this.loop.Post(func() {
		this.coordinator.Reset()
		if err := this.hotkeys.Register(key); err != nil {
			log.WithError(err).
				With("key", key).
				Warn("Cannot rebind hotkey.")
			return
		}
		this.config.Key = key
		if err := this.saveConf(true); err != nil {
			log.WithError(err).
				Warn("Cannot save configuration after rebinding.")
		}
	})
}

// ToggleMute toggles the microphone, as used by the tray menu.
func (this *App) ToggleMute() {
	this.loop.Post(func() {
		if _, err := this.controller.Toggle(); err != nil {
			log.WithError(err).
				Warn("Cannot toggle mute state.")
		}
	})
}

func (this *App) onPressed() {
	this.loop.Post(this.coordinator.HandlePress)
}

func (this *App) onRegistered(key hotkey.Key, ok bool) {
	if ok {
		return
	}
	log.With("key", key).
		Warn("Hotkey could not be bound; the tray menu remains the only way to control the microphone.")
}

func (this *App) onMuteStateChanged(muted bool) {
	log.With("muted", muted).
		Info("Mute state changed.")
	this.ensureFeedback()
}

func (this *App) onExternalChange(muted bool) {
	// The controller already adopted the state; nothing to roll back.
	log.With("muted", muted).
		Debug("Adopted mute state which was changed outside of this process.")
}

func (this *App) onDeviceChanged() {
	log.Debug("Device topology changed; re-ensuring feedback.")
	this.ensureFeedback()
}

func (this *App) onError(err error) {
	log.WithError(err).
		Warn("Operational problem detected.")
}

func (this *App) ensureFeedback() {
	devices, err := this.AudioStack.Devices()
	if err != nil {
		log.WithError(err).
			Warn("Cannot enumerate devices for feedback.")
		devices = nil
	}

	state := feedback.StateMuted
	if muted, err := this.controller.GetMuted(); err == nil {
		state = feedback.StateOfMuted(muted)
	} else if _, ok := common.AsError[audio.NoActiveDeviceError](err); !ok {
		log.WithError(err).
			Warn("Cannot read mute state for feedback.")
	}

	if err := this.Feedback.Ensure(feedback.NewContext(state, devices)); err != nil {
		log.WithError(err).
			Warn("Cannot ensure feedback state.")
	}
}

func (this *App) alwaysSaveConf() error {
	return this.saveConf(true)
}

func (this *App) saveConf(always bool) error {
	if this.config.PreventAutoSave {
		log.Debug("Automatically save of configuration disabled.")
		return nil
	}

	fn := this.configurationFile()
	if !always {
		_, err := os.Stat(fn)
		if os.IsNotExist(err) {
			log.With("file", fn).Info("Configuration absent.")
			// Ok, we should save...
		} else if err != nil {
			return err
		} else {
			// Does exist, skip...
			return nil
		}
	}

	if err := this.config.saveToFile(fn); err != nil {
		return err
	}

	log.With("file", fn).Info("Configuration saved.")

	return nil
}

func (this *App) configurationFile() string {
	if v := this.ConfigurationFile; v != "" {
		return v
	}
	return defaultConfigurationFile()
}

func (this *App) Dispose() (rErr error) {
	defer func() {
		if err := this.AudioStack.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	defer func() {
		if err := this.Feedback.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	if c := this.controller; c != nil {
		defer func() {
			if err := c.Dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}()
	}

	if h := this.hotkeys; h != nil {
		defer func() {
			if err := h.Dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}()
	}

	if c := this.coordinator; c != nil {
		if err := c.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}

	return
}
