package app

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blaubaer/talk-switch/pkg/audio"
	"github.com/blaubaer/talk-switch/pkg/common"
	"github.com/blaubaer/talk-switch/pkg/feedback/facade"
	"github.com/blaubaer/talk-switch/pkg/hotkey"
	"github.com/blaubaer/talk-switch/pkg/ptt"
)

func NewConfiguration() Configuration {
	return Configuration{
		false,

		hotkey.KeyDefault,
		ptt.DefaultHoldThreshold,
		ptt.DefaultReleasePollInterval,

		audio.DefaultPollInterval,
		audio.DefaultTopologyDebounce,

		5 * time.Minute,
		facade.NewConfiguration(),
	}
}

type Configuration struct {
	PreventAutoSave bool `yaml:"preventAutoSave"`

	Key                 hotkey.Key    `yaml:"key"`
	HoldThreshold       time.Duration `yaml:"holdThreshold,omitempty"`
	ReleasePollInterval time.Duration `yaml:"releasePollInterval,omitempty"`

	MutePollInterval time.Duration `yaml:"mutePollInterval,omitempty"`
	TopologyDebounce time.Duration `yaml:"topologyDebounce,omitempty"`

	FeedbackRefreshInterval time.Duration        `yaml:"feedbackRefreshInterval,omitempty"`
	Feedback                facade.Configuration `yaml:"feedback,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("preventAutoSave", "If provided configuration will NOT automatically be saved upon changes.").
		Envar("TS_PREVENT_AUTO_SAVE").
		BoolVar(&this.PreventAutoSave)
	using.Flag("key", "The key which controls the microphone. All possible values: "+hotkey.AllKeys.String()).
		Envar("TS_KEY").
		SetValue(&this.Key)
	using.Flag("holdThreshold", "How long the key has to be held before a press counts as push-to-talk instead of a toggle.").
		Envar("TS_HOLD_THRESHOLD").
		DurationVar(&this.HoldThreshold)
	using.Flag("releasePollInterval", "How often the key is sampled for release while it is held.").
		Envar("TS_RELEASE_POLL_INTERVAL").
		DurationVar(&this.ReleasePollInterval)
	using.Flag("mutePollInterval", "How often the hardware mute state is checked for external changes.").
		Envar("TS_MUTE_POLL_INTERVAL").
		DurationVar(&this.MutePollInterval)
	using.Flag("topologyDebounce", "How long device add/remove bursts are coalesced before reacting.").
		Envar("TS_TOPOLOGY_DEBOUNCE").
		DurationVar(&this.TopologyDebounce)
	using.Flag("feedbackRefreshInterval", "How often the feedback channels rediscover their targets.").
		Envar("TS_FEEDBACK_REFRESH_INTERVAL").
		DurationVar(&this.FeedbackRefreshInterval)

	this.Feedback.SetupConfiguration(using)
}

func (this *Configuration) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(this)
}

func (this *Configuration) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.loadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}

	return nil
}

func (this *Configuration) saveTo(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(this)
}

func (this *Configuration) saveToFile(fn string) error {
	_ = os.MkdirAll(filepath.Dir(fn), 0700)

	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.saveTo(f); err != nil {
		return fmt.Errorf("cannot write file %q: %w", fn, err)
	}

	return nil
}

func defaultConfigurationFile() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		fs, err := os.Stat(appData)
		if err == nil && fs.IsDir() {
			return filepath.Join(appData, "talk-switch", "configuration.yml")
		}
	}

	u, err := user.Current()
	if err != nil {
		return "configuration.yml"
	}

	return filepath.Join(u.HomeDir, ".config", "talk-switch", "configuration.yml")
}
