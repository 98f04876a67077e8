package hue

import (
	"fmt"
	"sync"
	"time"

	"github.com/amimof/huego"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/talk-switch/pkg/common"
	"github.com/blaubaer/talk-switch/pkg/credentials"
	"github.com/blaubaer/talk-switch/pkg/feedback"
)

const appName = "github.com/blaubaer/talk-switch"

// Hue drives matching Philips Hue lights as on-air indicator: on and
// colored while the microphone is live, off while it is muted.
type Hue struct {
	conf         *Configuration
	saveConfFunc func() error

	lights      []huego.Light
	credentials credentials.Credentials
	mutex       sync.Mutex
}

func (this *Hue) Initialize(conf *Configuration, saveConfFunc func() error) error {
	this.conf = conf
	this.saveConfFunc = saveConfFunc

	v, err := this.resolveCredentials()
	if err != nil {
		return err
	}
	this.credentials = v

	if err := this.Update(); err != nil {
		return err
	}

	return nil
}

func (this *Hue) Dispose() error {
	this.conf = nil
	this.saveConfFunc = nil
	return nil
}

// Update rediscovers the lights matching the configured name pattern.
func (this *Hue) Update() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	bridge, err := this.bridge()
	if err != nil {
		return err
	}

	lights, err := this.discoverLights(bridge)
	if err != nil {
		return err
	}

	this.lights = lights

	return nil
}

func (this *Hue) discoverLights(bridge *huego.Bridge) (result []huego.Light, _ error) {
	candidates, err := bridge.GetLights()
	if err != nil {
		return nil, fmt.Errorf("cannot discover lights of bridge %s: %w", bridge.Host, err)
	}
	for _, candidate := range candidates {
		if this.conf.Name.MatchString(candidate.Name) {
			if candidate.State == nil {
				candidate.State = &huego.State{}
			}
			result = append(result, candidate)
		}
	}
	return
}

func (this *Hue) Ensure(ctx feedback.Context) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	bridge, err := this.bridge()
	if err != nil {
		return err
	}

	state := ctx.State()
	for i, v := range this.lights {
		if err := this.ensureLight(bridge, state, &v); err != nil {
			return err
		}
		this.lights[i] = v
	}
	return nil
}

func (this *Hue) ensureLight(bridge *huego.Bridge, state feedback.State, v *huego.Light) error {
	newState := this.stateFor(state, v.State)
	if newState == nil {
		return nil
	}
	if _, err := bridge.SetLightState(v.ID, *newState); err != nil {
		return fmt.Errorf("cannot switch light %q#%d to %v: %w", v.Name, v.ID, state, err)
	}
	v.State = &(*newState)
	return nil
}

func (this *Hue) stateFor(state feedback.State, current *huego.State) *huego.State {
	if state.Muted() {
		if current.On {
			return &huego.State{
				On: false,
			}
		}
		return nil
	}

	if !current.On || current.Bri != this.conf.Brightness || current.Hue != this.conf.Hue || current.Sat != this.conf.Saturation {
		return &huego.State{
			On:  true,
			Bri: this.conf.Brightness,
			Hue: this.conf.Hue,
			Sat: this.conf.Saturation,

			Ct: 0,
		}
	}
	return nil
}

func (this *Hue) GetType() feedback.Type {
	return feedback.TypeHue
}

func (this *Hue) bridge() (*huego.Bridge, error) {
	v := this.credentials
	if v.IsZero() {
		return nil, fmt.Errorf("not paired with hue bridge")
	}
	return huego.New(v.HueBridge, v.HueUser), nil
}

func (this *Hue) resolveCredentials() (credentials.Credentials, error) {
	if u := this.conf.User; u != "" {
		bridge, err := this.discoverBridge()
		if err != nil {
			return credentials.Credentials{}, err
		}

		return credentials.Credentials{
			HueBridge: bridge.Host,
			HueUser:   u,
		}, nil
	}

	if this.conf.Pair {
		return this.pair()
	}

	v, err := this.readCredentials()
	if err != nil {
		return credentials.Credentials{}, err
	}

	if !v.IsZero() {
		return v, nil
	}

	return this.pair()
}

func (this *Hue) discoverBridge() (*huego.Bridge, error) {
	if this.conf.Bridge != "" {
		return &huego.Bridge{
			Host: this.conf.Bridge,
		}, nil
	}

	bridge, err := huego.Discover()
	if err == nil {
		return bridge, nil
	}
	log.WithError(err).
		Warn("Cannot discover hue bridge automatically.")

	var host string
	if err := common.RequestStringContentIfRequiredFromTerminal(&host, "hue bridge host", false, false); err != nil {
		return nil, err
	}
	return &huego.Bridge{
		Host: host,
	}, nil
}

func (this *Hue) pair() (credentials.Credentials, error) {
	bridge, err := this.discoverBridge()
	if err != nil {
		return credentials.Credentials{}, err
	}

	for {
		log.Info("Wait for hue link button been pressed...")
		user, err := bridge.CreateUser(appName)
		if apiErr, ok := err.(*huego.APIError); ok && apiErr.Type == 101 && apiErr.Description == "link button not pressed" {
			time.Sleep(1 * time.Second)
			continue
		} else if err != nil {
			return credentials.Credentials{}, fmt.Errorf("was not able to pair with %s: %w", bridge.Host, err)
		} else {
			v := credentials.Credentials{
				HueBridge: bridge.Host,
				HueUser:   user,
			}

			if err := this.storeCredentials(v); err != nil {
				log.WithError(err).
					Warn("Cannot store credentials. The app will work now, but next time the pairing might be required again.")
			}

			log.With("bridge", bridge.Host).
				Info("Successful paired.")
			return v, nil
		}
	}
}

func (this *Hue) readCredentials() (credentials.Credentials, error) {
	var v credentials.Credentials
	if _, err := v.ReadFromStore(); err != nil {
		return credentials.Credentials{}, err
	}

	if v.HueBridge == "" {
		v.HueBridge = this.conf.Bridge
	}
	if v.HueUser == "" {
		v.HueUser = this.conf.User
	}

	return v, nil
}

func (this *Hue) storeCredentials(v credentials.Credentials) error {
	supported, err := v.WriteToStore()
	if err != nil {
		return err
	}
	if supported {
		return nil
	}

	this.conf.Bridge = v.HueBridge
	this.conf.User = v.HueUser
	return this.saveConfFunc()
}
