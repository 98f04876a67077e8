package facade

import (
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/talk-switch/pkg/feedback"
	"github.com/blaubaer/talk-switch/pkg/feedback/hue"
	"github.com/blaubaer/talk-switch/pkg/feedback/sound"
	"github.com/blaubaer/talk-switch/pkg/feedback/systray"
)

// Facade fans state changes out to all configured feedback sinks. A sink
// which fails to render does not prevent the others from being updated;
// the microphone state itself is never affected by feedback problems.
type Facade struct {
	sinks []feedback.Sink

	lock sync.RWMutex
}

func (this *Facade) Initialize(conf *Configuration, saveConfFunc func() error) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.sinks != nil {
		return nil
	}

	for _, t := range conf.Types {
		switch t {
		case feedback.TypeSystray:
			var buf systray.Systray
			if err := buf.Initialize(); err != nil {
				return err
			}
			this.sinks = append(this.sinks, &buf)
		case feedback.TypeHue:
			var buf hue.Hue
			if err := buf.Initialize(&conf.Hue, saveConfFunc); err != nil {
				return err
			}
			this.sinks = append(this.sinks, &buf)
		case feedback.TypeSound:
			var buf sound.Sound
			if err := buf.Initialize(&conf.Sound); err != nil {
				return err
			}
			this.sinks = append(this.sinks, &buf)
		default:
			return fmt.Errorf("unsupported feedback type: %v", t)
		}
	}

	return nil
}

func (this *Facade) Ensure(ctx feedback.Context) error {
	this.lock.RLock()
	defer this.lock.RUnlock()

	for _, v := range this.sinks {
		if err := v.Ensure(ctx); err != nil {
			log.WithError(err).
				With("feedback", v.GetType()).
				Warn("Cannot reflect state in feedback channel.")
		}
	}
	return nil
}

func (this *Facade) Update() error {
	this.lock.RLock()
	defer this.lock.RUnlock()

	for _, v := range this.sinks {
		if err := v.Update(); err != nil {
			return fmt.Errorf("cannot update feedback channel %v: %w", v.GetType(), err)
		}
	}
	return nil
}

func (this *Facade) Dispose() error {
	this.lock.Lock()
	defer this.lock.Unlock()

	defer func() {
		this.sinks = nil
	}()

	for _, v := range this.sinks {
		if err := v.Dispose(); err != nil {
			return err
		}
	}
	return nil
}

func (this *Facade) GetTypes() feedback.Types {
	this.lock.RLock()
	defer this.lock.RUnlock()

	result := make(feedback.Types, len(this.sinks))
	for i, v := range this.sinks {
		result[i] = v.GetType()
	}
	return result
}
