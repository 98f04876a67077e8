package systray

import (
	"fmt"
	"strings"

	"github.com/getlantern/systray"

	"github.com/blaubaer/talk-switch/pkg/feedback"
)

// Systray reflects the mute state in the tray item's title and tooltip.
// It assumes the tray itself was already started by the main entry point.
type Systray struct{}

func (this *Systray) Initialize() error {
	return nil
}

func (this *Systray) Dispose() error {
	return nil
}

func (this *Systray) Ensure(ctx feedback.Context) error {
	state := ctx.State()

	if state.Muted() {
		systray.SetTitle("🔇")
		systray.SetTooltip(this.tooltip("Microphone is muted", ctx))
		return nil
	}

	systray.SetTitle("🎙")
	systray.SetTooltip(this.tooltip("Microphone is live", ctx))
	return nil
}

func (this *Systray) tooltip(headline string, ctx feedback.Context) string {
	devices := ctx.Devices()
	if !devices.HasContent() {
		return headline + "\nNo active microphones"
	}

	names := make([]string, len(devices))
	for i, v := range devices {
		names[i] = v.Name
	}
	return fmt.Sprintf("%s\n%s", headline, strings.Join(names, "\n"))
}

func (this *Systray) Update() error {
	return nil
}

func (this *Systray) GetType() feedback.Type {
	return feedback.TypeSystray
}
