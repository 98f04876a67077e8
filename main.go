package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	_ "github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"
	"github.com/getlantern/systray"

	"github.com/blaubaer/talk-switch/pkg/app"
)

func main() {
	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(func(v *formatter.Text) {
			bv := true
			v.AllowMultiLineMessage = &bv
			v.MultiLineMessageAfterFields = &bv
		}),
		"json": formatter.NewJson(),
	}

	a := app.NewApp()

	cmd := kingpin.New(os.Args[0], "").
		Action(func(*kingpin.ParseContext) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			systray.Run(func() {
				defer func() { _ = a.Dispose() }()

				systray.SetTitle("Talk switch")
				systray.SetTooltip("Controls the microphone mute state.")
				toggleMi := systray.AddMenuItem("Toggle mute", "Mutes respectively unmutes all microphones.")
				quitMi := systray.AddMenuItem("Exit", "Exit the talk switch")

				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()

				go func() {
					c := make(chan os.Signal, 1)
					signal.Notify(c, os.Interrupt, syscall.SIGTERM)
					for {
						select {
						case <-toggleMi.ClickedCh:
							a.ToggleMute()
						case <-c:
							log.Info("Terminated. Going down...")
							cancel()
						case <-quitMi.ClickedCh:
							log.Info("Exit clicked. Going down...")
							cancel()
						}
					}
				}()

				if err := a.Run(ctx); err != nil {
					log.WithError(err).
						Error("Application failed.")
					os.Exit(1)
				}
				os.Exit(0)
			}, nil)
			return nil
		})
	a.SetupConfiguration(cmd)

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("always").
		SetValue(lv.Consumer.Formatter.ColorMode)

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}
