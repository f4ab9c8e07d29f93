package aqigauge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mikesmitty/aqi-gauge/pkg/gauge"
	"github.com/mikesmitty/aqi-gauge/pkg/monitor"
	"github.com/mikesmitty/aqi-gauge/pkg/mqtt"
	"github.com/mikesmitty/aqi-gauge/pkg/purpleair"
	"github.com/mikesmitty/aqi-gauge/pkg/rgbled"
	"github.com/mikesmitty/aqi-gauge/pkg/router"
	"github.com/mikesmitty/aqi-gauge/pkg/watchdog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrNoPin = errors.New("gpio pin not found")

func Root() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()

		ctx, cancelFunc := context.WithCancel(context.Background())
		defer cancelFunc()

		chanSignal := make(chan os.Signal, 1)
		signal.Notify(chanSignal, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
		defer signal.Stop(chanSignal)

		station := viper.GetString("station")
		if station == "" {
			errChk(errors.New("a sensor station id is required (--station)"))
		}

		cal, err := gauge.Calibrate(
			viper.GetFloat64("min-duty"),
			viper.GetFloat64("max-duty"),
			viper.GetFloat64("center-duty"),
		)
		errChk(err)
		slog.Debug("gauge calibration", "a", cal.A, "b", cal.B, "min", cal.MinDuty, "max", cal.MaxDuty)

		// Sensor feed
		feed, err := purpleair.NewClient(station, "", nil)
		errChk(err)
		slog.Info("monitoring sensor station", "station", station, "url", feed.URL())

		// MQTT connects before the pins are claimed so a bad broker url exits cleanly
		var mc *mqtt.Client
		if broker := viper.GetString("mqtt-broker"); broker != "" {
			mqttUrl, err := url.Parse(broker)
			errChk(err)
			mc = mqtt.NewClient(mqttUrl, viper.GetInt("mqtt-sample-interval"))
			errChk(mc.Connect())
			defer mc.Disconnect()
		}

		initHost()

		// Servo
		servoPin, err := OpenPin(viper.GetString("servo-pin"))
		errChk(err)
		servo, err := gauge.NewServo(servoPin, gauge.DefaultFrequency, viper.GetDuration("servo-settle"))
		errChk(err)

		// RGB LED
		led, err := openLED()
		if err != nil {
			servo.Close()
			errChk(err)
		}

		readings := make(chan monitor.Reading, 1)
		mon := monitor.New(feed, servo, led, cal, monitor.WithOutput(readings))

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(-1)

		readingFan := router.NewFan[monitor.Reading]("reading", readings)

		// Watchdog
		if timeout := viper.GetDuration("watchdog-timeout"); timeout > 0 {
			g.Go(watchdog.NewWatchdog(timeout, func() error {
				slog.Error("no fresh readings from sensor feed", "station", station, "timeout", timeout)
				return nil
			}, readingFan.Subscribe("watchdog"), func(r monitor.Reading) bool { return r.Fresh }))
		}

		// MQTT
		if mc != nil {
			g.Go(mc.GetPublisher(readingFan.Subscribe("mqtt")))
			g.Go(func() error {
				if err := mc.WaitConnected(ctx); err != nil {
					return nil
				}
				if err := mc.HomeAssistant(); err != nil {
					slog.Error("homeassistant discovery failed", "error", err)
				}
				return nil
			})
			// Publish/handle the display-enable switch
			g.Go(mc.SwitchFn(ctx, "display", mon.Enable, func() {
				if err := mon.Darken(); err != nil {
					slog.Error("failed to darken led", "error", err)
				}
			}, mon.Enabled))
		}

		g.Go(readingFan.Run)
		g.Go(func() error {
			defer close(readings)
			return mon.Run(ctx)
		})

		// Signal handling
		g.Go(func() error {
			defer cancelFunc()
			select {
			case <-ctx.Done():
			case s := <-chanSignal:
				slog.Info("received signal", "signal", s)
			}
			slog.Info("shutting down...")
			return nil
		})

		slog.Debug("waiting for goroutines to finish")
		err = g.Wait()
		slog.Info("stopping gauge...")
		if shutdownErr := mon.Shutdown(); shutdownErr != nil {
			slog.Error("gauge shutdown incomplete", "error", shutdownErr)
		}
		errChk(err)
	}
}

func setupLogging() {
	slogOpts := tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.DateTime,
	}
	if viper.GetBool("debug") {
		slogOpts.Level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &slogOpts))
	slog.SetDefault(log)
}

func initHost() {
	hostState, err := host.Init()
	errChk(err)
	for i := range hostState.Loaded {
		slog.Debug("loaded", "module", hostState.Loaded[i])
	}
	for i := range hostState.Failed {
		slog.Error("failed", "module", hostState.Failed[i])
	}
	for i := range hostState.Skipped {
		slog.Debug("skipped", "module", hostState.Skipped[i])
	}
}

// openLED opens the common-anode LED on the configured pins.
func openLED() (*rgbled.LED, error) {
	redPin, err := OpenPin(viper.GetString("red-pin"))
	if err != nil {
		return nil, err
	}
	greenPin, err := OpenPin(viper.GetString("green-pin"))
	if err != nil {
		return nil, err
	}
	bluePin, err := OpenPin(viper.GetString("blue-pin"))
	if err != nil {
		return nil, err
	}
	return rgbled.NewLED(redPin, greenPin, bluePin, rgbled.DefaultFrequency, true)
}

// OpenPin looks up a GPIO pin by name, e.g. "GPIO4" or "P1_7".
func OpenPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoPin, name)
	}
	return p, nil
}

func errChk(err error) {
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
