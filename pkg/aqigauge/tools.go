package aqigauge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mikesmitty/aqi-gauge/pkg/aqi"
	"github.com/mikesmitty/aqi-gauge/pkg/gauge"
	"github.com/mikesmitty/aqi-gauge/pkg/monitor"
	"github.com/mikesmitty/aqi-gauge/pkg/purpleair"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ServoToolSettle = 500 * time.Millisecond

// Servo runs the interactive duty cycle calibration tool.
func Servo() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
		defer stop()

		initHost()
		pin, err := OpenPin(viper.GetString("servo-pin"))
		errChk(err)
		servo, err := gauge.NewServo(pin, gauge.DefaultFrequency, ServoToolSettle)
		errChk(err)

		err = ServoPrompt(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), servo)
		slog.Info("releasing servo")
		if closeErr := servo.Close(); closeErr != nil {
			slog.Error("failed to release servo", "error", closeErr)
		}
		errChk(err)
	}
}

// LED runs the interactive color mixing tool.
func LED() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
		defer stop()

		initHost()
		led, err := openLED()
		errChk(err)

		err = LEDPrompt(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), led)
		slog.Info("releasing led")
		if offErr := led.Off(); offErr != nil {
			slog.Error("failed to darken led", "error", offErr)
		}
		if closeErr := led.Close(); closeErr != nil {
			slog.Error("failed to release led", "error", closeErr)
		}
		errChk(err)
	}
}

// Once fetches the station's current readings and prints the AQI.
func Once() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
		defer stop()

		station := viper.GetString("station")
		if station == "" {
			errChk(errors.New("a sensor station id is required (--station)"))
		}
		feed, err := purpleair.NewClient(station, "", nil)
		errChk(err)
		errChk(PrintOnce(ctx, feed, cmd.OutOrStdout()))
	}
}

// ServoPrompt reads duty cycle percentages, one per line, and moves act to
// each of them. It returns at end of input or when ctx is done.
func ServoPrompt(ctx context.Context, in io.Reader, out io.Writer, act monitor.Actuator) error {
	fmt.Fprintln(out, "Test different duty cycles to find the:")
	fmt.Fprintln(out, "* min-duty: the gauge's highest reading")
	fmt.Fprintln(out, "* max-duty: a zero reading")
	fmt.Fprintf(out, "* center-duty: a reading of %.0f\n", gauge.CenterIndex)

	lines := readLines(ctx, in)
	for {
		fmt.Fprint(out, "duty cycle percentage: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		duty, err := strconv.ParseFloat(line, 64)
		if err != nil || duty < 0 || duty > 100 {
			fmt.Fprintf(out, "invalid duty cycle %q, want a percentage\n", line)
			continue
		}
		if err := act.SetDuty(ctx, duty); err != nil {
			return err
		}
	}
}

// LEDPrompt reads "red,green,blue" triples, or an AQI category name, one per
// line and shows the color on light.
func LEDPrompt(ctx context.Context, in io.Reader, out io.Writer, light monitor.Light) error {
	fmt.Fprintln(out, "Enter comma separated RGB values (0-255), an AQI category name or \"off\"")

	lines := readLines(ctx, in)
	for {
		fmt.Fprint(out, "color: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		c, err := parseColor(line)
		if err != nil {
			fmt.Fprintf(out, "invalid color %q: %v\n", line, err)
			continue
		}
		if err := light.SetColor(c); err != nil {
			return err
		}
		fmt.Fprintln(out, c)
	}
}

// PrintOnce prints the current concentration and AQI for feed.
func PrintOnce(ctx context.Context, feed monitor.Feed, out io.Writer) error {
	s, err := feed.Fetch(ctx)
	if err != nil {
		return err
	}
	index := aqi.Index(s.PM25)
	c, _ := aqi.Classify(index)
	fmt.Fprintf(out, "PM2.5: %.2f µg/m³ (%d readings, %d skipped)\n", s.PM25, s.Readings, s.Skipped)
	fmt.Fprintf(out, "AQI: %.0f %s\n", index, c.Name)
	return nil
}

func parseColor(s string) (aqi.Color, error) {
	if strings.EqualFold(s, "off") {
		return aqi.Off, nil
	}
	for _, c := range aqi.Categories {
		if strings.EqualFold(s, c.Name) {
			return c.Color, nil
		}
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return aqi.Color{}, errors.New("want three values")
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return aqi.Color{}, fmt.Errorf("channel %d out of range 0-255", i+1)
		}
		rgb[i] = uint8(v)
	}
	return aqi.Color{Red: rgb[0], Green: rgb[1], Blue: rgb[2]}, nil
}

// readLines feeds lines from in to the returned channel until end of input.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("failed to read input", "error", err)
		}
	}()
	return lines
}
