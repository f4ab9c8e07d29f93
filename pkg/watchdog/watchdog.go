package watchdog

import (
	"log/slog"
	"time"
)

// NewWatchdog calls expired whenever a full interval passes without an input
// value for which alive reports true. A nil alive accepts every value. The
// returned function ends when input is closed.
func NewWatchdog[T any](interval time.Duration, expired func() error, input <-chan T, alive func(T) bool) func() error {
	return func() error {
		t := time.NewTicker(interval)
		defer t.Stop()
		awake := true
		slog.Debug("watchdog started", "timeout", interval)
		for {
			select {
			case v, ok := <-input:
				if !ok {
					slog.Debug("watchdog stopped")
					return nil
				}
				if alive == nil || alive(v) {
					awake = true
				}
			case <-t.C:
				if !awake {
					slog.Error("watchdog timeout", "timeout", interval)
					if err := expired(); err != nil {
						return err
					}
				}
				awake = false
			}
		}
	}
}
