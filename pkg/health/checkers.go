package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// RuntimeCheck fails when the process has more than maxGoroutines goroutines
// or the last GC pause exceeded maxPause. Zero disables a limit.
func RuntimeCheck(maxGoroutines int, maxPause time.Duration) CheckFunc {
	return func(_ context.Context) error {
		if maxGoroutines > 0 {
			if n := runtime.NumGoroutine(); n > maxGoroutines {
				return errors.Errorf("goroutine count %d exceeds threshold %d", n, maxGoroutines)
			}
		}
		if maxPause > 0 {
			var stats debug.GCStats
			debug.ReadGCStats(&stats)
			if len(stats.Pause) > 0 && stats.Pause[0] > maxPause {
				return errors.Errorf("GC pause %s exceeds threshold %s", stats.Pause[0], maxPause)
			}
		}
		return nil
	}
}

// Pinger is implemented by dependencies that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps p as a CheckFunc.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// CountCheck fails when count reports fewer than minimum items, for example
// an empty product catalog.
func CountCheck(what string, minimum int, count func(ctx context.Context) (int, error)) CheckFunc {
	return func(ctx context.Context) error {
		n, err := count(ctx)
		if err != nil {
			return errors.Wrapf(err, "count %s", what)
		}
		if n < minimum {
			return errors.Errorf("%s: have %d, want at least %d", what, n, minimum)
		}
		return nil
	}
}
