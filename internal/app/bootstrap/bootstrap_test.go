package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestRunStepContainsFailures(t *testing.T) {
	app := &WorkerApp{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	calls := 0
	app.runStep(context.Background(), "flaky-job", func(context.Context) error {
		calls++
		return errors.New("store unavailable")
	})
	app.runStep(context.Background(), "healthy-job", func(context.Context) error {
		calls++
		return nil
	})
	if calls != 2 {
		t.Fatalf("a failing step must not stop later steps, got %d calls", calls)
	}
}

func TestRunStepRetriesOnNextTick(t *testing.T) {
	app := &WorkerApp{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	attempts := 0
	step := func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient blip")
		}
		return nil
	}
	app.runStep(context.Background(), "relay", step)
	app.runStep(context.Background(), "relay", step)
	if attempts != 2 {
		t.Fatalf("step must run again after a failure, got %d attempts", attempts)
	}
}
