package onecli

import (
	"context"
	"path/filepath"
	"time"
)

// Observer receives the duration of every command a Runner executes.
type Observer interface {
	ObserveCommand(binary, outcome string, d time.Duration)
}

type instrumented struct {
	next Runner
	obs  Observer
}

// Instrument wraps next so that each command reports its duration to obs.
// A nil observer returns next unchanged.
func Instrument(next Runner, obs Observer) Runner {
	if obs == nil {
		return next
	}
	return &instrumented{next: next, obs: obs}
}

func (i *instrumented) Run(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	out, err := i.next.Run(ctx, args...)

	binary := "unknown"
	if len(args) > 0 {
		binary = filepath.Base(args[0])
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.obs.ObserveCommand(binary, outcome, time.Since(start))
	return out, err
}
