// Package engine drives the orrery: one Frame advances the world, applies the
// camera controls and renders, and a Loop repeats frames at a paced rate.
package engine

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// Status tells the loop whether to keep going after a frame.
type Status int

const (
	Continue Status = iota
	Stop
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// FrameFunc runs one frame.
type FrameFunc func(ctx context.Context) Status

// Stop reasons reported in LoopStopped events.
const (
	ReasonStopped   = "stopped"
	ReasonCancelled = "cancelled"
)

// Loop calls a FrameFunc repeatedly, at most TargetFPS times per second.
type Loop struct {
	limiter *rate.Limiter
	bus     *event.Bus
	logger  *logging.Logger
	frames  uint64
}

// NewLoop creates a loop paced at targetFPS frames per second. A targetFPS of 0
// runs frames back to back. bus may be nil.
func NewLoop(targetFPS float64, bus *event.Bus, logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.NewLogger()
	}
	l := &Loop{bus: bus, logger: logger}
	if targetFPS > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(targetFPS), 1)
	}
	return l
}

// Run calls fn until it returns Stop or ctx is done. It returns the number of
// frames run by this call, and ctx's error when it ended by cancellation.
func (l *Loop) Run(ctx context.Context, fn FrameFunc) (uint64, error) {
	start := l.frames
	l.bus.Publish(event.NewLoopEvent(event.LoopStarted, l, l.frames, ""))
	l.logger.Info(ctx, "frame loop started", "paced", l.limiter != nil)

	err := l.run(ctx, fn)

	reason := ReasonStopped
	if err != nil {
		reason = ReasonCancelled
	}
	ran := l.frames - start
	l.bus.Publish(event.NewLoopEvent(event.LoopStopped, l, l.frames, reason))
	l.logger.Info(ctx, "frame loop stopped", "frames", ran, "reason", reason)
	return ran, err
}

func (l *Loop) run(ctx context.Context, fn FrameFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				// The next frame would land past ctx's deadline.
				<-ctx.Done()
				return ctx.Err()
			}
		}

		status := fn(ctx)
		l.frames++
		if status == Stop {
			return nil
		}
	}
}

// Frames returns the total number of frames run.
func (l *Loop) Frames() uint64 {
	return l.frames
}
