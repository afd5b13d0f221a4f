// Package controller runs the control loop of the box: it services the
// serial transport, hands completed frames to a Handler and watches the
// input lines.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/platform"
	"lautenbacher.net/so2rbox/transport"
	"lautenbacher.net/so2rbox/util"
)

// Loop is the single owner of the transport. It is driven by Run or, in
// tests, by calling Tick directly.
type Loop struct {
	transport *transport.Transport
	platform  platform.Platform
	handler   Handler
	keyer     *Keyer
	tick      time.Duration
	pollEvery uint64
	ticks     uint64
	inputs    platform.LineState
	stats     *util.AtomicEvent[transport.Stats]
}

// NewLoop wires a transport and a platform to h. The transport must be
// initialised before the loop runs.
func NewLoop(t *transport.Transport, p platform.Platform, h Handler, cfg c.ControllerConfig) *Loop {
	pollEvery := uint64(max(cfg.InputPollEvery, 1))
	return &Loop{
		transport: t,
		platform:  p,
		handler:   h,
		keyer:     NewKeyer(p),
		tick:      cfg.TickInterval,
		pollEvery: pollEvery,
		stats:     util.NewAtomicEvent[transport.Stats](),
	}
}

// Stats returns the transport counters as of the last input scan. Unlike
// Transport.Stats it may be called from any goroutine.
func (l *Loop) Stats() transport.Stats {
	return l.stats.Value()
}

// NewHandler returns the handler for the configured controller mode.
func NewHandler(mode string, terminator byte) (Handler, error) {
	switch mode {
	case c.ModeLog:
		return LogHandler{}, nil
	case c.ModeEcho:
		return EchoHandler{Terminator: terminator}, nil
	default:
		return nil, fmt.Errorf("unknown controller mode %q", mode)
	}
}

// Run ticks until ctx is cancelled. The transport must be initialised.
func (l *Loop) Run(ctx context.Context) error {
	if l.tick <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", l.tick)
	}
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	slog.Info("Control loop started", "tick", l.tick, "pollEvery", l.pollEvery)
	for {
		select {
		case <-ctx.Done():
			stats := l.transport.Stats()
			slog.Info("Control loop stopped",
				"txBytes", stats.TxBytes, "rxBytes", stats.RxBytes,
				"txDropped", stats.TxDropped, "rxDropped", stats.RxDropped,
				"frames", stats.Frames, "errors", stats.Errors)
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick is one pass of the loop: one transport service step, frame dispatch
// and, every pollEvery ticks, an input scan. Input changes drive the keyer
// before the handler hears about them.
func (l *Loop) Tick() {
	if l.transport.Service() {
		l.handler.HandleFrame(l.transport.Frame(), l.transport)
		l.transport.Clear()
	}

	l.ticks++
	if l.ticks%l.pollEvery == 0 {
		l.pollInputs()
	}
}

// pollInputs scans the inputs. The first scan sets the outputs from the
// switches but is not reported to the handler.
func (l *Loop) pollInputs() {
	l.stats.Send(l.transport.Stats())

	inputs := l.platform.ReadInputs()
	if l.inputs != nil && maps.Equal(inputs, l.inputs) {
		return
	}
	first := l.inputs == nil
	l.inputs = inputs
	if err := l.keyer.Follow(inputs); err != nil {
		slog.Warn("Failed to follow inputs", "error", err)
	}
	if first {
		return
	}
	if ih, ok := l.handler.(InputHandler); ok {
		ih.InputsChanged(inputs, l.transport)
	}
}
