package controller

import (
	"log/slog"

	"lautenbacher.net/so2rbox/platform"
)

// Responder queues bytes for the host. *transport.Transport implements it.
type Responder interface {
	Enqueue(b byte) bool
	EnqueueString(s string) int
	EnqueueBytes(p []byte) int
}

// Handler consumes completed command lines. The frame is only valid for
// the duration of the call.
type Handler interface {
	HandleFrame(frame []byte, out Responder)
}

// InputHandler is implemented by handlers that want to hear about changes
// of the input lines.
type InputHandler interface {
	InputsChanged(inputs platform.LineState, out Responder)
}

// LogHandler logs every frame and input change and answers nothing.
type LogHandler struct{}

// HandleFrame logs the frame.
func (LogHandler) HandleFrame(frame []byte, _ Responder) {
	slog.Info("Frame received", "frame", string(frame), "len", len(frame))
}

// InputsChanged logs the new input state.
func (LogHandler) InputsChanged(inputs platform.LineState, _ Responder) {
	slog.Info("Inputs changed", "inputs", inputs)
}

// EchoHandler sends every frame back to the host, for testing the link.
type EchoHandler struct {
	Terminator byte
}

// HandleFrame queues the frame and the terminator. A frame that does not
// fit is sent truncated and logged.
func (h EchoHandler) HandleFrame(frame []byte, out Responder) {
	n := out.EnqueueBytes(frame)
	if !out.Enqueue(h.Terminator) || n < len(frame) {
		slog.Warn("Echo truncated, output buffer full", "frame", string(frame), "queued", n)
	}
}
