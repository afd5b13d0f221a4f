package platform

import (
	"errors"
	"maps"

	"lautenbacher.net/so2rbox/transport"
	"lautenbacher.net/so2rbox/util"
)

var ErrUnknownLine = errors.New("unknown line")

// Platform defines the interface for abstracting away the real hardware
// of the box from the TUI simulation.
type Platform interface {
	// Start initializes the platform (opens GPIO, or starts the TUI).
	Start() error

	// Stop releases all platform resources and drops every output.
	Stop()

	// Ready is closed once the platform is fully up.
	Ready() <-chan bool

	// Peripheral is the serial link to the host. It is configured by
	// transport.Init, not by Start.
	Peripheral() transport.Peripheral

	// SetLine drives an output line.
	SetLine(name string, on bool) error

	// Outputs returns the current output line states.
	Outputs() LineState

	// ReadInputs samples all input lines.
	ReadInputs() LineState

	// ShiftAux clocks b MSB first into the aux shift register and latches it.
	ShiftAux(b byte) error

	// LineEvents announces every change of an output or input line.
	LineEvents() *util.AtomicEvent[LineSnapshot]
}

// LineState maps line names to their asserted state.
type LineState map[string]bool

func (ls LineState) Clone() LineState {
	return maps.Clone(ls)
}

type LineSnapshot struct {
	Outputs LineState
	Inputs  LineState
}
