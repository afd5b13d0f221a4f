package platform

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	c "lautenbacher.net/so2rbox/config"
	u "lautenbacher.net/so2rbox/util"
)

// AbstractPlatform keeps the line bookkeeping shared by the hardware and the
// simulation. The concrete platform supplies how a line is written and read.
type AbstractPlatform struct {
	config     *c.Config
	mu         sync.Mutex
	outputs    LineState
	inputs     LineState
	writeFunc  func(name string, on bool)
	readFunc   func(name string) bool
	lineEvents *u.AtomicEvent[LineSnapshot]
	sidetone   *sidetone
	readyChan  chan bool
}

func newAbstractPlatform(conf *c.Config, writeFunc func(string, bool), readFunc func(string) bool) *AbstractPlatform {
	inst := &AbstractPlatform{
		config:     conf,
		outputs:    make(LineState, len(c.OutputLines)),
		inputs:     make(LineState, len(c.InputLines)),
		writeFunc:  writeFunc,
		readFunc:   readFunc,
		lineEvents: u.NewAtomicEvent[LineSnapshot](),
		sidetone:   newSidetone(conf.Sidetone),
		readyChan:  make(chan bool),
	}
	for _, name := range c.OutputLines {
		inst.outputs[name] = false
	}
	for _, name := range c.InputLines {
		inst.inputs[name] = false
	}
	return inst
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *AbstractPlatform) LineEvents() *u.AtomicEvent[LineSnapshot] {
	return s.lineEvents
}

func (s *AbstractPlatform) SetLine(name string, on bool) error {
	if !c.IsOutputLine(name) {
		return fmt.Errorf("%w: %q", ErrUnknownLine, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeFunc(name, on)
	if s.outputs[name] == on {
		return nil
	}
	s.outputs[name] = on

	if name == c.CW1 || name == c.CW2 {
		s.sidetone.key(s.outputs[c.CW1] || s.outputs[c.CW2])
	}
	s.publish()
	return nil
}

func (s *AbstractPlatform) Outputs() LineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs.Clone()
}

func (s *AbstractPlatform) ReadInputs() LineState {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, name := range c.InputLines {
		v := s.readFunc(name)
		if s.inputs[name] != v {
			s.inputs[name] = v
			changed = true
		}
	}
	if changed {
		s.publish()
	}
	return s.inputs.Clone()
}

// ShiftAux bit-bangs b over aux_data and aux_clk, most significant bit
// first, and pulses aux_strobe to latch the register outputs.
func (s *AbstractPlatform) ShiftAux(b byte) error {
	for i := 7; i >= 0; i-- {
		if err := s.SetLine(c.AuxData, b&(1<<i) != 0); err != nil {
			return err
		}
		if err := s.SetLine(c.AuxClk, true); err != nil {
			return err
		}
		if err := s.SetLine(c.AuxClk, false); err != nil {
			return err
		}
	}
	if err := s.SetLine(c.AuxStrobe, true); err != nil {
		return err
	}
	return s.SetLine(c.AuxStrobe, false)
}

// dropOutputs switches every output off, used on shutdown.
func (s *AbstractPlatform) dropOutputs() {
	for _, name := range c.OutputLines {
		if err := s.SetLine(name, false); err != nil {
			slog.Error("Failed to drop output", "line", name, "error", err)
		}
	}
}

// publish must be called with mu held.
func (s *AbstractPlatform) publish() {
	s.lineEvents.Send(LineSnapshot{
		Outputs: maps.Clone(s.outputs),
		Inputs:  maps.Clone(s.inputs),
	})
}
