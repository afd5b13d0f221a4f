package platform

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"
	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/peripheral"
	"lautenbacher.net/so2rbox/transport"
)

// gpioPin is the subset of rpio.Pin the platform drives.
type gpioPin interface {
	Output()
	Input()
	High()
	Low()
	PullUp()
	PullOff()
	Read() rpio.State
}

type gpioOps struct {
	open   func() error
	close  func() error
	newPin func(int) gpioPin
}

var rpioOps = gpioOps{
	open:   rpio.Open,
	close:  rpio.Close,
	newPin: func(n int) gpioPin { return rpio.Pin(n) },
}

type gpiocfg struct {
	low  []gpioPin
	high []gpioPin
}

type outputcfg struct {
	on  gpiocfg
	off gpiocfg
}

type inputcfg struct {
	pins      []gpioPin
	activeLow bool
}

type RaspberryPiPlatform struct {
	*AbstractPlatform
	gpio      gpioOps
	serial    *peripheral.Serial
	outputcfg map[string]outputcfg
	inputcfg  map[string]inputcfg
}

func NewRaspberryPiPlatform(conf *c.Config) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{
		gpio:   rpioOps,
		serial: peripheral.NewSerial(conf.Serial.Port, conf.Serial.Mode, conf.Serial.FifoDepth),
	}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.writeLine, inst.readLine)
	return inst
}

func (s *RaspberryPiPlatform) Peripheral() transport.Peripheral {
	return s.serial
}

func (s *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO...")
	if err := s.gpio.open(); err != nil {
		return fmt.Errorf("failed to open rpio: %w", err)
	}
	s.initPins(s.config.Hardware)

	if err := s.sidetone.start(); err != nil {
		slog.Error("Sidetone unavailable", "error", err)
	}

	close(s.readyChan) // For RPi, we are ready immediately.
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	s.dropOutputs()
	s.sidetone.stop()

	if err := s.serial.Close(); err != nil {
		slog.Error("Error closing serial port", "error", err)
	}
	if err := s.gpio.close(); err != nil {
		slog.Error("Error closing rpio", "error", err)
	}
	slog.Info("GPIO released")
}

// initPins sets pin directions and drives every output to its off state.
func (s *RaspberryPiPlatform) initPins(hw c.HardwareConfig) {
	pins := func(nums []int) []gpioPin {
		ret := make([]gpioPin, 0, len(nums))
		for _, n := range nums {
			ret = append(ret, s.gpio.newPin(n))
		}
		return ret
	}

	s.outputcfg = make(map[string]outputcfg, len(hw.Outputs))
	for name, cfg := range hw.Outputs {
		out := outputcfg{
			on:  gpiocfg{low: pins(cfg.On.Low), high: pins(cfg.On.High)},
			off: gpiocfg{low: pins(cfg.Off.Low), high: pins(cfg.Off.High)},
		}
		for _, g := range []gpiocfg{out.on, out.off} {
			for _, pin := range append(g.low, g.high...) {
				pin.Output()
			}
		}
		s.outputcfg[name] = out
		s.writeLine(name, false)
	}

	s.inputcfg = make(map[string]inputcfg, len(hw.Inputs))
	for name, cfg := range hw.Inputs {
		in := inputcfg{pins: pins(cfg.Pins), activeLow: cfg.ActiveLow}
		for _, pin := range in.pins {
			pin.Input()
			if cfg.PullUp {
				pin.PullUp()
			} else {
				pin.PullOff()
			}
		}
		s.inputcfg[name] = in
	}
	slog.Info("GPIO configured", "outputs", len(s.outputcfg), "inputs", len(s.inputcfg))
}

// writeLine applies the pin levels of a line. Lines without pins are not
// wired on this box and are ignored.
func (s *RaspberryPiPlatform) writeLine(name string, on bool) {
	cfg, ok := s.outputcfg[name]
	if !ok {
		return
	}
	levels := cfg.off
	if on {
		levels = cfg.on
	}
	for _, pin := range levels.low {
		pin.Low()
	}
	for _, pin := range levels.high {
		pin.High()
	}
}

// readLine reports an input as asserted when any of its pins is active.
func (s *RaspberryPiPlatform) readLine(name string) bool {
	cfg, ok := s.inputcfg[name]
	if !ok {
		return false
	}
	active := rpio.High
	if cfg.activeLow {
		active = rpio.Low
	}
	for _, pin := range cfg.pins {
		if pin.Read() == active {
			return true
		}
	}
	return false
}
