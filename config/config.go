package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"lautenbacher.net/so2rbox/peripheral"
	"lautenbacher.net/so2rbox/transport"
)

const CONFILE = "so2rbox.yml"

// Highest BCM GPIO number on the 40 pin header.
const maxPin = 27

const (
	ModeLog  = "log"
	ModeEcho = "echo"
)

type Config struct {
	RealHW     bool   `yaml:"-" json:"-"`
	Configfile string `yaml:"-" json:"-"`

	Serial     SerialConfig     `yaml:"Serial"`
	Transport  TransportConfig  `yaml:"Transport"`
	Controller ControllerConfig `yaml:"Controller"`
	Hardware   HardwareConfig   `yaml:"Hardware"`
	Sidetone   SidetoneConfig   `yaml:"Sidetone"`
	Web        WebConfig        `yaml:"Web"`
	Logging    LoggingConfig    `yaml:"Logging"`
}

type SerialConfig struct {
	// Device of the host link, only used on real hardware.
	Port      string                 `yaml:"Port"`
	Mode      peripheral.PortOptions `yaml:"Mode"`
	FifoDepth int                    `yaml:"FifoDepth"`
}

type TransportConfig struct {
	BufferSize int    `yaml:"BufferSize"`
	Terminator string `yaml:"Terminator"`
}

type ControllerConfig struct {
	TickInterval   time.Duration `yaml:"TickInterval" json:"TickInterval"`
	InputPollEvery int           `yaml:"InputPollEvery" json:"InputPollEvery"`
	Mode           string        `yaml:"Mode" json:"Mode"`
}

type PinLevels struct {
	Low  []int `yaml:"Low,flow"`
	High []int `yaml:"High,flow"`
}

type OutputCfg struct {
	On  PinLevels `yaml:"On"`
	Off PinLevels `yaml:"Off"`
}

type InputCfg struct {
	Pins      []int `yaml:"Pins,flow"`
	PullUp    bool  `yaml:"PullUp"`
	ActiveLow bool  `yaml:"ActiveLow"`
}

type HardwareConfig struct {
	Outputs map[string]OutputCfg `yaml:"Outputs"`
	Inputs  map[string]InputCfg  `yaml:"Inputs"`
}

type SidetoneConfig struct {
	Enabled    bool    `yaml:"Enabled" json:"Enabled"`
	Frequency  float64 `yaml:"Frequency" json:"Frequency"`
	Volume     float64 `yaml:"Volume" json:"Volume"`
	SampleRate float64 `yaml:"SampleRate" json:"SampleRate"`
}

type WebConfig struct {
	Enabled bool   `yaml:"Enabled"`
	Address string `yaml:"Address"`
}

type LogCfg struct {
	Level  string `yaml:"Level" json:"Level"`
	Format string `yaml:"Format" json:"Format"`
	File   string `yaml:"File" json:"File"`
}

type LoggingConfig struct {
	TUI LogCfg `yaml:"TUI" json:"TUI"`
	HW  LogCfg `yaml:"HW" json:"HW"`
}

// ReadConfig reads, defaults and validates the configuration in cfile.
func ReadConfig(cfile string, realhw bool) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	var conf Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.RealHW = realhw
	conf.Configfile = cfile
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return &conf, nil
}

func (c *Config) applyDefaults() {
	if c.Serial.FifoDepth == 0 {
		c.Serial.FifoDepth = peripheral.DefaultFifoDepth
	}
	if c.Transport.BufferSize == 0 {
		c.Transport.BufferSize = transport.DefaultCapacity
	}
	if c.Transport.Terminator == "" {
		c.Transport.Terminator = string(rune(transport.DefaultTerminator))
	}
	if c.Controller.TickInterval == 0 {
		c.Controller.TickInterval = 200 * time.Microsecond
	}
	if c.Controller.InputPollEvery == 0 {
		c.Controller.InputPollEvery = 50
	}
	if c.Controller.Mode == "" {
		c.Controller.Mode = ModeLog
	}
	if c.Sidetone.Frequency == 0 {
		c.Sidetone.Frequency = 700
	}
	if c.Sidetone.SampleRate == 0 {
		c.Sidetone.SampleRate = 44100
	}
	if c.Web.Address == "" {
		c.Web.Address = ":8080"
	}
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if err := c.TransportOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("Transport: %w", err))
	}
	if len(c.Transport.Terminator) != 1 {
		errs = append(errs, fmt.Errorf("Transport.Terminator %q must be exactly one byte", c.Transport.Terminator))
	}

	if _, err := c.Serial.Mode.Normalize(); err != nil {
		errs = append(errs, fmt.Errorf("Serial.Mode: %w", err))
	}
	if c.Serial.FifoDepth <= 0 {
		errs = append(errs, fmt.Errorf("Serial.FifoDepth must be positive, got %d", c.Serial.FifoDepth))
	}
	if c.RealHW && c.Serial.Port == "" {
		errs = append(errs, errors.New("Serial.Port is required on real hardware"))
	}

	errs = append(errs, c.Controller.validate()...)
	errs = append(errs, c.Sidetone.validate()...)
	errs = append(errs, c.Hardware.validate()...)

	for name, lc := range map[string]LogCfg{"TUI": c.Logging.TUI, "HW": c.Logging.HW} {
		if err := lc.validate(); err != nil {
			errs = append(errs, fmt.Errorf("Logging.%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func (cc ControllerConfig) validate() []error {
	var errs []error
	if cc.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("Controller.TickInterval must be positive, got %v", cc.TickInterval))
	}
	if cc.InputPollEvery <= 0 {
		errs = append(errs, fmt.Errorf("Controller.InputPollEvery must be positive, got %d", cc.InputPollEvery))
	}
	if cc.Mode != ModeLog && cc.Mode != ModeEcho {
		errs = append(errs, fmt.Errorf("Controller.Mode %q must be one of %q or %q", cc.Mode, ModeLog, ModeEcho))
	}
	return errs
}

func (sc SidetoneConfig) validate() []error {
	var errs []error
	if sc.Frequency < 100 || sc.Frequency > 3000 {
		errs = append(errs, fmt.Errorf("Sidetone.Frequency %.0f must be between 100 and 3000 Hz", sc.Frequency))
	}
	if sc.Volume < 0 || sc.Volume > 1 {
		errs = append(errs, fmt.Errorf("Sidetone.Volume %.2f must be between 0 and 1", sc.Volume))
	}
	if sc.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("Sidetone.SampleRate must be positive, got %.0f", sc.SampleRate))
	}
	return errs
}

func (hc HardwareConfig) validate() []error {
	var errs []error
	checkPins := func(where string, pins []int) {
		for _, p := range pins {
			if p < 0 || p > maxPin {
				errs = append(errs, fmt.Errorf("%s: pin %d must be between 0 and %d", where, p, maxPin))
			}
		}
	}

	for name, out := range hc.Outputs {
		if !IsOutputLine(name) {
			errs = append(errs, fmt.Errorf("Hardware.Outputs: unknown line %q", name))
			continue
		}
		checkPins("Hardware.Outputs."+name+".On.Low", out.On.Low)
		checkPins("Hardware.Outputs."+name+".On.High", out.On.High)
		checkPins("Hardware.Outputs."+name+".Off.Low", out.Off.Low)
		checkPins("Hardware.Outputs."+name+".Off.High", out.Off.High)
	}
	for name, in := range hc.Inputs {
		if !IsInputLine(name) {
			errs = append(errs, fmt.Errorf("Hardware.Inputs: unknown line %q", name))
			continue
		}
		if len(in.Pins) == 0 {
			errs = append(errs, fmt.Errorf("Hardware.Inputs.%s: at least one pin is required", name))
		}
		checkPins("Hardware.Inputs."+name+".Pins", in.Pins)
	}
	return errs
}

func (lc LogCfg) validate() error {
	level := strings.ToUpper(lc.Level)
	if level != "" && !slices.Contains([]string{"DEBUG", "INFO", "WARN", "ERROR"}, level) {
		return fmt.Errorf("unknown level %q", lc.Level)
	}
	format := strings.ToLower(lc.Format)
	if format != "" && format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", lc.Format)
	}
	return nil
}

// TransportOptions converts the transport section for transport.New.
func (c *Config) TransportOptions() transport.Options {
	opts := transport.Options{Capacity: c.Transport.BufferSize, Terminator: transport.DefaultTerminator}
	if len(c.Transport.Terminator) > 0 {
		opts.Terminator = c.Transport.Terminator[0]
	}
	return opts
}

// LogConfig returns the logging settings for the selected platform.
func (c *Config) LogConfig() LogCfg {
	if c.RealHW {
		return c.Logging.HW
	}
	return c.Logging.TUI
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
