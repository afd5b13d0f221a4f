package peripheral

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// PortOptions describe the serial line to the host. The defaults are the
// classic 9600 baud 8N1 of the box.
type PortOptions struct {
	BaudRate int    `yaml:"BaudRate" json:"BaudRate"`
	DataBits int    `yaml:"DataBits" json:"DataBits"`
	StopBits int    `yaml:"StopBits" json:"StopBits"`
	Parity   string `yaml:"Parity" json:"Parity"`
}

const DefaultBaudRate = 9600

// Normalize validates the options and fills in defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial expects.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// BitsPerByte is the number of bit times one byte occupies on the wire.
func (o PortOptions) BitsPerByte() int {
	opts, err := o.Normalize()
	if err != nil {
		return 10
	}
	bits := 1 + opts.DataBits + opts.StopBits
	if opts.Parity != "N" {
		bits++
	}
	return bits
}
