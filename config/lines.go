package config

import "slices"

// Output lines of the box.
const (
	RX2       = "rx2"
	Stereo    = "stereo"
	TX2       = "tx2"
	TX1LED    = "tx1_led"
	RX1LED    = "rx1_led"
	RX2LED    = "rx2_led"
	PTT1      = "ptt1"
	PTT2      = "ptt2"
	CW1       = "cw1"
	CW2       = "cw2"
	AuxClk    = "aux_clk"
	AuxData   = "aux_data"
	AuxStrobe = "aux_strobe"
)

// Input lines of the box.
const (
	PTTSwitch = "ptt_switch"
	PTTDTR    = "ptt_dtr"
	CWKey     = "cw_key"
	TX1Switch = "tx1_switch"
	TX2Switch = "tx2_switch"
	RX1Switch = "rx1_switch"
	RX2Switch = "rx2_switch"
)

var OutputLines = []string{
	RX2, Stereo, TX2, TX1LED, RX1LED, RX2LED, PTT1, PTT2, CW1, CW2, AuxClk, AuxData, AuxStrobe,
}

// InputLines in the order of their F-key bindings in the simulation.
var InputLines = []string{
	PTTSwitch, PTTDTR, CWKey, TX1Switch, TX2Switch, RX1Switch, RX2Switch,
}

func IsOutputLine(name string) bool {
	return slices.Contains(OutputLines, name)
}

func IsInputLine(name string) bool {
	return slices.Contains(InputLines, name)
}
