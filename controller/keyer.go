package controller

import (
	"errors"
	"log/slog"

	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/platform"
)

// Keyer routes the operator's local controls to the radios without the
// host. The tx switches pick the transmit radio, the paddle keys its CW
// line and the PTT switch or the DTR line key its PTT.
type Keyer struct {
	platform platform.Platform
	radio    byte
}

// NewKeyer returns a keyer driving the lines of p.
func NewKeyer(p platform.Platform) *Keyer {
	return &Keyer{platform: p}
}

// Follow drives the output lines from inputs. Lines are released before
// others are asserted, so both radios are never keyed at once.
func (k *Keyer) Follow(inputs platform.LineState) error {
	tx2 := k.platform.Outputs()[c.TX2]
	switch {
	case inputs[c.TX2Switch] && !inputs[c.TX1Switch]:
		tx2 = true
	case inputs[c.TX1Switch] && !inputs[c.TX2Switch]:
		tx2 = false
	}

	key := inputs[c.CWKey]
	ptt := inputs[c.PTTSwitch] || inputs[c.PTTDTR]
	want := []struct {
		name string
		on   bool
	}{
		{c.CW1, key && !tx2},
		{c.CW2, key && tx2},
		{c.PTT1, ptt && !tx2},
		{c.PTT2, ptt && tx2},
		{c.TX2, tx2},
		{c.TX1LED, !tx2},
	}

	var errs []error
	for _, pass := range []bool{false, true} {
		for _, w := range want {
			if w.on == pass {
				errs = append(errs, k.platform.SetLine(w.name, w.on))
			}
		}
	}

	// The aux port carries the number of the transmit radio.
	radio := byte(1)
	if tx2 {
		radio = 2
	}
	if radio != k.radio {
		if err := k.platform.ShiftAux(radio); err != nil {
			errs = append(errs, err)
		} else {
			k.radio = radio
			slog.Info("Transmit radio selected", "radio", radio)
		}
	}
	return errors.Join(errs...)
}
