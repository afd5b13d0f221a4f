package platform

import (
	"errors"
	"testing"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/so2rbox/config"
)

type fakePin struct {
	output bool
	pullUp bool
	level  rpio.State
}

func (p *fakePin) Output()          { p.output = true }
func (p *fakePin) Input()           { p.output = false }
func (p *fakePin) High()            { p.level = rpio.High }
func (p *fakePin) Low()             { p.level = rpio.Low }
func (p *fakePin) PullUp()          { p.pullUp = true; p.level = rpio.High }
func (p *fakePin) PullOff()         { p.pullUp = false }
func (p *fakePin) Read() rpio.State { return p.level }

type fakeGPIO struct {
	pins     map[int]*fakePin
	opened   bool
	closed   bool
	openFail error
}

func (g *fakeGPIO) ops() gpioOps {
	return gpioOps{
		open: func() error {
			if g.openFail != nil {
				return g.openFail
			}
			g.opened = true
			return nil
		},
		close: func() error {
			g.closed = true
			return nil
		},
		newPin: func(n int) gpioPin {
			if p, ok := g.pins[n]; ok {
				return p
			}
			p := &fakePin{}
			g.pins[n] = p
			return p
		},
	}
}

func newTestRPi(t *testing.T) (*RaspberryPiPlatform, *fakeGPIO) {
	gpio := &fakeGPIO{pins: map[int]*fakePin{}}
	p := NewRaspberryPiPlatform(testConfig())
	p.gpio = gpio.ops()
	require.NoError(t, p.Start())
	return p, gpio
}

func TestRaspberryPiPlatform_Start(t *testing.T) {
	p, gpio := newTestRPi(t)
	assert.True(t, gpio.opened)

	select {
	case <-p.Ready():
	default:
		t.Fatal("platform should be ready after Start")
	}

	for _, n := range []int{5, 6, 12, 17} {
		assert.True(t, gpio.pins[n].output, "pin %d is an output", n)
	}
	assert.Equal(t, rpio.Low, gpio.pins[5].level, "rx2 starts off")
	assert.Equal(t, rpio.High, gpio.pins[12].level, "stereo is active low")

	assert.False(t, gpio.pins[22].output)
	assert.True(t, gpio.pins[22].pullUp)
	assert.False(t, gpio.pins[24].pullUp)
}

func TestRaspberryPiPlatform_StartFails(t *testing.T) {
	gpio := &fakeGPIO{pins: map[int]*fakePin{}, openFail: errors.New("no /dev/gpiomem")}
	p := NewRaspberryPiPlatform(testConfig())
	p.gpio = gpio.ops()
	assert.ErrorContains(t, p.Start(), "no /dev/gpiomem")
}

func TestRaspberryPiPlatform_SetLine(t *testing.T) {
	p, gpio := newTestRPi(t)

	require.NoError(t, p.SetLine(c.RX2, true))
	assert.Equal(t, rpio.High, gpio.pins[5].level)
	assert.Equal(t, rpio.High, gpio.pins[6].level, "one line drives both pins")

	require.NoError(t, p.SetLine(c.Stereo, true))
	assert.Equal(t, rpio.Low, gpio.pins[12].level)

	// Known but not wired on this box.
	require.NoError(t, p.SetLine(c.TX1LED, true))
	assert.True(t, p.Outputs()[c.TX1LED])

	require.NoError(t, p.SetLine(c.RX2, false))
	assert.Equal(t, rpio.Low, gpio.pins[5].level)
}

func TestRaspberryPiPlatform_ReadInputs(t *testing.T) {
	p, gpio := newTestRPi(t)

	state := p.ReadInputs()
	assert.False(t, state[c.CWKey], "pulled up paddles are released")
	assert.False(t, state[c.PTTSwitch])
	assert.False(t, state[c.RX1Switch], "unwired input")

	gpio.pins[23].level = rpio.Low
	assert.True(t, p.ReadInputs()[c.CWKey], "either paddle keys")

	gpio.pins[23].level = rpio.High
	gpio.pins[24].level = rpio.High
	state = p.ReadInputs()
	assert.False(t, state[c.CWKey])
	assert.True(t, state[c.PTTSwitch], "active high input")
}

func TestRaspberryPiPlatform_Stop(t *testing.T) {
	p, gpio := newTestRPi(t)
	require.NoError(t, p.SetLine(c.PTT1, true))
	assert.Equal(t, rpio.High, gpio.pins[17].level)

	p.Stop()
	assert.Equal(t, rpio.Low, gpio.pins[17].level, "ptt released on stop")
	assert.True(t, gpio.closed)
}
