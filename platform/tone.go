package platform

import (
	"math"
	"sync/atomic"
	"time"
)

// Rise and fall time of the sidetone envelope, keeps the keying click free.
const rampTime = 5 * time.Millisecond

// toneGenerator renders a keyed sine wave. key may be called from any
// goroutine, fill only from the audio callback.
type toneGenerator struct {
	keyed  atomic.Bool
	step   float64
	ramp   float64
	volume float64
	phase  float64
	env    float64
}

func newToneGenerator(frequency, volume, sampleRate float64) *toneGenerator {
	return &toneGenerator{
		step:   2 * math.Pi * frequency / sampleRate,
		ramp:   1 / (rampTime.Seconds() * sampleRate),
		volume: volume,
	}
}

func (g *toneGenerator) key(on bool) {
	g.keyed.Store(on)
}

func (g *toneGenerator) fill(out []float32) {
	keyed := g.keyed.Load()
	for i := range out {
		if keyed {
			g.env = min(1, g.env+g.ramp)
		} else {
			g.env = max(0, g.env-g.ramp)
		}
		out[i] = float32(g.volume * g.env * math.Sin(g.phase))
		g.phase += g.step
		if g.phase >= 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
	}
}
