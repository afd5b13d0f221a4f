//go:build !cgo

package platform

import (
	"log/slog"

	c "lautenbacher.net/so2rbox/config"
)

// sidetone is a stub for builds without CGO, keying is tracked but silent.
type sidetone struct {
	cfg c.SidetoneConfig
	gen *toneGenerator
}

func newSidetone(cfg c.SidetoneConfig) *sidetone {
	return &sidetone{
		cfg: cfg,
		gen: newToneGenerator(cfg.Frequency, cfg.Volume, cfg.SampleRate),
	}
}

func (s *sidetone) start() error {
	if s.cfg.Enabled {
		slog.Warn("Sidetone: audio support is disabled in this build (requires CGO).")
	}
	return nil
}

func (s *sidetone) key(on bool) {
	s.gen.key(on)
}

func (s *sidetone) stop() {}
