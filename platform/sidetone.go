//go:build cgo

package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	c "lautenbacher.net/so2rbox/config"
)

// sidetone plays the CW keying on the default audio output.
type sidetone struct {
	cfg    c.SidetoneConfig
	gen    *toneGenerator
	mu     sync.Mutex
	stream *portaudio.Stream
}

func newSidetone(cfg c.SidetoneConfig) *sidetone {
	return &sidetone{
		cfg: cfg,
		gen: newToneGenerator(cfg.Frequency, cfg.Volume, cfg.SampleRate),
	}
}

func (s *sidetone) start() error {
	if !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, s.cfg.SampleRate, 0, s.gen.fill)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open sidetone stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start sidetone stream: %w", err)
	}
	s.stream = stream
	slog.Info("Sidetone started", "frequency", s.cfg.Frequency, "sampleRate", s.cfg.SampleRate)
	return nil
}

func (s *sidetone) key(on bool) {
	s.gen.key(on)
}

func (s *sidetone) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return
	}
	if err := s.stream.Stop(); err != nil {
		slog.Error("Failed to stop sidetone stream", "error", err)
	}
	if err := s.stream.Close(); err != nil {
		slog.Error("Failed to close sidetone stream", "error", err)
	}
	if err := portaudio.Terminate(); err != nil {
		slog.Error("Failed to terminate portaudio", "error", err)
	}
	s.stream = nil
	slog.Info("Sidetone stopped")
}
