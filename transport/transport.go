// Package transport is the serial transport of the box: an output ring
// buffer and an input line framer serviced by a single polling call from
// the control loop. Nothing in here blocks, spawns goroutines or locks.
package transport

import (
	"fmt"
	"io"
	"log/slog"
)

// Defaults of the host protocol.
const (
	DefaultCapacity   = 64
	DefaultTerminator = '\r'
)

// Peripheral is the serial hardware the transport drives.
type Peripheral interface {
	io.ByteReader
	io.ByteWriter
	// Configure sets up data rate and frame format and enables the
	// receiver and transmitter. It is called once by Init.
	Configure() error
	// TxReady reports whether WriteByte would accept a byte now.
	TxReady() bool
	// RxAvailable reports whether ReadByte has a byte to return.
	RxAvailable() bool
}

// Options size the buffers and pick the frame terminator.
type Options struct {
	// Capacity of both buffers in bytes, a power of two.
	Capacity   int
	Terminator byte
}

// DefaultOptions match the host protocol: 64 byte buffers, CR terminated lines.
func DefaultOptions() Options {
	return Options{Capacity: DefaultCapacity, Terminator: DefaultTerminator}
}

// Validate checks that the capacity is a power of two of at least 4.
func (o Options) Validate() error {
	if o.Capacity < 4 || o.Capacity&(o.Capacity-1) != 0 {
		return fmt.Errorf("buffer capacity %d must be a power of two and at least 4", o.Capacity)
	}
	return nil
}

// Stats are running counters since the last Init.
type Stats struct {
	TxBytes   uint64
	RxBytes   uint64
	TxDropped uint64
	RxDropped uint64
	Frames    uint64
	Errors    uint64
}

// Transport multiplexes transmit and receive over one Peripheral. It is
// owned by a single goroutine and is not safe for concurrent use.
type Transport struct {
	periph Peripheral
	out    *OutputChannel
	in     *InputFramer
	stats  Stats
}

// New creates a transport over p. Call Init before servicing it.
func New(p Peripheral, opts Options) (*Transport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Transport{
		periph: p,
		out:    NewOutputChannel(opts.Capacity),
		in:     NewInputFramer(opts.Capacity, opts.Terminator),
	}, nil
}

// Init empties both buffers and configures the peripheral.
func (t *Transport) Init() error {
	t.out.Reset()
	t.in.Clear()
	t.stats = Stats{}
	if err := t.periph.Configure(); err != nil {
		return fmt.Errorf("failed to configure serial peripheral: %w", err)
	}
	return nil
}

// Service moves at most one byte out and at most one byte in. It returns
// true when the received byte completed a frame; the frame is then
// available through Frame until Clear is called.
func (t *Transport) Service() bool {
	if !t.out.Empty() && t.periph.TxReady() {
		b, _ := t.out.pop()
		if err := t.periph.WriteByte(b); err != nil {
			t.stats.Errors++
			t.stats.TxDropped++
			slog.Debug("Serial write failed, byte lost", "error", err)
		} else {
			t.stats.TxBytes++
		}
	}

	if !t.periph.RxAvailable() {
		return false
	}
	b, err := t.periph.ReadByte()
	if err != nil {
		t.stats.Errors++
		slog.Debug("Serial read failed", "error", err)
		return false
	}
	t.stats.RxBytes++
	before := t.in.Len()
	if t.in.Feed(b) {
		t.stats.Frames++
		return true
	}
	if t.in.Len() == before {
		t.stats.RxDropped++
	}
	return false
}

// Enqueue schedules b for transmission. A full buffer drops b.
func (t *Transport) Enqueue(b byte) bool {
	if !t.out.Enqueue(b) {
		t.stats.TxDropped++
		return false
	}
	return true
}

// EnqueueString schedules s and returns how many bytes fit.
func (t *Transport) EnqueueString(s string) int {
	n := t.out.EnqueueString(s)
	t.stats.TxDropped += uint64(len(s) - n)
	return n
}

// EnqueueBytes schedules p and returns how many bytes fit.
func (t *Transport) EnqueueBytes(p []byte) int {
	n := t.out.EnqueueBytes(p)
	t.stats.TxDropped += uint64(len(p) - n)
	return n
}

// Frame returns the current frame content. See InputFramer.Frame.
func (t *Transport) Frame() []byte {
	return t.in.Frame()
}

// Clear must be called by the frame consumer once it is done with Frame.
func (t *Transport) Clear() {
	t.in.Clear()
}

// Output exposes the transmit buffer.
func (t *Transport) Output() *OutputChannel {
	return t.out
}

// Input exposes the receive framer.
func (t *Transport) Input() *InputFramer {
	return t.in
}

// Stats returns a copy of the counters.
func (t *Transport) Stats() Stats {
	return t.stats
}
