package peripheral

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"go.bug.st/serial"
)

// DefaultFifoDepth is the receive FIFO size of the serial peripheral.
const DefaultFifoDepth = 64

// readPoll bounds how long the reader goroutine blocks in Read so that it
// notices Close.
const readPoll = 50 * time.Millisecond

// Port is the subset of serial.Port the peripheral uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a serial port. OpenSerialPort is the default.
type Opener func(path string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real serial port through go.bug.st/serial.
func OpenSerialPort(path string, mode *serial.Mode) (Port, error) {
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Serial adapts a blocking serial port to the register style interface of
// the transport. A reader goroutine plays the receive shift register and
// fills a bounded FIFO; a writer goroutine plays the transmit shift
// register behind a one byte holding register.
type Serial struct {
	path      string
	opts      PortOptions
	fifoDepth int
	open      Opener

	port     Port
	rxMu     sync.Mutex
	rx       deque.Deque[byte]
	tx       chan byte
	stop     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	overruns atomic.Uint64
}

func NewSerial(path string, opts PortOptions, fifoDepth int) *Serial {
	if fifoDepth <= 0 {
		fifoDepth = DefaultFifoDepth
	}
	return &Serial{
		path:      path,
		opts:      opts,
		fifoDepth: fifoDepth,
		open:      OpenSerialPort,
		tx:        make(chan byte, 1),
		stop:      make(chan struct{}),
	}
}

// SetOpener replaces the function used by Configure to open the port.
func (s *Serial) SetOpener(open Opener) {
	s.open = open
}

// Configure opens the port with the configured line settings and starts
// the receiver and transmitter. On an open port it only flushes the
// receive FIFO.
func (s *Serial) Configure() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.port != nil {
		s.rxMu.Lock()
		s.rx.Clear()
		s.rxMu.Unlock()
		return nil
	}
	mode, err := s.opts.SerialMode()
	if err != nil {
		return err
	}
	port, err := s.open(s.path, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.path, err)
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	s.port = port
	s.rx.Grow(s.fifoDepth)

	slog.Info("Serial port configured", "port", s.path, "baud", mode.BaudRate, "databits", mode.DataBits)

	s.wg.Add(2)
	go s.receiver()
	go s.transmitter()
	return nil
}

func (s *Serial) receiver() {
	defer s.wg.Done()
	buf := make([]byte, 256)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		n, err := s.port.Read(buf)
		if err != nil {
			if !s.closed.Load() {
				slog.Error("Serial receive failed", "port", s.path, "error", err)
			}
			return
		}
		s.rxMu.Lock()
		for _, b := range buf[:n] {
			if s.rx.Len() >= s.fifoDepth {
				s.overruns.Add(1)
				continue
			}
			s.rx.PushBack(b)
		}
		s.rxMu.Unlock()
	}
}

func (s *Serial) transmitter() {
	defer s.wg.Done()
	one := make([]byte, 1)
	for {
		select {
		case <-s.stop:
			return
		case b := <-s.tx:
			one[0] = b
			if _, err := s.port.Write(one); err != nil && !s.closed.Load() {
				slog.Error("Serial transmit failed", "port", s.path, "error", err)
			}
		}
	}
}

func (s *Serial) TxReady() bool {
	return s.port != nil && !s.closed.Load() && len(s.tx) == 0
}

func (s *Serial) WriteByte(b byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.tx <- b:
		return nil
	default:
		return ErrTxBusy
	}
}

func (s *Serial) RxAvailable() bool {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	return s.rx.Len() > 0
}

func (s *Serial) ReadByte() (byte, error) {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	if s.rx.Len() == 0 {
		return 0, ErrRxEmpty
	}
	return s.rx.PopFront(), nil
}

// Overruns returns the number of received bytes lost to a full FIFO.
func (s *Serial) Overruns() uint64 {
	return s.overruns.Load()
}

// Close stops the goroutines and closes the port.
func (s *Serial) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stop)
	var err error
	if s.port != nil {
		err = s.port.Close()
	}
	s.wg.Wait()
	return err
}
