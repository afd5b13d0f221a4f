package peripheral

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort is a serial port whose receive side is fed by the test.
type fakePort struct {
	mu          sync.Mutex
	incoming    chan []byte
	written     bytes.Buffer
	readTimeout time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	timeout := f.readTimeout
	f.mu.Unlock()
	select {
	case <-f.closed:
		return 0, errors.New("port closed")
	case data := <-f.incoming:
		return copy(p, data), nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = t
	return nil
}

func (f *fakePort) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func newTestSerial(t *testing.T, depth int) (*Serial, *fakePort) {
	port := newFakePort()
	s := NewSerial("/dev/ttyTEST", PortOptions{}, depth)
	var gotMode *serial.Mode
	s.SetOpener(func(path string, mode *serial.Mode) (Port, error) {
		gotMode = mode
		return port, nil
	})
	require.NoError(t, s.Configure())
	t.Cleanup(func() { s.Close() })
	require.NotNil(t, gotMode)
	assert.Equal(t, 9600, gotMode.BaudRate)
	return s, port
}

func TestSerial_Receive(t *testing.T) {
	s, port := newTestSerial(t, 16)

	assert.False(t, s.RxAvailable())
	port.incoming <- []byte("AB")

	assert.Eventually(t, s.RxAvailable, time.Second, time.Millisecond)
	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)
	assert.Eventually(t, s.RxAvailable, time.Second, time.Millisecond)
	b, err = s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('B'), b)

	_, err = s.ReadByte()
	assert.ErrorIs(t, err, ErrRxEmpty)
}

func TestSerial_Overrun(t *testing.T) {
	s, port := newTestSerial(t, 2)

	port.incoming <- []byte("ABCD")
	assert.Eventually(t, func() bool { return s.Overruns() == 2 }, time.Second, time.Millisecond)

	var got []byte
	for s.RxAvailable() {
		b, err := s.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte("AB"), got, "the oldest bytes survive an overrun")
}

func TestSerial_Transmit(t *testing.T) {
	s, port := newTestSerial(t, 16)

	for _, b := range []byte("HI") {
		require.Eventually(t, s.TxReady, time.Second, time.Millisecond)
		require.NoError(t, s.WriteByte(b))
	}
	assert.Eventually(t, func() bool { return port.Written() == "HI" }, time.Second, time.Millisecond)
}

func TestSerial_Close(t *testing.T) {
	s, _ := newTestSerial(t, 16)

	require.NoError(t, s.Close())
	assert.False(t, s.TxReady())
	assert.ErrorIs(t, s.WriteByte('x'), ErrClosed)
	assert.NoError(t, s.Close(), "second Close is a no-op")
}

func TestSerial_ConfigureErrors(t *testing.T) {
	s := NewSerial("/dev/ttyTEST", PortOptions{DataBits: 9}, 0)
	assert.Error(t, s.Configure(), "invalid options must fail")

	s = NewSerial("/dev/ttyTEST", PortOptions{}, 0)
	s.SetOpener(func(path string, mode *serial.Mode) (Port, error) {
		return nil, errors.New("no such device")
	})
	err := s.Configure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyTEST")
}

func TestSerial_ReconfigureFlushesReceiver(t *testing.T) {
	s, port := newTestSerial(t, 16)
	port.incoming <- []byte("junk")
	assert.Eventually(t, s.RxAvailable, time.Second, time.Millisecond)

	require.NoError(t, s.Configure())
	assert.False(t, s.RxAvailable())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Configure(), ErrClosed)
}
