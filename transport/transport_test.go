package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lautenbacher.net/so2rbox/peripheral"
)

func newTestTransport(t *testing.T, capacity int) (*Transport, *peripheral.Mock) {
	m := peripheral.NewMock()
	tr, err := New(m, Options{Capacity: capacity, Terminator: '\r'})
	require.NoError(t, err)
	require.NoError(t, tr.Init())
	return tr, m
}

// serviceUntilIdle calls Service until both directions are idle and
// returns how many frames were reported.
func serviceUntilIdle(tr *Transport, m *peripheral.Mock) int {
	frames := 0
	for !tr.out.Empty() && m.TxReady() || m.RxAvailable() {
		if tr.Service() {
			frames++
		}
	}
	return frames
}

func TestNew_RejectsBadCapacity(t *testing.T) {
	for _, c := range []int{0, 2, 3, 48, 100} {
		_, err := New(peripheral.NewMock(), Options{Capacity: c, Terminator: '\r'})
		assert.Error(t, err, "capacity %d", c)
	}
	_, err := New(peripheral.NewMock(), DefaultOptions())
	assert.NoError(t, err)
}

func TestInit_ConfiguresPeripheral(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	assert.Equal(t, 1, m.ConfigureCalls)

	tr.EnqueueString("abc")
	m.Send("xy")
	tr.Service()
	require.NoError(t, tr.Init())
	assert.True(t, tr.Output().Empty())
	assert.Equal(t, 0, tr.Input().Len())
	assert.Equal(t, Stats{}, tr.Stats())

	m.ConfigureErr = errors.New("no uart")
	assert.ErrorContains(t, tr.Init(), "no uart")
}

func TestService_DrainsOneBytePerCall(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	assert.Equal(t, 3, tr.EnqueueString("OK\r"))

	assert.False(t, tr.Service())
	assert.Equal(t, []byte("O"), m.Tx)
	tr.Service()
	tr.Service()
	assert.Equal(t, []byte("OK\r"), m.Tx)
	assert.Equal(t, uint64(3), tr.Stats().TxBytes)
}

func TestService_DrainOnEmptyIsNoop(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	assert.False(t, tr.Service())
	assert.Empty(t, m.Tx)
	assert.Equal(t, 0, tr.out.read)
	assert.Equal(t, 0, tr.out.write)
	assert.Equal(t, Stats{}, tr.Stats())
}

func TestService_WaitsForTxReady(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	tr.Enqueue('A')
	m.Busy = true
	tr.Service()
	assert.Empty(t, m.Tx)
	assert.Equal(t, 1, tr.Output().Len())

	m.Busy = false
	tr.Service()
	assert.Equal(t, []byte("A"), m.Tx)
}

func TestService_OverflowDropsNewest(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	m.Busy = true
	assert.Equal(t, 7, tr.EnqueueString("0123456789"))
	assert.False(t, tr.Enqueue('X'))
	assert.Equal(t, uint64(4), tr.Stats().TxDropped)

	m.Busy = false
	serviceUntilIdle(tr, m)
	assert.Equal(t, []byte("0123456"), m.Tx)
}

func TestService_FIFOWithInterleavedEnqueue(t *testing.T) {
	tr, m := newTestTransport(t, 4)
	want := "interleaved output"
	for i := 0; i < len(want); i++ {
		require.True(t, tr.Enqueue(want[i]))
		tr.Service()
	}
	serviceUntilIdle(tr, m)
	assert.Equal(t, want, string(m.Tx))
}

func TestService_FrameReconstruction(t *testing.T) {
	tr, m := newTestTransport(t, 64)
	m.Send("HI\r")

	assert.False(t, tr.Service())
	assert.False(t, tr.Service())
	assert.True(t, tr.Service())
	assert.Equal(t, "HI", string(tr.Frame()))
	assert.Equal(t, byte(0), tr.in.buf[2])
	assert.Equal(t, uint64(1), tr.Stats().Frames)
}

func TestService_TruncationOnOverflow(t *testing.T) {
	const c = 8
	tr, m := newTestTransport(t, c)
	m.Send("abcdefg") // C-1 bytes
	m.Send("h")
	assert.Equal(t, 0, serviceUntilIdle(tr, m))
	assert.Equal(t, c-2, tr.Input().Len())
	assert.Equal(t, uint64(2), tr.Stats().RxDropped)

	m.Send("\r")
	assert.True(t, tr.Service())
	assert.Equal(t, "abcdef", string(tr.Frame()))
}

func TestService_ClearBetweenFrames(t *testing.T) {
	tr, m := newTestTransport(t, 64)
	m.Send("LONGCOMMAND\r")
	assert.Equal(t, 1, serviceUntilIdle(tr, m))
	tr.Clear()

	m.Send("Z")
	tr.Service()
	assert.Equal(t, 1, tr.Input().Len())
	assert.Equal(t, "Z", string(tr.Frame()))
}

func TestService_StaleFrameHazard(t *testing.T) {
	tr, m := newTestTransport(t, 64)
	m.Send("R1\r")
	assert.Equal(t, 1, serviceUntilIdle(tr, m))
	assert.Equal(t, "R1", string(tr.Frame()))

	m.Send("T2\r")
	assert.Equal(t, 1, serviceUntilIdle(tr, m))
	assert.Equal(t, "R1T2", string(tr.Frame()), "uncleared frame keeps growing")
}

func TestService_BothDirectionsInOneCall(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	tr.Enqueue('>')
	m.Send("\r")
	assert.True(t, tr.Service())
	assert.Equal(t, []byte(">"), m.Tx)
	assert.False(t, m.RxAvailable())
}

func TestService_BackendErrorsAreCounted(t *testing.T) {
	tr, m := newTestTransport(t, 8)
	tr.EnqueueString("ab")
	m.WriteErr = errors.New("tx fault")
	m.Send("x")
	m.ReadErr = errors.New("rx fault")

	assert.False(t, tr.Service())
	stats := tr.Stats()
	assert.Equal(t, uint64(2), stats.Errors)
	assert.Equal(t, uint64(1), stats.TxDropped)
	assert.Equal(t, 1, tr.Output().Len(), "the failed byte is not retried")

	tr.Service()
	assert.Equal(t, []byte("b"), m.Tx)
	assert.Equal(t, "x", string(tr.Frame()))
}
