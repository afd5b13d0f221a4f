package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feed(f *InputFramer, s string) (completed int) {
	for i := 0; i < len(s); i++ {
		if f.Feed(s[i]) {
			completed++
		}
	}
	return completed
}

func TestInputFramer_Frame(t *testing.T) {
	f := NewInputFramer(64, '\r')

	assert.False(t, f.Feed('H'))
	assert.False(t, f.Feed('I'))
	assert.True(t, f.Feed('\r'))

	assert.Equal(t, "HI", string(f.Frame()))
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, byte(0), f.buf[2], "frame must be null terminated")
	assert.Equal(t, FrameReady, f.State())
}

func TestInputFramer_EmptyFrame(t *testing.T) {
	f := NewInputFramer(8, '\r')
	assert.True(t, f.Feed('\r'))
	assert.Empty(t, f.Frame())
}

func TestInputFramer_Truncation(t *testing.T) {
	const c = 16
	f := NewInputFramer(c, '\r')

	for i := 0; i < c-1; i++ {
		assert.False(t, f.Feed(byte('a'+i)))
	}
	assert.Equal(t, c-2, f.Len())
	assert.False(t, f.Feed('Z'))
	assert.Equal(t, c-2, f.Len(), "extra byte must be dropped")

	assert.True(t, f.Feed('\r'))
	assert.Equal(t, "abcdefghijklmn", string(f.Frame()))
	assert.Equal(t, byte(0), f.buf[c-2])
}

func TestInputFramer_ClearResets(t *testing.T) {
	f := NewInputFramer(64, '\r')
	assert.Equal(t, 1, feed(f, "RX2\r"))

	f.Clear()
	assert.Equal(t, Accumulating, f.State())
	f.Feed('T')
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, "T", string(f.Frame()))
}

func TestInputFramer_StaleFrameAppends(t *testing.T) {
	f := NewInputFramer(64, '\r')
	assert.Equal(t, 1, feed(f, "AB\r"))

	// No Clear: the next bytes land right after the old frame.
	assert.Equal(t, 1, feed(f, "CD\r"))
	assert.Equal(t, "ABCD", string(f.Frame()))
	assert.Equal(t, FrameReady, f.State())

	// A bare terminator re-reports the same frame.
	assert.True(t, f.Feed('\r'))
	assert.Equal(t, "ABCD", string(f.Frame()))
}

func TestInputFramer_CustomTerminator(t *testing.T) {
	f := NewInputFramer(8, ';')
	assert.Equal(t, byte(';'), f.Terminator())
	assert.Equal(t, 6, f.MaxLen())
	assert.Equal(t, 1, feed(f, "a\rb;"))
	assert.Equal(t, "a\rb", string(f.Frame()))
}
