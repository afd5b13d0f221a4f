package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/peripheral"
	"lautenbacher.net/so2rbox/transport"
)

func TestEchoHandler(t *testing.T) {
	m := peripheral.NewMock()
	tr, err := transport.New(m, transport.Options{Capacity: 8, Terminator: '\r'})
	require.NoError(t, err)
	require.NoError(t, tr.Init())

	EchoHandler{Terminator: '\r'}.HandleFrame([]byte("RX2"), tr)
	assert.Equal(t, 4, tr.Output().Len())

	// Only 3 bytes left, the echo is cut short.
	EchoHandler{Terminator: '\r'}.HandleFrame([]byte("STEREO"), tr)
	assert.True(t, tr.Output().Full())
	assert.Equal(t, uint64(4), tr.Stats().TxDropped)
}

func TestNewHandler(t *testing.T) {
	h, err := NewHandler(c.ModeLog, '\r')
	require.NoError(t, err)
	assert.IsType(t, LogHandler{}, h)
	_, ok := h.(InputHandler)
	assert.True(t, ok)

	h, err = NewHandler(c.ModeEcho, ';')
	require.NoError(t, err)
	assert.Equal(t, EchoHandler{Terminator: ';'}, h)

	_, err = NewHandler("dispatch", '\r')
	assert.Error(t, err)
}
