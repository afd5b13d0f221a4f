package peripheral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_NormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}, opts)
}

func TestPortOptions_NormalizeParity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"none", "N"},
		{" even ", "E"},
		{"o", "O"},
	}
	for _, tt := range tests {
		opts, err := PortOptions{Parity: tt.in}.Normalize()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, opts.Parity, tt.in)
	}
}

func TestPortOptions_NormalizeErrors(t *testing.T) {
	_, err := PortOptions{DataBits: 9}.Normalize()
	assert.ErrorContains(t, err, "data bits")

	_, err = PortOptions{StopBits: 3}.Normalize()
	assert.ErrorContains(t, err, "stop bits")

	_, err = PortOptions{Parity: "mark"}.Normalize()
	assert.ErrorContains(t, err, "parity")
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 19200, StopBits: 2, Parity: "E"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 19200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
}

func TestPortOptions_BitsPerByte(t *testing.T) {
	assert.Equal(t, 10, PortOptions{}.BitsPerByte())
	assert.Equal(t, 12, PortOptions{StopBits: 2, Parity: "O"}.BitsPerByte())
}
