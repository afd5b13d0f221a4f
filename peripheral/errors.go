package peripheral

import "errors"

var (
	// ErrTxBusy is returned by WriteByte while the transmit holding register
	// is still occupied, i.e. when TxReady would have reported false.
	ErrTxBusy = errors.New("transmitter busy")
	// ErrRxEmpty is returned by ReadByte when no byte has been received.
	ErrRxEmpty = errors.New("receive buffer empty")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("peripheral closed")
)
