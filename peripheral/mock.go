package peripheral

// Mock is a scriptable peripheral for tests. It is not safe for concurrent
// use, just like the transport driving it.
type Mock struct {
	// Rx holds bytes the "host" has sent and that are not yet read.
	Rx []byte
	// Tx captures every transmitted byte.
	Tx []byte
	// Busy makes TxReady report false.
	Busy bool

	// ReadErr and WriteErr are returned once by the next ReadByte/WriteByte.
	ReadErr      error
	WriteErr     error
	ConfigureErr error

	ConfigureCalls int
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Configure() error {
	m.ConfigureCalls++
	return m.ConfigureErr
}

func (m *Mock) TxReady() bool {
	return !m.Busy
}

func (m *Mock) RxAvailable() bool {
	return len(m.Rx) > 0
}

func (m *Mock) WriteByte(b byte) error {
	if m.WriteErr != nil {
		err := m.WriteErr
		m.WriteErr = nil
		return err
	}
	if m.Busy {
		return ErrTxBusy
	}
	m.Tx = append(m.Tx, b)
	return nil
}

func (m *Mock) ReadByte() (byte, error) {
	if m.ReadErr != nil {
		err := m.ReadErr
		m.ReadErr = nil
		return 0, err
	}
	if len(m.Rx) == 0 {
		return 0, ErrRxEmpty
	}
	b := m.Rx[0]
	m.Rx = m.Rx[1:]
	return b, nil
}

// Send queues host bytes for reception.
func (m *Mock) Send(s string) {
	m.Rx = append(m.Rx, s...)
}
