package peripheral

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"lautenbacher.net/so2rbox/util"
)

// Console is an in-memory UART standing in for the host link in the
// simulation. Both directions are paced at the configured baud rate, so
// buffers behave as they would on the wire.
type Console struct {
	mu         sync.Mutex
	wire       deque.Deque[byte]
	byteTime   time.Duration
	nextRx     time.Time
	nextTx     time.Time
	now        func() time.Time
	configured bool
	output     *util.AtomicEvent[[]byte]
}

func NewConsole(opts PortOptions) *Console {
	norm, err := opts.Normalize()
	if err != nil {
		norm, _ = PortOptions{}.Normalize()
	}
	byteTime := time.Second * time.Duration(norm.BitsPerByte()) / time.Duration(norm.BaudRate)
	return &Console{
		byteTime: byteTime,
		now:      time.Now,
		output: util.NewMergingEvent(func(old, event []byte) []byte {
			return append(old, event...)
		}),
	}
}

// SetClock replaces time.Now for pacing.
func (c *Console) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Console) Configure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = true
	c.wire.Clear()
	return nil
}

// Inject puts bytes on the wire from the host side.
func (c *Console) Inject(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range p {
		c.wire.PushBack(b)
	}
}

// Output is signalled whenever transmitted bytes are waiting in TakeOutput.
func (c *Console) Output() <-chan struct{} {
	return c.output.Channel()
}

// TakeOutput returns and clears the bytes transmitted since the last call.
func (c *Console) TakeOutput() []byte {
	return c.output.Take()
}

func (c *Console) TxReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured && !c.now().Before(c.nextTx)
}

func (c *Console) WriteByte(b byte) error {
	c.mu.Lock()
	now := c.now()
	if !c.configured || now.Before(c.nextTx) {
		c.mu.Unlock()
		return ErrTxBusy
	}
	c.nextTx = now.Add(c.byteTime)
	c.mu.Unlock()

	c.output.Send([]byte{b})
	return nil
}

func (c *Console) RxAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured && c.wire.Len() > 0 && !c.now().Before(c.nextRx)
}

func (c *Console) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.configured || c.wire.Len() == 0 || now.Before(c.nextRx) {
		return 0, ErrRxEmpty
	}
	c.nextRx = now.Add(c.byteTime)
	return c.wire.PopFront(), nil
}

// Pending returns the number of injected bytes not yet received.
func (c *Console) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wire.Len()
}
