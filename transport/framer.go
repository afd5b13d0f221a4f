package transport

// FramerState is the state of an InputFramer.
type FramerState int

const (
	Accumulating FramerState = iota
	FrameReady
)

func (s FramerState) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case FrameReady:
		return "frame-ready"
	default:
		return "unknown"
	}
}

// InputFramer collects received bytes into one command line. The terminator
// is never stored: on arrival the buffer is null terminated at the current
// length and the frame is reported complete.
//
// The length is not reset when a frame completes. Bytes fed before Clear are
// appended at buf[length], overwriting the null, so the next frame carries
// the previous one as a prefix. The host protocol relies on the consumer
// clearing after every frame.
type InputFramer struct {
	buf        []byte
	length     int
	terminator byte
	state      FramerState
}

// NewInputFramer creates a framer with capacity bytes of storage. At most
// capacity-2 content bytes are kept per frame.
func NewInputFramer(capacity int, terminator byte) *InputFramer {
	return &InputFramer{
		buf:        make([]byte, capacity),
		terminator: terminator,
	}
}

// Feed processes one received byte and reports whether it completed a
// frame. Bytes beyond the content limit are dropped silently.
func (f *InputFramer) Feed(b byte) bool {
	if b == f.terminator {
		f.buf[f.length] = 0
		f.state = FrameReady
		return true
	}
	if f.length < len(f.buf)-2 {
		f.buf[f.length] = b
		f.length++
	}
	return false
}

// Clear starts a new frame. The buffer contents are left in place and get
// overwritten by the next accumulation.
func (f *InputFramer) Clear() {
	f.length = 0
	f.state = Accumulating
}

// Frame returns the accumulated content bytes. The slice aliases the
// framer's buffer and is only valid until the next Feed or Clear.
func (f *InputFramer) Frame() []byte {
	return f.buf[:f.length]
}

// Len returns the number of content bytes held.
func (f *InputFramer) Len() int {
	return f.length
}

// State reports whether a frame is complete.
func (f *InputFramer) State() FramerState {
	return f.state
}

// MaxLen is the longest frame the framer can hold.
func (f *InputFramer) MaxLen() int {
	return len(f.buf) - 2
}

// Terminator returns the byte that ends a frame.
func (f *InputFramer) Terminator() byte {
	return f.terminator
}
