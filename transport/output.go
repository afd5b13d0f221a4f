package transport

// OutputChannel is a bounded circular byte buffer drained one byte per
// service call. One slot is always kept free so that write == read means
// empty, which leaves Cap() == capacity-1 usable bytes.
type OutputChannel struct {
	buf   []byte
	write int
	read  int
}

// NewOutputChannel creates an empty channel backed by capacity bytes.
func NewOutputChannel(capacity int) *OutputChannel {
	return &OutputChannel{buf: make([]byte, capacity)}
}

func (o *OutputChannel) next(i int) int {
	return (i + 1) % len(o.buf)
}

// Enqueue appends b. When the buffer is full the byte is dropped and false
// is returned; already buffered bytes are never touched.
func (o *OutputChannel) Enqueue(b byte) bool {
	n := o.next(o.write)
	if n == o.read {
		return false
	}
	o.buf[o.write] = b
	o.write = n
	return true
}

// EnqueueBytes enqueues p in order and returns how many bytes were accepted.
// There is no atomicity: a full buffer truncates the tail of p.
func (o *OutputChannel) EnqueueBytes(p []byte) int {
	accepted := 0
	for _, b := range p {
		if o.Enqueue(b) {
			accepted++
		}
	}
	return accepted
}

// EnqueueString is EnqueueBytes for strings.
func (o *OutputChannel) EnqueueString(s string) int {
	accepted := 0
	for i := 0; i < len(s); i++ {
		if o.Enqueue(s[i]) {
			accepted++
		}
	}
	return accepted
}

// pop removes the oldest byte.
func (o *OutputChannel) pop() (byte, bool) {
	if o.read == o.write {
		return 0, false
	}
	b := o.buf[o.read]
	o.read = o.next(o.read)
	return b, true
}

// Len returns the number of buffered bytes.
func (o *OutputChannel) Len() int {
	return (o.write - o.read + len(o.buf)) % len(o.buf)
}

// Cap returns the usable capacity.
func (o *OutputChannel) Cap() int {
	return len(o.buf) - 1
}

// Free returns how many more bytes can be enqueued right now.
func (o *OutputChannel) Free() int {
	return o.Cap() - o.Len()
}

// Empty reports whether nothing is waiting to be sent.
func (o *OutputChannel) Empty() bool {
	return o.read == o.write
}

// Full reports whether the next Enqueue would drop.
func (o *OutputChannel) Full() bool {
	return o.next(o.write) == o.read
}

// Reset discards all buffered bytes.
func (o *OutputChannel) Reset() {
	o.write = 0
	o.read = 0
}
