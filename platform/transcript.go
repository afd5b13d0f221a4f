package platform

import (
	"fmt"
	"strings"

	"github.com/gammazero/deque"
)

// transcript keeps the last lines exchanged with the simulated host.
// Control characters other than line ends are shown as hex escapes.
type transcript struct {
	lines    deque.Deque[string]
	partial  strings.Builder
	maxLines int
	lastCR   bool
}

func newTranscript(maxLines int) *transcript {
	return &transcript{maxLines: maxLines}
}

// received appends bytes sent by the box, breaking lines on CR or LF.
func (t *transcript) received(p []byte) {
	for _, b := range p {
		switch {
		case b == '\n' && t.lastCR:
			// second half of CRLF
		case b == '\r' || b == '\n':
			t.push("« " + t.partial.String())
			t.partial.Reset()
		case b < 0x20 || b >= 0x7f:
			fmt.Fprintf(&t.partial, "\\x%02x", b)
		default:
			t.partial.WriteByte(b)
		}
		t.lastCR = b == '\r'
	}
}

// sent records a line typed by the user.
func (t *transcript) sent(line string) {
	t.push("» " + line)
}

func (t *transcript) push(line string) {
	t.lines.PushBack(line)
	for t.lines.Len() > t.maxLines {
		t.lines.PopFront()
	}
}

func (t *transcript) String() string {
	var buf strings.Builder
	for i := 0; i < t.lines.Len(); i++ {
		buf.WriteString(t.lines.At(i))
		buf.WriteByte('\n')
	}
	if t.partial.Len() > 0 {
		buf.WriteString("« ")
		buf.WriteString(t.partial.String())
	}
	return buf.String()
}
