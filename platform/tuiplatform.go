package platform

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/exp/maps"

	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/logging"
	"lautenbacher.net/so2rbox/peripheral"
	"lautenbacher.net/so2rbox/transport"
)

const transcriptLines = 500

// switchKeys toggle the input lines, in the order of config.InputLines.
var switchKeys = []tcell.Key{
	tcell.KeyF1, tcell.KeyF2, tcell.KeyF3, tcell.KeyF4, tcell.KeyF5, tcell.KeyF6, tcell.KeyF7,
}

type TUIPlatform struct {
	*AbstractPlatform
	console      *peripheral.Console
	terminator   byte
	tviewapp     *tview.Application
	intro        *tview.TextView
	lineView     *tview.TextView
	terminal     *tview.TextView
	hostInput    *tview.InputField
	logView      *tview.TextView
	ossignalChan chan os.Signal
	keyToInput   map[tcell.Key]string
	switchMu     sync.Mutex
	switches     LineState
	transcript   *transcript
	logFlushOnce sync.Once
	stopChan     chan struct{}
	pumpWg       sync.WaitGroup
}

func NewTUIPlatform(conf *c.Config, ossignalchan chan os.Signal) *TUIPlatform {
	inst := &TUIPlatform{
		console:      peripheral.NewConsole(conf.Serial.Mode),
		terminator:   conf.TransportOptions().Terminator,
		ossignalChan: ossignalchan,
		keyToInput:   make(map[tcell.Key]string, len(switchKeys)),
		switches:     make(LineState, len(c.InputLines)),
		transcript:   newTranscript(transcriptLines),
		stopChan:     make(chan struct{}),
	}
	for i, name := range c.InputLines {
		inst.keyToInput[switchKeys[i]] = name
	}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.writeLine, inst.readLine)
	return inst
}

func (s *TUIPlatform) Peripheral() transport.Peripheral {
	return s.console
}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()

	if err := s.sidetone.start(); err != nil {
		slog.Error("Sidetone unavailable", "error", err)
	}

	s.pumpWg.Add(1)
	go s.pump()
	return nil
}

func (s *TUIPlatform) Stop() {
	s.dropOutputs()
	s.sidetone.stop()

	close(s.stopChan)
	s.pumpWg.Wait()

	logging.BufferOutput()
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

// The simulated lines have no electrical side, the state kept by
// AbstractPlatform is all there is.
func (s *TUIPlatform) writeLine(string, bool) {}

func (s *TUIPlatform) readLine(name string) bool {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	return s.switches[name]
}

func (s *TUIPlatform) toggleSwitch(name string) {
	s.switchMu.Lock()
	s.switches[name] = !s.switches[name]
	on := s.switches[name]
	s.switchMu.Unlock()
	slog.Debug("Toggled switch", "line", name, "on", on)
}

// sendHostLine plays the host: the line plus terminator goes onto the wire.
func (s *TUIPlatform) sendHostLine(line string) {
	s.console.Inject(append([]byte(line), s.terminator))
	s.transcript.sent(line)
	s.terminal.SetText(s.transcript.String())
	s.terminal.ScrollToEnd()
}

func (s *TUIPlatform) getIntroText() string {
	line1 := fmt.Sprintf("Hit [blue]F1[-]...[blue]F%d[-] to toggle a switch, type a command and hit [blue]Enter[-] to send it", len(c.InputLines))
	line2 := "Hit [#ff0000]Ctrl-Q[-] to exit, [#ff0000]Ctrl-R[-] to reload, [#ff0000]PgUp/PgDn[-] to scroll logs"
	return line1 + "\n" + line2
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	// --- Intro Pane ---
	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.getIntroText())
	s.intro.SetBorder(true).SetTitle(" SO2R Box Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	// --- Line Pane ---
	s.lineView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.lineView.SetBorder(true).SetTitle(" Lines ").SetTitleColor(tcell.ColorLightBlue)
	s.lineView.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))
	s.lineView.SetText(renderLines(s.lineSnapshot()))

	// --- Host Terminal ---
	s.terminal = tview.NewTextView().
		SetScrollable(true).
		SetWrap(true)
	s.terminal.SetBorder(true).SetTitle(" Host ").SetTitleColor(tcell.ColorLightBlue)
	s.terminal.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	s.hostInput = tview.NewInputField().
		SetLabel("» ").
		SetFieldBackgroundColor(tcell.NewRGBColor(50, 50, 50))
	s.hostInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		s.sendHostLine(s.hostInput.GetText())
		s.hostInput.SetText("")
	})

	// --- Log Pane ---
	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	// --- Layout ---
	hostPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.terminal, 0, 1, false).
		AddItem(s.hostInput, 1, 0, true)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 4, 0, false).
		AddItem(s.lineView, 6, 0, false).
		AddItem(tview.NewFlex().
			AddItem(hostPane, 0, 1, true).
			AddItem(s.logView, 0, 2, false), 0, 1, true)

	// --- Flush logs after first draw ---
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logWriter := tview.ANSIWriter(s.logView)
			logging.SetOutput(logWriter)
			close(s.readyChan) // Signal that the TUI is ready
		})
	})

	s.tviewapp.SetInputCapture(s.handleKey)

	// --- Start TUI ---
	go func() {
		if err := s.tviewapp.SetRoot(layout, true).SetFocus(s.hostInput).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.signal(os.Interrupt)
		}
	}()
}

func (s *TUIPlatform) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if name, exist := s.keyToInput[event.Key()]; exist {
		s.toggleSwitch(name)
		return nil
	}
	switch event.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ:
		s.signal(os.Interrupt)
		return nil
	case tcell.KeyCtrlR:
		s.signal(syscall.SIGHUP)
		return nil
	case tcell.KeyPgUp:
		row, col := s.logView.GetScrollOffset()
		s.logView.ScrollTo(max(row-5, 0), col)
		return nil
	case tcell.KeyPgDn:
		row, col := s.logView.GetScrollOffset()
		s.logView.ScrollTo(row+5, col)
		return nil
	}
	return event
}

func (s *TUIPlatform) signal(sig os.Signal) {
	select {
	case s.ossignalChan <- sig:
	default:
		slog.Warn("Signal dropped, one is already pending", "signal", sig)
	}
}

func (s *TUIPlatform) lineSnapshot() LineSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LineSnapshot{Outputs: s.outputs.Clone(), Inputs: s.inputs.Clone()}
}

// pump moves console output and line changes into the UI.
func (s *TUIPlatform) pump() {
	defer s.pumpWg.Done()
	for {
		select {
		case <-s.stopChan:
			slog.Info("Ending TUI pump go-routine")
			return
		case <-s.console.Output():
			out := s.console.TakeOutput()
			s.tviewapp.QueueUpdateDraw(func() {
				s.transcript.received(out)
				s.terminal.SetText(s.transcript.String())
				s.terminal.ScrollToEnd()
			})
		case <-s.lineEvents.Channel():
			text := renderLines(s.lineEvents.Value())
			s.tviewapp.QueueUpdateDraw(func() {
				s.lineView.SetText(text)
			})
		}
	}
}

// renderLines draws the outputs as LEDs and the inputs as switches with
// their F-key.
func renderLines(snap LineSnapshot) string {
	var buf strings.Builder

	buf.WriteString(" ")
	names := maps.Keys(snap.Outputs)
	slices.Sort(names)
	for i, name := range names {
		if i > 0 && i%7 == 0 {
			buf.WriteString("\n ")
		}
		if snap.Outputs[name] {
			buf.WriteString("[#00ff00]●[-] ")
		} else {
			buf.WriteString("[#505050]○[-] ")
		}
		fmt.Fprintf(&buf, "%-11s", name)
	}

	buf.WriteString("\n\n ")
	for i, name := range c.InputLines {
		if snap.Inputs[name] {
			fmt.Fprintf(&buf, "[blue]F%d[-] [#ffff00]■[-] ", i+1)
		} else {
			fmt.Fprintf(&buf, "[blue]F%d[-] [#505050]□[-] ", i+1)
		}
		fmt.Fprintf(&buf, "%-11s", name)
		if i == 3 {
			buf.WriteString("\n ")
		}
	}
	return buf.String()
}
