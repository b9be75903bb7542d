package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-beatgrid/debug"
	"go-beatgrid/midi"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
	"go-beatgrid/theme"
	"go-beatgrid/widgets"
)

const tempoStep = 5

type Model struct {
	Session   *sequencer.Session
	Library   *pattern.Library
	Surface   *midi.Surface       // optional, mirrors the Launchpad
	DeviceMgr *midi.DeviceManager // optional
	Theme     *theme.Theme

	// PatternDir receives saved patterns; empty disables saving
	PatternDir string

	frames <-chan sequencer.Frame
	taps   <-chan sequencer.CapturedNote

	keys     keyMap
	help     help.Model
	frame    sequencer.Frame
	voice    int
	step     int
	status   string
	quitting bool
}

// FrameMsg carries a UI frame from the session.
type FrameMsg sequencer.Frame

// TapMsg reports a tap made on a hardware controller.
type TapMsg sequencer.CapturedNote

// DispatchErrMsg reports a trigger the sound backend refused.
type DispatchErrMsg struct{ Err error }

// NewModel creates the UI. frames usually comes from Session.Subscribe; taps
// may be nil.
func NewModel(sess *sequencer.Session, lib *pattern.Library, th *theme.Theme, frames <-chan sequencer.Frame, taps <-chan sequencer.CapturedNote) Model {
	if th == nil {
		th = theme.New(nil)
	}
	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(th.FG())
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(th.Muted())
	h.Styles.FullKey = h.Styles.ShortKey
	h.Styles.FullDesc = h.Styles.ShortDesc
	return Model{
		Session: sess,
		Library: lib,
		Theme:   th,
		frames:  frames,
		taps:    taps,
		keys:    defaultKeys(),
		help:    h,
		frame:   sess.Latest(),
	}
}

func ListenForFrames(frames <-chan sequencer.Frame) tea.Cmd {
	if frames == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return FrameMsg(f)
	}
}

func ListenForTaps(taps <-chan sequencer.CapturedNote) tea.Cmd {
	if taps == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-taps
		if !ok {
			return nil
		}
		return TapMsg(n)
	}
}

func ListenForErrors(errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return DispatchErrMsg{Err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForFrames(m.frames),
		ListenForTaps(m.taps),
		ListenForErrors(m.Session.Errors()),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case FrameMsg:
		m.frame = sequencer.Frame(msg)
		return m, ListenForFrames(m.frames)

	case TapMsg:
		m.status = fmt.Sprintf("tap %s at %s", m.voiceName(msg.Voice), msg.At)
		return m, ListenForTaps(m.taps)

	case DispatchErrMsg:
		m.status = msg.Err.Error()
		return m, ListenForErrors(m.Session.Errors())
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.Session
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		s.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Left):
		m.step = (m.step + s.Steps() - 1) % s.Steps()
	case key.Matches(msg, m.keys.Right):
		m.step = (m.step + 1) % s.Steps()
	case key.Matches(msg, m.keys.Up):
		m.voice = (m.voice + s.Voices() - 1) % s.Voices()
	case key.Matches(msg, m.keys.Down):
		m.voice = (m.voice + 1) % s.Voices()

	case key.Matches(msg, m.keys.Toggle):
		if _, err := s.Toggle(m.voice, m.step); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.ClearVoice):
		if err := s.ClearVoice(m.voice); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.ClearTaps):
		s.ClearCaptures()
		m.status = "taps cleared"

	case key.Matches(msg, m.keys.Play):
		if s.Running() {
			s.Stop()
		} else if err := s.Start(); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.Faster):
		s.SetTempo(s.Tempo() + tempoStep)
	case key.Matches(msg, m.keys.Slower):
		s.SetTempo(s.Tempo() - tempoStep)

	case key.Matches(msg, m.keys.PrevPattern):
		m.cyclePattern(-1)
	case key.Matches(msg, m.keys.NextPattern):
		m.cyclePattern(1)

	case key.Matches(msg, m.keys.Save):
		m.save()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	default:
		for voice, b := range m.keys.Taps {
			if key.Matches(msg, b) {
				m.tap(voice)
			}
		}
	}
	return m, nil
}

func (m *Model) tap(voice int) {
	note, err := m.Session.Tap(voice)
	if err != nil {
		m.status = fmt.Sprintf("tap %s: %v", m.voiceName(voice), err)
		return
	}
	m.status = fmt.Sprintf("tap %s at %s", m.voiceName(voice), note.At)
}

func (m *Model) cyclePattern(dir int) {
	if m.Library == nil {
		return
	}
	names := m.Library.Names()
	if len(names) == 0 {
		return
	}
	cur := 0
	for i, n := range names {
		if n == m.Session.PatternName() {
			cur = i
			break
		}
	}
	next := names[(cur+dir+len(names))%len(names)]
	p, err := m.Library.Get(next)
	if err == nil {
		err = m.Session.LoadPattern(p)
	}
	if err != nil {
		debug.Warn("tui", "load pattern %q: %v", next, err)
		m.status = err.Error()
		return
	}
	m.status = "pattern " + next
}

func (m *Model) save() {
	if m.PatternDir == "" {
		m.status = "no pattern directory configured"
		return
	}
	name := m.Session.PatternName()
	if name == "" {
		name = "untitled"
	}
	p := m.Session.CurrentPattern(name)
	path, err := pattern.Save(m.PatternDir, p, time.Now())
	if err != nil {
		debug.Warn("tui", "save pattern: %v", err)
		m.status = err.Error()
		return
	}
	if m.Library != nil {
		m.Library.Add(p)
	}
	m.status = "saved " + path
}

func (m Model) voiceName(voice int) string {
	names := m.Session.VoiceNames()
	if voice >= 0 && voice < len(names) && names[voice] != "" {
		return names[voice]
	}
	return fmt.Sprintf("voice %d", voice+1)
}

// gridView assembles what the grid widget draws.
func (m Model) gridView() widgets.GridView {
	snap := m.Session.Snapshot()
	steps := snap.Steps()
	v := widgets.GridView{
		Names:    m.Session.VoiceNames(),
		Rows:     snap.Rows(),
		Playhead: m.frame.Step,
		Voice:    m.voice,
		Step:     m.step,
	}
	for _, notes := range m.Session.Captures() {
		tapped := make(map[int]bool, len(notes))
		for _, n := range notes {
			tapped[n.At.Sixteenths()%steps] = true
		}
		v.Tapped = append(v.Tapped, tapped)
	}
	return v
}

// legend explains the Launchpad mirror.
func (m Model) legend() string {
	names := m.Session.VoiceNames()
	lines := make([]string, 0, len(names)+1)
	for v := range names {
		lines = append(lines, widgets.RenderLegendItem(m.Theme.VoiceRGB(v, len(names)), m.voiceName(v), "scene pad taps"))
	}
	lines = append(lines, widgets.RenderLegendItem([3]uint8{0, 255, 0}, "play", "top-left starts and stops"))
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	statusStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if m.frame.Running {
		playState = "PLAY"
	}
	deviceStatus := ""
	if m.DeviceMgr != nil {
		if n := len(m.DeviceMgr.Controllers()); n > 0 {
			deviceStatus = fmt.Sprintf("  LP:%d", n)
		}
	}
	header := headerStyle.Render(fmt.Sprintf("beatgrid  %s  %3.0fbpm  %s  %s%s",
		playState, m.Session.Tempo(), m.frame.Position, m.Session.PatternName(), deviceStatus))

	body := widgets.RenderGrid(m.Theme, m.gridView())
	if m.Surface != nil {
		pads := widgets.RenderLaunchpad(m.Surface.LEDs(m.frame))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "    ", pads+"\n\n"+m.legend())
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(body)
	out.WriteString("\n\n")
	if m.status != "" {
		out.WriteString(statusStyle.Render(m.status))
		out.WriteString("\n")
	}
	out.WriteString(m.help.View(m.keys))
	return out.String()
}
