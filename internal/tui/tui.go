// Package tui renders a live generation stream in the terminal: the prose
// sections stack in a left panel while the document code grows in a
// scrollable right panel. The stream controller pushes updates in through a
// Sink adapter; the model itself never touches the network.
package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prompt-lab/plab/internal/protocol"
	"github.com/prompt-lab/plab/internal/stream"
)

// Options configures one TUI run.
type Options struct {
	// Title is shown in the status bar, typically the prompt being run.
	Title string
	// PreviewURL, if non-empty, is shown in the status bar once the stream
	// completes so the user can open the rendered document.
	PreviewURL string
	// Cancel aborts the in-flight stream. Invoked on ctrl+c.
	Cancel func()
	// Start runs the stream, feeding updates to sink. It is invoked once,
	// on its own goroutine, and must block until the stream ends.
	Start func(sink stream.Sink) error
}

// messages sent by the sink adapter

type regionMsg struct {
	sec  protocol.Section
	text string
}

type documentMsg struct{ text string }

type appendMsg struct{ text string }

type restartMsg struct{}

type doneMsg struct{ snap protocol.Snapshot }

type errMsg struct{ err error }

type streamClosedMsg struct{ err error }

// programSink adapts stream.Sink onto a running bubbletea program. Send is
// safe from the stream goroutine.
type programSink struct {
	p *tea.Program
}

func (s *programSink) Region(sec protocol.Section, text string) {
	s.p.Send(regionMsg{sec: sec, text: text})
}

func (s *programSink) Document(text string) { s.p.Send(documentMsg{text: text}) }
func (s *programSink) Append(text string)   { s.p.Send(appendMsg{text: text}) }
func (s *programSink) Restart()             { s.p.Send(restartMsg{}) }
func (s *programSink) Done(snap protocol.Snapshot) {
	s.p.Send(doneMsg{snap: snap})
}
func (s *programSink) StreamError(err error) { s.p.Send(errMsg{err: err}) }

type streamState int

const (
	stateStreaming streamState = iota
	stateDone
	stateFailed
	stateCancelled
)

type model struct {
	opts Options

	spin     spinner.Model
	doc      viewport.Model
	sections map[protocol.Section]string
	document string
	restarts int
	state    streamState
	err      error
	copied   bool

	width   int
	height  int
	ready   bool
	stickDn bool // follow document growth until the user scrolls
}

func initialModel(opts Options) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return model{
		opts:     opts,
		spin:     sp,
		doc:      viewport.New(0, 0),
		sections: make(map[protocol.Section]string),
		stickDn:  true,
	}
}

// Run starts the TUI, launches the stream, and blocks until the user quits.
// Returns the stream error, if any.
func Run(opts Options) error {
	m := initialModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		sink := &programSink{p: p}
		if err := opts.Start(sink); err != nil {
			p.Send(streamClosedMsg{err: err})
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	fm := finalModel.(model)
	return fm.err
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.doc = viewport.New(m.docWidth(), m.panelHeight())
		m.doc.SetContent(m.document)
		if m.stickDn {
			m.doc.GotoBottom()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.state == stateStreaming && m.opts.Cancel != nil {
				m.opts.Cancel()
			}
			return m, tea.Quit

		case key.Matches(msg, keys.Cancel):
			if m.state == stateStreaming {
				if m.opts.Cancel != nil {
					m.opts.Cancel()
				}
				m.state = stateCancelled
				return m, nil
			}
			return m, tea.Quit

		case key.Matches(msg, keys.Copy):
			if m.document != "" {
				if err := clipboard.WriteAll(m.document); err == nil {
					m.copied = true
				}
			}
			return m, nil

		case key.Matches(msg, keys.DocUp):
			m.stickDn = false
			m.doc.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.DocDn):
			m.doc.LineDown(m.panelHeight() / 2)
			if m.doc.AtBottom() {
				m.stickDn = true
			}
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.stickDn = false
			m.doc.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.doc.LineDown(m.panelHeight())
			if m.doc.AtBottom() {
				m.stickDn = true
			}
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case regionMsg:
		if msg.sec == protocol.SectionDocument {
			return m, nil // rendered via documentMsg
		}
		m.sections[msg.sec] = msg.text
		return m, nil

	case documentMsg:
		m.document = msg.text
		m.doc.SetContent(m.document)
		if m.stickDn {
			m.doc.GotoBottom()
		}
		return m, nil

	case appendMsg:
		m.document += msg.text
		m.doc.SetContent(m.document)
		if m.stickDn {
			m.doc.GotoBottom()
		}
		return m, nil

	case restartMsg:
		m.restarts++
		m.sections = make(map[protocol.Section]string)
		m.document = ""
		m.doc.SetContent("")
		m.stickDn = true
		return m, nil

	case doneMsg:
		m.state = stateDone
		return m, nil

	case errMsg:
		m.state = stateFailed
		m.err = msg.err
		return m, nil

	case streamClosedMsg:
		// Errors already arrive via errMsg; this only covers a Start that
		// failed before the sink saw anything.
		if msg.err != nil && m.state == stateStreaming {
			m.state = stateFailed
			m.err = msg.err
		}
		return m, nil
	}

	return m, nil
}

var sectionOrder = []protocol.Section{
	protocol.SectionAnalysis,
	protocol.SectionChanges,
	protocol.SectionInstructions,
}

func (m model) View() string {
	if !m.ready {
		return ""
	}

	left := m.renderSections(m.sectionWidth(), m.panelHeight())
	leftPanel := stylePanelBorder.
		Width(m.sectionWidth()).
		Height(m.panelHeight()).
		Render(left)

	m.doc.Width = m.docWidth()
	m.doc.Height = m.panelHeight()
	docPanel := styleActiveBorder.
		Width(m.docWidth()).
		Height(m.panelHeight()).
		Render(m.doc.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, docPanel)
	return lipgloss.JoinVertical(lipgloss.Left, panels, m.statusBar())
}

func (m model) renderSections(width, height int) string {
	var b strings.Builder
	any := false
	for _, sec := range sectionOrder {
		text, ok := m.sections[sec]
		if !ok || text == "" {
			continue
		}
		any = true
		b.WriteString(styleSectionTitle.Render(strings.ToUpper(sec.String())))
		b.WriteString("\n")
		b.WriteString(styleSectionBody.Width(width).Render(text))
		b.WriteString("\n\n")
	}
	if !any {
		return styleSectionEmpty.Render("waiting for response...")
	}
	out := strings.TrimRight(b.String(), "\n")
	// Keep the tail visible when the panel overflows.
	lines := strings.Split(out, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func (m model) statusBar() string {
	var parts []string

	switch m.state {
	case stateStreaming:
		parts = append(parts, m.spin.View()+"streaming")
	case stateCancelled:
		parts = append(parts, styleStatusRestart.Render("cancelled"))
	case stateDone:
		parts = append(parts, styleStatusDone.Render("done"))
	case stateFailed:
		msg := "stream failed"
		if m.err != nil {
			msg = m.err.Error()
		}
		parts = append(parts, styleStatusError.Render(msg))
	}

	if m.restarts > 0 {
		parts = append(parts, styleStatusRestart.Render(
			fmt.Sprintf("restarted x%d", m.restarts)))
	}
	if m.opts.Title != "" {
		parts = append(parts, truncate(m.opts.Title, 40))
	}
	if m.state == stateDone && m.opts.PreviewURL != "" {
		parts = append(parts, "preview: "+m.opts.PreviewURL)
	}
	if m.copied {
		parts = append(parts, "copied")
	}
	parts = append(parts, "y copy | C-c cancel | q quit")

	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func (m model) sectionWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) docWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract status bar (1) + borders (2).
	h := m.height - 3
	if h < 5 {
		h = 5
	}
	return h
}
