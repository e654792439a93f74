package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

type assistantStatus int

const (
	statusConnecting assistantStatus = iota
	statusReady
	statusListening
	statusWaiting
	statusError
)

func (s assistantStatus) String() string {
	switch s {
	case statusReady:
		return "ready"
	case statusListening:
		return "listening"
	case statusWaiting:
		return "thinking"
	case statusError:
		return "error"
	}
	return "connecting"
}

func (s assistantStatus) busy() bool {
	return s == statusConnecting || s == statusListening || s == statusWaiting
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	speechStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	cardStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Background(lipgloss.Color("236")).Padding(0, 1)
	miniStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// uiController is what the terminal UI asks of the orchestrator. Every
// method is asynchronous so key handling never waits on the event loop.
type uiController interface {
	Assist(query string)
	ForceStop()
	SetMiniMode(enabled bool)
}

// eventMsg delivers an orchestrator event to the UI.
type eventMsg struct{ event events.Event }

type uiModel struct {
	controller uiController

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries   []transcript.Entry
	speech    string
	htmlCard  string
	status    assistantStatus
	lastError string
	miniMode  bool

	width  int
	height int
}

func newUIModel(controller uiController, history []transcript.Entry) uiModel {
	input := textinput.New()
	input.Placeholder = "Ask something, or press enter to talk"
	input.Prompt = "› "
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := uiModel{
		controller: controller,
		input:      input,
		viewport:   viewport.New(80, 20),
		spinner:    spin,
		entries:    history,
		width:      80,
		height:     24,
	}
	m.refreshTranscript()
	return m
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.controller.ForceStop()
			return m, nil
		case tea.KeyCtrlT:
			m.controller.SetMiniMode(!m.miniMode)
			return m, nil
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.lastError = ""
			m.controller.Assist(query)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case eventMsg:
		m.applyEvent(msg.event)
	}

	return m, tea.Batch(cmds...)
}

func (m *uiModel) applyEvent(event events.Event) {
	switch e := event.(type) {
	case events.Ready:
		m.status = statusReady
	case events.Loading:
		m.status = statusListening
	case events.Waiting:
		m.status = statusWaiting
	case events.AssistantError:
		m.status = statusError
		if e.Err != nil {
			m.lastError = e.Err.Error()
		}
	case events.SpeechBufferUpdated:
		m.speech = e.Text()
	case events.ResponseHTML:
		m.htmlCard = e.HTML
	case events.TranscriptEntryAdded:
		m.entries = append(m.entries, e.Entry)
		if e.Entry.Direction == transcript.Outgoing {
			m.htmlCard = ""
		}
		m.refreshTranscript()
	case events.MiniModeChanged:
		m.miniMode = e.Enabled
		m.resize()
	case events.SessionEnded:
		if m.status == statusListening {
			m.status = statusReady
		}
	}
}

func (m *uiModel) resize() {
	// status, speech and input lines
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-3, 1)
	m.input.Width = max(m.width-4, 10)
	m.refreshTranscript()
}

func (m *uiModel) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m uiModel) renderTranscript() string {
	wrapAt := max(m.width-6, 20)

	var b strings.Builder
	for _, entry := range m.entries {
		label := assistantStyle.Render("ema")
		if entry.Direction == transcript.Outgoing {
			label = userStyle.Render("you")
		}
		fmt.Fprintf(&b, "%s %s\n", label, wordwrap.String(entry.Text, wrapAt))
		if entry.Card != nil {
			fmt.Fprintln(&b, cardStyle.Render(fmt.Sprintf("    [%s] %s", entry.Card.Kind, entry.Card.Title)))
		}
		for _, link := range entry.Links {
			fmt.Fprintln(&b, cardStyle.Render("    "+link))
		}
	}
	if m.htmlCard != "" {
		fmt.Fprintln(&b, cardStyle.Render(fmt.Sprintf("    [screen] %d bytes of HTML", len(m.htmlCard))))
	}
	return b.String()
}

func (m uiModel) statusLine() string {
	indicator := "•"
	if m.status.busy() {
		indicator = m.spinner.View()
	}
	line := indicator + " " + m.status.String()
	if m.status == statusError && m.lastError != "" {
		line += " " + errorStyle.Render(m.lastError)
	}
	return line
}

// latestLine is what mini mode shows: the live speech if any, otherwise the
// last transcript entry.
func (m uiModel) latestLine() string {
	if m.speech != "" {
		return speechStyle.Render(m.speech)
	}
	if len(m.entries) > 0 {
		return m.entries[len(m.entries)-1].Text
	}
	return ""
}

func (m uiModel) View() string {
	if m.miniMode {
		width := uint(max(m.width-6, 10))
		return miniStyle.Render(truncate.StringWithTail(m.statusLine()+"  "+m.latestLine(), width, "…"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		speechStyle.Render(m.speech),
		m.input.View(),
		statusStyle.Render(m.statusLine()),
	)
}
