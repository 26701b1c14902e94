package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	ConfirmView
	ConvertView
	ResultView
)

// defaultDownloadPath matches the archive name the backend serves.
const defaultDownloadPath = "MyWindowsService.zip"

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *session.Controller
	converter  services.Converter

	width  int
	height int

	input textinput.Model
	kind  session.InputKind

	sess     session.Session
	logView  viewport.Model
	logReady bool

	downloadPath string
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, converter services.Converter, controller *session.Controller) *Model {
	input := textinput.New()
	input.Placeholder = "https://github.com/owner/vb6-project"
	input.Focus()
	input.CharLimit = 512
	input.Width = 60

	return &Model{
		ctx:        ctx,
		view:       InputView,
		controller: controller,
		converter:  converter,
		input:      input,
		kind:       session.InputRepo,
		sess:       controller.Session(),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the text input cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := msg.Height - 16
		if logHeight < 4 {
			logHeight = 4
		}
		if !m.logReady {
			m.logView = viewport.New(msg.Width-4, logHeight)
			m.logReady = true
		} else {
			m.logView.Width = msg.Width - 4
			m.logView.Height = logHeight
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ConvertView:
			return m.handleConvertKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case sessionUpdateMsg:
		m.sess = session.Session(msg)
		m.syncLog()
		return m, m.waitForUpdate()

	case sessionDoneMsg:
		m.sess = msg.final
		m.err = msg.err
		m.syncLog()
		m.view = ResultView
		return m, nil

	case startFailedMsg:
		m.err = msg.err
		m.view = InputView
		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.downloadPath = msg.path
		}
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	case ConvertView:
		return m.renderConvert()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		m.toggleKind()
		return m, nil
	case "enter":
		if strings.TrimSpace(m.input.Value()) == "" {
			return m, nil
		}
		m.err = nil
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = InputView
		return m, nil
	case "y":
		m.view = ConvertView
		return m, m.startConversion()
	}
	return m, nil
}

func (m *Model) handleConvertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controller.Close()
		return m, tea.Quit
	case "esc":
		m.controller.Reset()
		m.sess = m.controller.Session()
		m.err = nil
		m.view = InputView
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		if m.sess.Phase == session.PhaseCompleted && m.downloadPath == "" {
			return m, m.downloadResult()
		}
		return m, nil
	case "r":
		m.controller.Reset()
		m.sess = m.controller.Session()
		m.downloadPath = ""
		m.err = nil
		m.view = InputView
		return m, nil
	}
	return m, nil
}

func (m *Model) toggleKind() {
	if m.kind == session.InputRepo {
		m.kind = session.InputFile
		m.input.Placeholder = "./legacy-project.zip"
	} else {
		m.kind = session.InputRepo
		m.input.Placeholder = "https://github.com/owner/vb6-project"
	}
}

func (m *Model) buildInput() session.Input {
	value := strings.TrimSpace(m.input.Value())
	if m.kind == session.InputFile {
		return session.FileInput(value)
	}
	return session.RepoInput(value)
}

// startConversion hands the selected input to the controller and begins
// pumping its update channel.
func (m *Model) startConversion() tea.Cmd {
	if err := m.controller.Start(m.ctx, m.buildInput()); err != nil {
		return func() tea.Msg { return startFailedMsg{err: err} }
	}
	return m.waitForUpdate()
}

// waitForUpdate reads one snapshot from the controller. A closed channel
// means the run reached a terminal phase.
func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.controller.Updates()
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sessionDoneMsg{final: m.controller.Session(), err: m.controller.Err()}
		}
		return sessionUpdateMsg(snap)
	}
}

func (m *Model) downloadResult() tea.Cmd {
	result := m.sess.Result
	ctx := m.ctx
	converter := m.converter

	return func() tea.Msg {
		if result == nil || result.ConversionID == "" {
			return downloadDoneMsg{err: fmt.Errorf("no conversion result to download")}
		}

		f, err := os.Create(defaultDownloadPath)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		defer f.Close()

		if _, err := converter.DownloadResult(ctx, result.ConversionID, f); err != nil {
			os.Remove(defaultDownloadPath)
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: defaultDownloadPath}
	}
}

func (m *Model) syncLog() {
	if !m.logReady {
		return
	}
	lines := make([]string, 0, len(m.sess.Log))
	for _, entry := range m.sess.Log {
		lines = append(lines, fmt.Sprintf("%s %s", entry.Timestamp.Format("15:04:05"), entry.Message))
	}
	atBottom := m.logView.AtBottom()
	m.logView.SetContent(strings.Join(lines, "\n"))
	if atBottom {
		m.logView.GotoBottom()
	}
}

func (m *Model) renderInput() string {
	title := styles.title.Render("VB6 to .NET Conversion")

	kind := "GitHub repository"
	if m.kind == session.InputFile {
		kind = "ZIP file"
	}

	var errLine string
	if m.err != nil {
		errLine = styles.err.Render(fmt.Sprintf("\n%v\n", m.err))
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\nSource (%s):\n\n%s\n%s\n%s", title, kind, m.input.View(), errLine, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Start conversion?")
	info := fmt.Sprintf("\nSource: %s\nKind: %s\n", strings.TrimSpace(m.input.Value()), m.kind)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderConvert() string {
	title := styles.title.Render("Converting")

	var stages strings.Builder
	for _, stage := range m.sess.Stages {
		var glyph string
		switch stage.Status {
		case session.StageCompleted:
			glyph = styles.ok.Render("✓")
		case session.StageRunning:
			glyph = styles.warn.Render("▶")
		case session.StageFailed:
			glyph = styles.err.Render("✗")
		default:
			glyph = styles.help.Render("·")
		}
		stages.WriteString(fmt.Sprintf("  %s %s\n", glyph, stage.ID))
	}

	agent := ""
	if m.sess.CurrentAgent != "" {
		agent = fmt.Sprintf("  agent: %s\n", m.sess.CurrentAgent)
	}

	var log string
	if m.logReady {
		log = m.logView.View()
	}

	return fmt.Sprintf("%s\n%s\n%s%s\n%s",
		title, progressBar(m.sess.OverallProgress, 40), stages.String(), agent, log)
}

func (m *Model) renderResult() string {
	if m.sess.Phase == session.PhaseFailed {
		reason := m.sess.Err
		if reason == "" && m.err != nil {
			reason = m.err.Error()
		}
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			styles.err.Render("✗ Conversion failed"), reason, helpView)
	}

	title := styles.ok.Render("✓ Conversion complete")

	var info string
	if m.sess.Result != nil {
		info = fmt.Sprintf("\nConversion ID: %s\nDuration: %.1fs\n", m.sess.Result.ConversionID, m.sess.Result.Duration)
	}

	var download string
	if m.downloadPath != "" {
		download = styles.ok.Render(fmt.Sprintf("\nSaved to %s\n", m.downloadPath))
	} else if m.err != nil {
		download = styles.err.Render(fmt.Sprintf("\nDownload failed: %v\n", m.err))
	}

	helpKeys := []key.Binding{m.keys.download, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n%s", title, info, download, helpView)
}

// progressBar renders a fixed-width unicode progress bar.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100
	return fmt.Sprintf("[%s%s] %d%%",
		strings.Repeat("█", filled), strings.Repeat("░", width-filled), percent)
}
