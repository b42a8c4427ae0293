package tui

// Bubble Tea model gating the chat UI on authentication session state.

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/FBakkensen/docchat-tui/apiclient"
	"github.com/FBakkensen/docchat-tui/auth"
)

const AppVersion = "v0.3.0"

// phase is the gate's render state. It is derived from the session manager's
// snapshots; the gate holds no authentication state of its own.
type phase int

const (
	phaseLoading phase = iota
	phaseConfigError
	phaseSignedOut
	phaseSigningIn
	phaseChat
)

// Model is the top-level TUI model.
type Model struct {
	session    *auth.SessionManager
	api        *apiclient.Client
	backendURL string

	phase      phase
	spin       spinner.Model
	input      textarea.Model
	transcript []string
	history    []apiclient.ChatTurn

	title    string
	banner   string
	errText  string
	sending  bool
	quitting bool

	width  int
	height int

	titleStyle  lipgloss.Style
	bannerStyle lipgloss.Style
	errorStyle  lipgloss.Style
	faintStyle  lipgloss.Style
	userStyle   lipgloss.Style
}

// InitialModel builds the gate model around an uninitialized session.
func InitialModel(session *auth.SessionManager, api *apiclient.Client, backendURL string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ta := textarea.New()
	ta.Placeholder = "Ask a question about your documents..."
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	return Model{
		session:    session,
		api:        api,
		backendURL: backendURL,
		phase:      phaseLoading,
		spin:       sp,
		input:      ta,
		title:      "docchat",
		width:      80,
		height:     24,

		titleStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		bannerStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		faintStyle:  lipgloss.NewStyle().Faint(true),
		userStyle:   lipgloss.NewStyle().Bold(true),
	}
}

// Init implements tea.Model. Initialization and the public title fetch start
// immediately; everything else waits for the session to settle.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		initializeSession(m.session),
		fetchTitle(m.api),
	)
}
