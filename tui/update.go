package tui

// Update logic for the authentication gate and chat view.

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/FBakkensen/docchat-tui/apiclient"
	"github.com/FBakkensen/docchat-tui/auth"
	"github.com/FBakkensen/docchat-tui/config"
	"github.com/FBakkensen/docchat-tui/logging"
)

const quitKey = "ctrl+c"

// Message types for the session gate
type initDoneMsg struct {
	err error
}

type loginDoneMsg struct {
	err error
}

type logoutDoneMsg struct {
	err error
}

type titleMsg struct {
	title string
	err   error
}

type bannerMsg struct {
	text string
	err  error
}

type probeDoneMsg struct {
	sessions int
	err      error
}

type chatReplyMsg struct {
	reply *apiclient.ChatResponse
	err   error
}

// Commands

func initializeSession(session *auth.SessionManager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		return initDoneMsg{err: session.Initialize(ctx)}
	}
}

func loginInteractive(session *auth.SessionManager) tea.Cmd {
	return func() tea.Msg {
		// Interactive sign-in hands control to the browser; the generous
		// timeout covers the user walking through the provider's pages.
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		return loginDoneMsg{err: session.Login(ctx)}
	}
}

func logoutSession(session *auth.SessionManager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return logoutDoneMsg{err: session.Logout(ctx)}
	}
}

func fetchTitle(api *apiclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		title, err := api.ApplicationTitle(ctx)
		return titleMsg{title: title, err: err}
	}
}

func fetchBanner(api *apiclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		text, err := api.WarningBanner(ctx)
		return bannerMsg{text: text, err: err}
	}
}

// probePlatformSession checks the hosting platform's session endpoint purely
// for diagnostic logging. Its result never mutates authentication state.
func probePlatformSession(backendURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := config.QueryPlatformSession(ctx, &http.Client{Timeout: 10 * time.Second}, backendURL)
		return probeDoneMsg{sessions: len(sessions), err: err}
	}
}

func sendChat(api *apiclient.Client, history []apiclient.ChatTurn) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()
		reply, err := api.Chat(ctx, apiclient.ChatRequest{History: history})
		return chatReplyMsg{reply: reply, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initDoneMsg, loginDoneMsg, logoutDoneMsg, probeDoneMsg:
		return m.handleSessionMessages(msg)

	case titleMsg:
		if msg.err != nil {
			logging.Debug("Application title fetch failed", "error", msg.err.Error())
			return m, nil
		}
		if strings.TrimSpace(msg.title) != "" {
			m.title = msg.title
		}
		return m, nil

	case bannerMsg:
		if msg.err != nil {
			logging.Debug("Warning banner fetch failed", "error", msg.err.Error())
			return m, nil
		}
		m.banner = strings.TrimSpace(msg.text)
		return m, nil

	case chatReplyMsg:
		return m.handleChatReply(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMessages(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 4)
		return m, nil
	}
	return m, nil
}

// handleSessionMessages processes gate-state transitions from session operations.
func (m Model) handleSessionMessages(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initDoneMsg:
		snap := m.session.Snapshot()

		// Forward the session to the dispatcher whenever the handle changes
		// so every dispatch goes through the current session.
		m.api.SetSession(m.session, m.session.Config().APIScopes)

		if snap.State == auth.StateInitFailed {
			m.phase = phaseConfigError
			m.errText = snap.LastError
			return m, nil
		}
		if msg.err != nil {
			m.phase = phaseConfigError
			m.errText = msg.err.Error()
			return m, nil
		}
		if snap.IsAuthenticated {
			m.phase = phaseChat
			return m, fetchBanner(m.api)
		}
		m.phase = phaseSignedOut
		// Best-effort diagnostic probe; no state hangs off its result.
		return m, probePlatformSession(m.backendURL)

	case loginDoneMsg:
		snap := m.session.Snapshot()
		if msg.err != nil || !snap.IsAuthenticated {
			m.phase = phaseSignedOut
			m.errText = snap.LastError
			if m.errText == "" && msg.err != nil {
				m.errText = msg.err.Error()
			}
			return m, nil
		}
		m.phase = phaseChat
		m.errText = ""
		return m, fetchBanner(m.api)

	case logoutDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.phase = phaseSignedOut
		m.transcript = nil
		m.history = nil
		return m, nil

	case probeDoneMsg:
		if msg.err != nil {
			logging.Debug("Platform session probe failed", "error", msg.err.Error())
		} else {
			logging.Info("Platform session probe", "sessions", fmt.Sprintf("%d", msg.sessions))
		}
		return m, nil
	}
	return m, nil
}

// handleChatReply appends the assistant's answer to the transcript.
func (m Model) handleChatReply(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	if msg.err != nil {
		m.errText = msg.err.Error()
		return m, nil
	}
	m.errText = ""
	if msg.reply.Error != "" {
		m.errText = msg.reply.Error
		return m, nil
	}
	m.transcript = append(m.transcript, "assistant: "+msg.reply.Answer)
	if len(m.history) > 0 {
		m.history[len(m.history)-1].Assistant = msg.reply.Answer
	}
	return m, nil
}

// handleKeyMessages routes keys by gate phase.
func (m Model) handleKeyMessages(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == quitKey {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.phase {
	case phaseConfigError:
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case phaseSignedOut:
		switch msg.String() {
		case "enter", "s":
			m.phase = phaseSigningIn
			m.errText = ""
			return m, loginInteractive(m.session)
		case "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case phaseChat:
		return m.handleChatKeys(msg)
	}
	return m, nil
}

// handleChatKeys drives the input area and chat submission.
func (m Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+o":
		return m, logoutSession(m.session)
	case "enter":
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.sending {
			return m, nil
		}
		m.input.Reset()
		m.sending = true
		m.transcript = append(m.transcript, "you: "+question)
		m.history = append(m.history, apiclient.ChatTurn{User: question})
		return m, sendChat(m.api, m.history)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
