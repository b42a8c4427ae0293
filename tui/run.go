package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FBakkensen/docchat-tui/apiclient"
	"github.com/FBakkensen/docchat-tui/auth"
	"github.com/FBakkensen/docchat-tui/config"
)

// Run wires the resolver, session manager and dispatcher together and starts
// the TUI. It blocks until the user quits.
func Run(backendURL string) error {
	resolver := config.NewResolver(backendURL)
	session := auth.NewSessionManager(resolver)
	api := apiclient.NewClient(backendURL)

	m := InitialModel(session, api, backendURL)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
