package tui

import (
	"fmt"
	"strings"
)

// View renders the gate: loading, configuration error, sign-in prompt, or the
// chat surface, depending on the session state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.titleStyle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(m.faintStyle.Render(AppVersion))
	b.WriteString("\n")
	if m.banner != "" {
		b.WriteString(m.bannerStyle.Render(m.banner))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.phase {
	case phaseLoading:
		b.WriteString(fmt.Sprintf("%s Resolving authentication configuration...\n", m.spin.View()))
		// A stale error from a previous operation may still be on screen
		// while the next one is loading.
		if m.errText != "" {
			b.WriteString(m.errorStyle.Render(m.errText))
			b.WriteString("\n")
		}

	case phaseConfigError:
		b.WriteString(m.errorStyle.Render("Authentication is not configured."))
		b.WriteString("\n\n")
		b.WriteString(m.errText)
		b.WriteString("\n\n")
		b.WriteString(m.faintStyle.Render("Press q to quit."))
		b.WriteString("\n")

	case phaseSignedOut:
		b.WriteString("You are signed out.\n\n")
		if m.errText != "" {
			b.WriteString(m.errorStyle.Render(m.errText))
			b.WriteString("\n\n")
		}
		b.WriteString("Press Enter to sign in with your browser, or q to quit.\n")

	case phaseSigningIn:
		b.WriteString(fmt.Sprintf("%s Waiting for sign-in to complete in your browser...\n", m.spin.View()))

	case phaseChat:
		for _, line := range m.tailTranscript() {
			if strings.HasPrefix(line, "you: ") {
				b.WriteString(m.userStyle.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
		if m.sending {
			b.WriteString(fmt.Sprintf("%s thinking...\n", m.spin.View()))
		}
		if m.errText != "" {
			b.WriteString(m.errorStyle.Render(m.errText))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.faintStyle.Render("Enter to send · Ctrl+O to sign out · Ctrl+C to quit"))
		b.WriteString("\n")
	}

	return b.String()
}

// tailTranscript returns as many transcript lines as fit the window.
func (m Model) tailTranscript() []string {
	max := m.height - 10
	if max < 1 {
		max = 1
	}
	if len(m.transcript) <= max {
		return m.transcript
	}
	return m.transcript[len(m.transcript)-max:]
}
