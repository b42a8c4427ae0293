package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zalando/go-keyring"

	"github.com/FBakkensen/docchat-tui/apiclient"
	"github.com/FBakkensen/docchat-tui/auth"
	"github.com/FBakkensen/docchat-tui/config"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Setenv("DOCCHAT_KEYRING_NAMESPACE", "tui-test")
	os.Exit(m.Run())
}

// newTestModel builds a gate model over a session whose resolver reads from an
// in-memory settings file. An empty clientID leaves configuration unresolved.
func newTestModel(clientID string) (Model, *auth.SessionManager) {
	fs := config.NewMemFileSystem()
	if clientID != "" {
		fs.AddFile(filepath.Join(fs.WorkDir, "docchat.json"),
			[]byte(`{"AZURE_CLIENT_ID":"`+clientID+`"}`))
	}
	resolver := config.NewResolver("", config.WithFileSystem(fs))
	session := auth.NewSessionManager(resolver)
	api := apiclient.NewClient("http://localhost:0")
	return InitialModel(session, api, "http://localhost:0"), session
}

func TestUpdate_InitFailureBlocksOnConfigError(t *testing.T) {
	m, session := newTestModel("")

	err := session.Initialize(context.Background())
	if err == nil {
		t.Fatal("Expected initialization to fail without a client id")
	}

	next, _ := m.Update(initDoneMsg{err: err})
	m = next.(Model)

	if m.phase != phaseConfigError {
		t.Errorf("Expected config-error phase, got %v", m.phase)
	}
	view := m.View()
	if !strings.Contains(view, "client id") {
		t.Errorf("Expected the error reason in the view, got %q", view)
	}
	// No key except quit leaves the blocking screen.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.phase != phaseConfigError || cmd != nil {
		t.Error("Expected enter to be ignored on the config-error screen")
	}
}

func TestUpdate_SignedOutGate(t *testing.T) {
	m, session := newTestModel("11111111-2222-3333-4444-555555555555")

	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	next, _ := m.Update(initDoneMsg{})
	m = next.(Model)

	if m.phase != phaseSignedOut {
		t.Errorf("Expected signed-out phase, got %v", m.phase)
	}
	view := m.View()
	if !strings.Contains(strings.ToLower(view), "sign in") {
		t.Errorf("Expected a sign-in prompt, got %q", view)
	}

	// Enter starts the interactive flow and moves the gate to signing-in.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.phase != phaseSigningIn {
		t.Errorf("Expected signing-in phase after enter, got %v", m.phase)
	}
	if cmd == nil {
		t.Error("Expected a login command after enter")
	}
}

func TestUpdate_TitleMessage(t *testing.T) {
	m, _ := newTestModel("")

	next, _ := m.Update(titleMsg{title: "Contoso Chat"})
	m = next.(Model)
	if m.title != "Contoso Chat" {
		t.Errorf("Expected title from backend, got %q", m.title)
	}

	// A blank title keeps the current one.
	next, _ = m.Update(titleMsg{title: "   "})
	m = next.(Model)
	if m.title != "Contoso Chat" {
		t.Errorf("Expected blank title to be ignored, got %q", m.title)
	}
}

func TestUpdate_BannerMessage(t *testing.T) {
	m, _ := newTestModel("")
	m.phase = phaseChat

	next, _ := m.Update(bannerMsg{text: " Handle documents per policy. "})
	m = next.(Model)
	if m.banner != "Handle documents per policy." {
		t.Errorf("Expected trimmed banner text, got %q", m.banner)
	}
	if !strings.Contains(m.View(), "Handle documents per policy.") {
		t.Error("Expected the banner in the chat view")
	}
}

func TestUpdate_ChatReplyAppendsTranscript(t *testing.T) {
	m, _ := newTestModel("")
	m.phase = phaseChat
	m.sending = true
	m.transcript = []string{"you: what is the refund policy?"}
	m.history = []apiclient.ChatTurn{{User: "what is the refund policy?"}}

	next, _ := m.Update(chatReplyMsg{reply: &apiclient.ChatResponse{Answer: "30 days"}})
	m = next.(Model)

	if m.sending {
		t.Error("Expected sending flag cleared after a reply")
	}
	if len(m.transcript) != 2 || m.transcript[1] != "assistant: 30 days" {
		t.Errorf("Expected the answer appended to the transcript, got %v", m.transcript)
	}
	if m.history[0].Assistant != "30 days" {
		t.Errorf("Expected the answer recorded in history, got %q", m.history[0].Assistant)
	}
}

func TestUpdate_QuitKey(t *testing.T) {
	m, _ := newTestModel("")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected a quit command for ctrl+c")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("Expected tea.Quit, got %v", msg)
	}
}

func TestUpdate_WindowSize(t *testing.T) {
	m, _ := newTestModel("")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	if m.width != 120 || m.height != 40 {
		t.Errorf("Expected 120x40, got %dx%d", m.width, m.height)
	}
}
