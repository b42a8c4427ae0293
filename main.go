package main

// Entry point for docchat-tui
import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/FBakkensen/docchat-tui/apiclient"
	"github.com/FBakkensen/docchat-tui/auth"
	"github.com/FBakkensen/docchat-tui/config"
	"github.com/FBakkensen/docchat-tui/internal/util"
	"github.com/FBakkensen/docchat-tui/logging"
	"github.com/FBakkensen/docchat-tui/tui"
)

func main() {
	runCmd := flag.String("run", "", "Run a command non-interactively (e.g., 'login', 'logout', 'config', 'chat')")
	backendFlag := flag.String("backend", "", "Backend base URL (overrides DOCCHAT_BACKEND_URL)")
	flag.Parse()

	// Initialize logging first (allow override via env)
	logLevel := logging.LevelInfo
	if v := strings.TrimSpace(os.Getenv("DOCCHAT_LOG_LEVEL")); v != "" {
		switch strings.ToUpper(v) {
		case logging.LevelDebug:
			logLevel = logging.LevelDebug
		case logging.LevelInfo:
			logLevel = logging.LevelInfo
		case logging.LevelWarn:
			logLevel = logging.LevelWarn
		case logging.LevelError:
			logLevel = logging.LevelError
		}
	}
	if err := logging.InitLogger(logLevel); err != nil {
		fmt.Printf("Warning: Failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	backendURL := util.FirstNonEmpty(*backendFlag, os.Getenv("DOCCHAT_BACKEND_URL"))
	if strings.TrimSpace(backendURL) == "" {
		backendURL = "http://localhost:8000"
	}

	logging.Info("Starting docchat-tui", "backend", backendURL)

	if *runCmd != "" {
		if err := runNonInteractiveCommand(*runCmd, backendURL, flag.Args()); err != nil {
			logging.Error("Non-interactive command failed", "command", *runCmd, "error", err.Error())
			fmt.Printf("Error running command '%s': %v\n", *runCmd, err)
			os.Exit(1)
		}
		return
	}

	if err := tui.Run(backendURL); err != nil {
		logging.Error("UI exited with error", "error", err.Error())
		fmt.Println("Error:", err)
	}
}

// runNonInteractiveCommand executes a command without starting the TUI
func runNonInteractiveCommand(command, backendURL string, args []string) error {
	logging.Info("Running non-interactive command", "command", command)

	switch command {
	case "login":
		return loginNonInteractive(backendURL)
	case "logout":
		return logoutNonInteractive(backendURL)
	case "config":
		return printResolvedConfig(backendURL)
	case "chat":
		return chatNonInteractive(backendURL, strings.Join(args, " "))
	default:
		return fmt.Errorf("unknown command: %s. Available commands: login, logout, config, chat", command)
	}
}

// newSession resolves configuration and initializes a session manager.
func newSession(ctx context.Context, backendURL string) (*auth.SessionManager, error) {
	resolver := config.NewResolver(backendURL)
	session := auth.NewSessionManager(resolver)
	if err := session.Initialize(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// loginNonInteractive performs a device-code sign-in without the TUI, for
// terminals without a usable browser.
func loginNonInteractive(backendURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	session, err := newSession(ctx, backendURL)
	if err != nil {
		return err
	}

	if session.Snapshot().IsAuthenticated {
		fmt.Println("Already signed in.")
		logging.Info("Already signed in")
		return nil
	}

	fmt.Println("Starting device-code sign-in...")
	err = session.LoginWithDeviceCode(ctx, func(message string) {
		fmt.Println(message)
	})
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Println("Signed in successfully.")
	return nil
}

// logoutNonInteractive clears the cached account and persisted tokens.
func logoutNonInteractive(backendURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := newSession(ctx, backendURL)
	if err != nil {
		return err
	}
	if err := session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

// printResolvedConfig resolves and prints the authentication configuration.
func printResolvedConfig(backendURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolver := config.NewResolver(backendURL)
	cfg := resolver.Resolve(ctx)

	fmt.Printf("clientId:  %s\n", util.FirstNonEmpty(cfg.ClientID, "(not set)"))
	fmt.Printf("tenantId:  %s\n", util.FirstNonEmpty(cfg.TenantID, "(not set)"))
	fmt.Printf("authority: %s\n", cfg.Authority)
	fmt.Printf("scopes:    %s\n", strings.Join(cfg.APIScopes, " "))
	return nil
}

// chatNonInteractive sends a single question and prints the answer.
func chatNonInteractive(backendURL, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("no question given; usage: docchat-tui -run=chat <question>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session, err := newSession(ctx, backendURL)
	if err != nil {
		return err
	}
	if !session.Snapshot().IsAuthenticated {
		return fmt.Errorf("not signed in. Run with -run=login first")
	}

	api := apiclient.NewClient(backendURL)
	api.SetSession(session, session.Config().APIScopes)

	reply, err := api.Chat(ctx, apiclient.ChatRequest{
		History: []apiclient.ChatTurn{{User: question}},
	})
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("backend error: %s", reply.Error)
	}

	fmt.Println(reply.Answer)
	return nil
}
