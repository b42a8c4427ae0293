package auth

// Authentication session management on top of the MSAL public client.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"golang.org/x/oauth2"

	"github.com/FBakkensen/docchat-tui/config"
	"github.com/FBakkensen/docchat-tui/internal/util"
	"github.com/FBakkensen/docchat-tui/logging"
)

// ErrNotInitialized indicates an operation was invoked before Initialize
// succeeded.
var ErrNotInitialized = errors.New("authentication session not initialized")

// State represents the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitFailed
	StateSignedOut
	StateSignedIn
)

// String returns a short name for the state, for logs.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitFailed:
		return "init_failed"
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	}
	return "unknown"
}

// tokenClient is the slice of the identity library the session manager uses.
// public.Client satisfies it; tests substitute a fake.
type tokenClient interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
	AcquireTokenByDeviceCode(ctx context.Context, scopes []string, opts ...public.AcquireByDeviceCodeOption) (public.DeviceCode, error)
	RemoveAccount(ctx context.Context, account public.Account) error
}

// newPublicClient constructs the real MSAL client. Overridable in tests.
var newPublicClient = func(clientID, authority string) (tokenClient, error) {
	client, err := public.New(clientID,
		public.WithAuthority(authority),
		public.WithCache(keyringCache{}),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Snapshot is a consistent read of the session state. IsLoading and LastError
// are never both "authoritative" in one snapshot: starting an operation
// clears the previous error before the loading flag is observed.
type Snapshot struct {
	State           State
	Accounts        []public.Account
	IsAuthenticated bool
	IsLoading       bool
	LastError       string
}

// SessionManager owns the identity-library client and the account cache. All
// mutations happen under its mutex; other components read Snapshots.
type SessionManager struct {
	mu       sync.Mutex
	resolver *config.Resolver
	cfg      config.AuthConfig
	client   tokenClient
	accounts []public.Account
	state    State
	loading  bool
	lastErr  string
}

// NewSessionManager creates an uninitialized session manager.
func NewSessionManager(resolver *config.Resolver) *SessionManager {
	return &SessionManager{
		resolver: resolver,
		state:    StateUninitialized,
	}
}

// Snapshot returns a consistent copy of the observable session state.
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make([]public.Account, len(m.accounts))
	copy(accounts, m.accounts)
	return Snapshot{
		State:           m.state,
		Accounts:        accounts,
		IsAuthenticated: len(accounts) > 0,
		IsLoading:       m.loading,
		LastError:       m.lastErr,
	}
}

// Config returns the configuration the session was initialized with.
func (m *SessionManager) Config() config.AuthConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// beginOp marks an operation as in flight and clears the previous error.
// The returned func must be deferred so no exit path leaves loading stuck;
// failure paths clear the flag earlier, together with the error they record.
func (m *SessionManager) beginOp() func() {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}
}

// Initialize resolves configuration, constructs the identity client and
// restores any persisted sign-in. Configuration errors (no client id) are
// fatal to initialization but not to the process; the caller surfaces them
// as a blocking state.
func (m *SessionManager) Initialize(ctx context.Context) error {
	done := m.beginOp()
	defer done()

	m.mu.Lock()
	m.state = StateInitializing
	m.mu.Unlock()

	cfg := m.resolver.Resolve(ctx)

	if !cfg.HasClientID() {
		msg := "no client id resolved from any configuration source; check backend deployment or settings file"
		logging.Error("Session initialization failed", "reason", msg)
		m.mu.Lock()
		m.cfg = cfg
		m.state = StateInitFailed
		m.lastErr = msg
		m.loading = false
		m.mu.Unlock()
		return errors.New(msg)
	}

	client, err := newPublicClient(cfg.ClientID, cfg.Authority)
	if err != nil {
		msg := fmt.Sprintf("failed to construct identity client: %v", err)
		logging.Error("Session initialization failed", "error", err.Error())
		m.mu.Lock()
		m.cfg = cfg
		m.state = StateInitFailed
		m.lastErr = msg
		m.loading = false
		m.mu.Unlock()
		return fmt.Errorf("failed to construct identity client: %w", err)
	}

	// Restoring accounts from the persisted cache is how a sign-in from a
	// previous run resumes without interaction.
	accounts, err := client.Accounts(ctx)
	if err != nil {
		logging.Warn("Failed to load cached accounts; continuing signed out", "error", err.Error())
		accounts = nil
	}

	m.mu.Lock()
	m.cfg = cfg
	m.client = client
	m.accounts = accounts
	if len(accounts) > 0 {
		m.state = StateSignedIn
	} else {
		m.state = StateSignedOut
	}
	state := m.state
	m.mu.Unlock()

	logging.Info("Session initialized", "state", state.String(),
		"accounts", fmt.Sprintf("%d", len(accounts)),
		"clientId", util.MaskID(cfg.ClientID))
	return nil
}

// Login signs the user in interactively via the system browser. When a cached
// account already exists the user is treated as signed in and no flow runs.
func (m *SessionManager) Login(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	cached := len(m.accounts)
	m.mu.Unlock()

	if client == nil {
		return ErrNotInitialized
	}
	if cached > 0 {
		logging.Debug("Login requested but an account is already cached; nothing to do")
		return nil
	}

	done := m.beginOp()
	defer done()

	result, err := client.AcquireTokenInteractive(ctx, []string{config.BaselineScope})
	if err != nil {
		logging.Error("Interactive login failed", "error", err.Error())
		m.recordError(fmt.Sprintf("sign-in failed: %v", err))
		return fmt.Errorf("interactive login failed: %w", err)
	}

	m.adoptResult(ctx, result)
	logging.Info("Interactive login succeeded", "user", result.Account.PreferredUsername)
	return nil
}

// LoginWithDeviceCode signs the user in with the device-code flow for
// terminals without a usable browser. notify receives the provider's
// user instructions (verification URL and code) once the flow starts.
func (m *SessionManager) LoginWithDeviceCode(ctx context.Context, notify func(message string)) error {
	m.mu.Lock()
	client := m.client
	cached := len(m.accounts)
	m.mu.Unlock()

	if client == nil {
		return ErrNotInitialized
	}
	if cached > 0 {
		logging.Debug("Device-code login requested but an account is already cached; nothing to do")
		return nil
	}

	done := m.beginOp()
	defer done()

	dc, err := client.AcquireTokenByDeviceCode(ctx, []string{config.BaselineScope})
	if err != nil {
		logging.Error("Failed to initiate device-code flow", "error", err.Error())
		m.recordError(fmt.Sprintf("sign-in failed: %v", err))
		return fmt.Errorf("failed to initiate device-code flow: %w", err)
	}

	if notify != nil {
		notify(dc.Result.Message)
	}

	result, err := dc.AuthenticationResult(ctx)
	if err != nil {
		logging.Error("Device-code login failed", "error", err.Error())
		m.recordError(fmt.Sprintf("sign-in failed: %v", err))
		return fmt.Errorf("device-code login failed: %w", err)
	}

	m.adoptResult(ctx, result)
	logging.Info("Device-code login succeeded", "user", result.Account.PreferredUsername)
	return nil
}

// Logout removes the cached account from the identity client and clears the
// persisted cache.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	var account *public.Account
	if len(m.accounts) > 0 {
		acct := m.accounts[0]
		account = &acct
	}
	m.mu.Unlock()

	if client == nil {
		return ErrNotInitialized
	}

	done := m.beginOp()
	defer done()

	if account != nil {
		if err := client.RemoveAccount(ctx, *account); err != nil {
			logging.Error("Failed to remove account", "error", err.Error())
			m.recordError(fmt.Sprintf("sign-out failed: %v", err))
			return fmt.Errorf("failed to remove account: %w", err)
		}
	}

	if err := clearStoredCache(); err != nil {
		logging.Warn("Failed to clear persisted token cache", "error", err.Error())
	}

	m.mu.Lock()
	m.accounts = nil
	m.state = StateSignedOut
	m.mu.Unlock()

	logging.Info("Signed out")
	return nil
}

// AcquireTokenSilently obtains an access token for the given scopes without
// user interaction when possible. It returns nil for the expected absent
// conditions (not initialized, not signed in) and never returns an error to
// the caller: an interaction-required failure escalates to exactly one
// interactive attempt, and any other failure is recorded in LastError.
func (m *SessionManager) AcquireTokenSilently(ctx context.Context, scopes []string) *oauth2.Token {
	m.mu.Lock()
	client := m.client
	var account *public.Account
	if len(m.accounts) > 0 {
		acct := m.accounts[0]
		account = &acct
	}
	m.mu.Unlock()

	if client == nil || account == nil {
		logging.Debug("Silent token acquisition skipped", "reason", "no client or no account")
		return nil
	}
	if len(scopes) == 0 {
		scopes = []string{config.BaselineScope}
	}

	result, err := client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(*account))
	if err != nil {
		if !isInteractionRequired(err) {
			logging.Error("Silent token acquisition failed", "error", err.Error(),
				"scopes", strings.Join(scopes, " "))
			m.recordError(fmt.Sprintf("token acquisition failed: %v", err))
			return nil
		}

		// One escalation, never more: the provider needs the user.
		logging.Info("Silent token acquisition requires interaction; escalating once",
			"scopes", strings.Join(scopes, " "))
		result, err = client.AcquireTokenInteractive(ctx, scopes)
		if err != nil {
			logging.Error("Interactive token escalation failed", "error", err.Error())
			m.recordError(fmt.Sprintf("token acquisition failed: %v", err))
			return nil
		}
	}

	m.adoptResult(ctx, result)
	logTokenClaims(result.AccessToken, scopes)
	return &oauth2.Token{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		Expiry:      result.ExpiresOn,
	}
}

// adoptResult refreshes the account cache from a successful acquisition.
func (m *SessionManager) adoptResult(ctx context.Context, result public.AuthResult) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	accounts, err := client.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		// The result's own account is still authoritative for this session.
		accounts = []public.Account{result.Account}
	}

	m.mu.Lock()
	m.accounts = accounts
	m.state = StateSignedIn
	m.mu.Unlock()
}

// recordError stores an operation failure for UI display. The loading flag is
// cleared in the same critical section, so no snapshot can observe a terminal
// error while the operation still reads as in flight.
func (m *SessionManager) recordError(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.loading = false
	m.mu.Unlock()
}

// interactionRequiredMarkers are the provider error classes that mean silent
// acquisition cannot proceed without the user. AADSTS65001 is
// consent_required, AADSTS50076 is MFA, AADSTS50058 is no signed-in session.
var interactionRequiredMarkers = []string{
	"interaction_required",
	"consent_required",
	"login_required",
	"invalid_grant",
	"AADSTS65001",
	"AADSTS50076",
	"AADSTS50058",
}

// isInteractionRequired reports whether a silent acquisition failure belongs
// to the interaction-required class.
func isInteractionRequired(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range interactionRequiredMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
