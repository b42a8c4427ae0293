package config

// Configuration sources queried by the resolver, in precedence order.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/FBakkensen/docchat-tui/logging"
)

// Build-time values frozen into the binary via -ldflags:
//
//	go build -ldflags "-X github.com/FBakkensen/docchat-tui/config.buildClientID=..."
var (
	buildClientID  string
	buildTenantID  string
	buildAuthority string
)

// source supplies a partial AuthConfig. A failing source is skipped; it is
// never fatal to resolution.
type source interface {
	name() string
	load(ctx context.Context) (*AuthConfig, error)
}

// mergeMissing copies fields from src into dst that dst does not have yet.
// Higher-precedence sources run first, so an already-set field always wins.
func mergeMissing(dst, src *AuthConfig) {
	if src == nil {
		return
	}
	if strings.TrimSpace(dst.ClientID) == "" {
		dst.ClientID = strings.TrimSpace(src.ClientID)
	}
	if strings.TrimSpace(dst.TenantID) == "" {
		dst.TenantID = strings.TrimSpace(src.TenantID)
	}
	if strings.TrimSpace(dst.Authority) == "" {
		dst.Authority = strings.TrimSpace(src.Authority)
	}
	if len(dst.APIScopes) == 0 {
		dst.APIScopes = src.APIScopes
	}
}

// backendSource queries the backend's GET /getMsalConfig endpoint.
type backendSource struct {
	baseURL    string
	httpClient *http.Client
}

func (s *backendSource) name() string { return "backend" }

func (s *backendSource) load(ctx context.Context) (*AuthConfig, error) {
	endpoint := strings.TrimSuffix(s.baseURL, "/") + "/getMsalConfig"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create config request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query backend config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend config request failed with status %d", resp.StatusCode)
	}

	// Null fields decode to empty strings and are treated as absent.
	var payload struct {
		ClientID  string `json:"clientId"`
		TenantID  string `json:"tenantId"`
		Authority string `json:"authority"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode backend config: %w", err)
	}

	return &AuthConfig{
		ClientID:  payload.ClientID,
		TenantID:  payload.TenantID,
		Authority: payload.Authority,
	}, nil
}

// PlatformSession is one identity entry reported by the hosting platform's
// /.auth/me endpoint. Only the first entry is consulted.
type PlatformSession struct {
	ClientID  string `json:"client_id"`
	Authority string `json:"authority"`
	UserID    string `json:"user_id"`
}

// QueryPlatformSession fetches the hosting platform's session introspection
// endpoint. The TUI also calls this as a diagnostic probe; the probe result
// never mutates authentication state.
func QueryPlatformSession(ctx context.Context, httpClient *http.Client, baseURL string) ([]PlatformSession, error) {
	endpoint := strings.TrimSuffix(baseURL, "/") + "/.auth/me"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform session request failed with status %d", resp.StatusCode)
	}

	var sessions []PlatformSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("failed to decode platform session: %w", err)
	}

	return sessions, nil
}

// platformSource derives configuration from the hosting platform's built-in
// authentication endpoint, when the app runs behind one.
type platformSource struct {
	baseURL    string
	httpClient *http.Client
}

func (s *platformSource) name() string { return "platform" }

func (s *platformSource) load(ctx context.Context) (*AuthConfig, error) {
	sessions, err := QueryPlatformSession(ctx, s.httpClient, s.baseURL)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	first := sessions[0]
	return &AuthConfig{
		ClientID:  first.ClientID,
		Authority: first.Authority,
		TenantID:  TenantFromAuthority(first.Authority),
	}, nil
}

// guidPattern matches a directory (tenant) id.
var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TenantFromAuthority extracts the tenant identifier from an authority URL's
// trailing path segment. Recognized segments are a tenant GUID and the
// well-known aliases "common", "organizations" and "consumers". Anything else
// yields an empty string.
func TenantFromAuthority(authority string) string {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return ""
	}
	u, err := url.Parse(authority)
	if err != nil {
		return ""
	}
	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	switch {
	case guidPattern.MatchString(segment):
		return segment
	case segment == "common" || segment == "organizations" || segment == "consumers":
		return segment
	}
	return ""
}

// settingsFile is the on-disk shape of the optional settings file. The field
// names mirror the deployment variables they are templated from.
type settingsFile struct {
	ClientID  string   `json:"AZURE_CLIENT_ID"`
	TenantID  string   `json:"AZURE_TENANT_ID"`
	Authority string   `json:"AZURE_AUTHORITY"`
	APIScopes []string `json:"API_SCOPES"`
}

// settingsSource reads the deployment-templated settings file. It is the only
// source that may supply an explicit scope list.
type settingsSource struct {
	fs          FileSystem
	explicit    string
	searchPaths []string
}

func (s *settingsSource) name() string { return "settings" }

func (s *settingsSource) load(_ context.Context) (*AuthConfig, error) {
	filePath := s.explicit
	if filePath == "" {
		filePath = s.findSettingsFile()
	}
	if filePath == "" {
		return nil, nil
	}

	data, err := s.fs.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", filePath, err)
	}

	var settings settingsFile
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", filePath, err)
	}

	logging.Debug("Loaded settings file", "path", filePath)
	return &AuthConfig{
		ClientID:  settings.ClientID,
		TenantID:  settings.TenantID,
		Authority: settings.Authority,
		APIScopes: settings.APIScopes,
	}, nil
}

// findSettingsFile looks for a settings file in the search paths.
func (s *settingsSource) findSettingsFile() string {
	for _, candidate := range s.searchPaths {
		if _, err := s.fs.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// defaultSearchPaths returns the settings file locations, most local first.
func defaultSearchPaths(fs FileSystem) []string {
	var paths []string

	if cwd, err := fs.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "docchat.json"))
		paths = append(paths, filepath.Join(cwd, "docchat-tui.json"))
	}

	if configDir, err := fs.UserConfigDir(); err == nil {
		appConfigDir := filepath.Join(configDir, "docchat-tui")
		paths = append(paths, filepath.Join(appConfigDir, "docchat.json"))
	}

	if home, err := fs.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".docchat-tui", "docchat.json"))
	}

	return paths
}

// buildSource surfaces the ldflags-frozen values.
type buildSource struct{}

func (s *buildSource) name() string { return "build" }

func (s *buildSource) load(_ context.Context) (*AuthConfig, error) {
	return &AuthConfig{
		ClientID:  buildClientID,
		TenantID:  buildTenantID,
		Authority: buildAuthority,
	}, nil
}
