package config

// Precedence order between configuration sources:
// backend > platform session > settings file > build values > defaults

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// newConfigServer serves /getMsalConfig and /.auth/me with the given bodies.
// An empty body yields a 404 so the source is skipped.
func newConfigServer(t *testing.T, msalConfig, authMe string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getMsalConfig":
			if msalConfig == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(msalConfig))
		case "/.auth/me":
			if authMe == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(authMe))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// newSettingsFS returns a MemFileSystem with a settings file in the working
// directory, plus its path.
func newSettingsFS(contents string) (*MemFileSystem, string) {
	fs := NewMemFileSystem()
	path := filepath.Join(fs.WorkDir, "docchat.json")
	if contents != "" {
		fs.AddFile(path, []byte(contents))
	}
	return fs, path
}

func setBuildValues(t *testing.T, clientID, tenantID, authority string) {
	t.Helper()
	origClient, origTenant, origAuthority := buildClientID, buildTenantID, buildAuthority
	buildClientID, buildTenantID, buildAuthority = clientID, tenantID, authority
	t.Cleanup(func() {
		buildClientID, buildTenantID, buildAuthority = origClient, origTenant, origAuthority
	})
}

func TestPrecedence_BackendWinsOverSettings(t *testing.T) {
	server := newConfigServer(t, `{"clientId":"backend-id","tenantId":"backend-tenant","authority":null}`, "")
	defer server.Close()

	fs, _ := newSettingsFS(`{"AZURE_CLIENT_ID":"file-id","AZURE_TENANT_ID":"file-tenant"}`)
	resolver := NewResolver(server.URL, WithFileSystem(fs))

	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "backend-id" {
		t.Errorf("Expected backend clientId to win, got %q", cfg.ClientID)
	}
	if cfg.TenantID != "backend-tenant" {
		t.Errorf("Expected backend tenantId to win, got %q", cfg.TenantID)
	}
}

func TestPrecedence_PartialBackendFilledBySettings(t *testing.T) {
	// Backend supplies only the client id; the tenant must come from the
	// settings file because each source fills only unset fields.
	server := newConfigServer(t, `{"clientId":"backend-id","tenantId":null,"authority":null}`, "")
	defer server.Close()

	fs, _ := newSettingsFS(`{"AZURE_CLIENT_ID":"file-id","AZURE_TENANT_ID":"file-tenant"}`)
	resolver := NewResolver(server.URL, WithFileSystem(fs))

	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "backend-id" {
		t.Errorf("Expected backend clientId, got %q", cfg.ClientID)
	}
	if cfg.TenantID != "file-tenant" {
		t.Errorf("Expected settings tenantId to fill the gap, got %q", cfg.TenantID)
	}
}

func TestPrecedence_PlatformSessionWhenBackendFails(t *testing.T) {
	authority := "https://login.microsoftonline.com/11111111-2222-3333-4444-555555555555"
	server := newConfigServer(t, "", `[{"client_id":"platform-id","authority":"`+authority+`"}]`)
	defer server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))
	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "platform-id" {
		t.Errorf("Expected platform clientId, got %q", cfg.ClientID)
	}
	if cfg.TenantID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("Expected tenant derived from authority, got %q", cfg.TenantID)
	}
	if cfg.Authority != authority {
		t.Errorf("Expected platform authority, got %q", cfg.Authority)
	}
}

func TestPrecedence_BuildValuesWhenNetworkAndFileAbsent(t *testing.T) {
	setBuildValues(t, "build-id", "build-tenant", "")

	resolver := NewResolver("", WithFileSystem(NewMemFileSystem()))
	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "build-id" {
		t.Errorf("Expected build clientId, got %q", cfg.ClientID)
	}
	if cfg.Authority != "https://login.microsoftonline.com/build-tenant" {
		t.Errorf("Expected authority derived from build tenant, got %q", cfg.Authority)
	}
}

func TestPrecedence_SettingsScopesOverrideDerivedDefaults(t *testing.T) {
	fs, _ := newSettingsFS(`{"AZURE_CLIENT_ID":"file-id","API_SCOPES":["custom/.default","second"]}`)

	resolver := NewResolver("", WithFileSystem(fs))
	cfg := resolver.Resolve(context.Background())

	if len(cfg.APIScopes) != 2 || cfg.APIScopes[0] != "custom/.default" || cfg.APIScopes[1] != "second" {
		t.Errorf("Expected explicit scope list from settings, got %v", cfg.APIScopes)
	}
}

func TestScenario_BackendSuppliesClientAndTenant(t *testing.T) {
	// Empty environment, backend returns {clientId:"c1", tenantId:"t1", authority:null}
	server := newConfigServer(t, `{"clientId":"c1","tenantId":"t1","authority":null}`, "")
	defer server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))
	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "c1" {
		t.Errorf("Expected clientId c1, got %q", cfg.ClientID)
	}
	if cfg.TenantID != "t1" {
		t.Errorf("Expected tenantId t1, got %q", cfg.TenantID)
	}
	if cfg.Authority != "https://login.microsoftonline.com/t1" {
		t.Errorf("Expected derived authority, got %q", cfg.Authority)
	}
	if len(cfg.APIScopes) != 2 || cfg.APIScopes[0] != "User.Read" || cfg.APIScopes[1] != "api://c1/access_as_user" {
		t.Errorf("Expected default scopes for c1, got %v", cfg.APIScopes)
	}
}

func TestScenario_BackendUnreachableSettingsSupplyClientID(t *testing.T) {
	// Backend endpoint unreachable; settings supply only AZURE_CLIENT_ID
	fs, _ := newSettingsFS(`{"AZURE_CLIENT_ID":"c2"}`)

	// Point at a server that is already closed to simulate a network failure
	server := newConfigServer(t, "", "")
	server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(fs))
	cfg := resolver.Resolve(context.Background())

	if cfg.ClientID != "c2" {
		t.Errorf("Expected clientId c2, got %q", cfg.ClientID)
	}
	if cfg.Authority != DefaultAuthority {
		t.Errorf("Expected generic multi-tenant authority, got %q", cfg.Authority)
	}
	if len(cfg.APIScopes) != 2 || cfg.APIScopes[0] != "User.Read" || cfg.APIScopes[1] != "api://c2/access_as_user" {
		t.Errorf("Expected default scopes for c2, got %v", cfg.APIScopes)
	}
}

func TestResolve_NeverFails(t *testing.T) {
	// Every source absent or failing still yields a usable config
	server := newConfigServer(t, "", "")
	server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))
	cfg := resolver.Resolve(context.Background())

	if cfg.Authority == "" {
		t.Error("Expected non-empty authority even with all sources failing")
	}
	if len(cfg.APIScopes) == 0 {
		t.Error("Expected non-empty scopes even with all sources failing")
	}
	if cfg.HasClientID() {
		t.Errorf("Expected no clientId with all sources failing, got %q", cfg.ClientID)
	}
}
