package config

import (
	"strings"
	"testing"
)

func TestAuthorityForTenant(t *testing.T) {
	got := AuthorityForTenant("t1")
	want := "https://login.microsoftonline.com/t1"
	if got != want {
		t.Errorf("Expected authority %q, got %q", want, got)
	}
}

func TestDefaultScopes_WithClientID(t *testing.T) {
	scopes := DefaultScopes("abc")

	// Baseline first, derived application scope second, in that order
	if len(scopes) != 2 {
		t.Fatalf("Expected 2 scopes, got %d: %v", len(scopes), scopes)
	}
	if scopes[0] != "User.Read" {
		t.Errorf("Expected baseline scope first, got %q", scopes[0])
	}
	if scopes[1] != "api://abc/access_as_user" {
		t.Errorf("Expected derived application scope, got %q", scopes[1])
	}
}

func TestDefaultScopes_WithoutClientID(t *testing.T) {
	scopes := DefaultScopes("")

	if len(scopes) != 1 {
		t.Fatalf("Expected only the baseline scope, got %v", scopes)
	}
	if scopes[0] != BaselineScope {
		t.Errorf("Expected %q, got %q", BaselineScope, scopes[0])
	}
}

func TestApplyDefaults_AuthorityFromTenant(t *testing.T) {
	cfg := AuthConfig{ClientID: "c1", TenantID: "t1"}
	cfg.applyDefaults()

	if cfg.Authority != "https://login.microsoftonline.com/t1" {
		t.Errorf("Expected tenant-derived authority, got %q", cfg.Authority)
	}
}

func TestApplyDefaults_GenericAuthorityWithoutTenant(t *testing.T) {
	cfg := AuthConfig{ClientID: "c1"}
	cfg.applyDefaults()

	if cfg.Authority != DefaultAuthority {
		t.Errorf("Expected generic multi-tenant authority, got %q", cfg.Authority)
	}
}

func TestApplyDefaults_NeverEmptyAfterResolution(t *testing.T) {
	cfg := AuthConfig{}
	cfg.applyDefaults()

	if strings.TrimSpace(cfg.Authority) == "" {
		t.Error("Expected non-empty authority after defaults")
	}
	if len(cfg.APIScopes) == 0 {
		t.Error("Expected non-empty scope list after defaults")
	}
}

func TestApplyDefaults_ExplicitScopesPreserved(t *testing.T) {
	cfg := AuthConfig{ClientID: "c1", APIScopes: []string{"custom/.default"}}
	cfg.applyDefaults()

	if len(cfg.APIScopes) != 1 || cfg.APIScopes[0] != "custom/.default" {
		t.Errorf("Expected explicit scopes to be preserved, got %v", cfg.APIScopes)
	}
}

func TestHasClientID(t *testing.T) {
	if (AuthConfig{}).HasClientID() {
		t.Error("Expected HasClientID to be false for empty config")
	}
	if (AuthConfig{ClientID: "   "}).HasClientID() {
		t.Error("Expected HasClientID to be false for whitespace client id")
	}
	if !(AuthConfig{ClientID: "c1"}).HasClientID() {
		t.Error("Expected HasClientID to be true")
	}
}

func TestTenantFromAuthority(t *testing.T) {
	cases := []struct {
		name      string
		authority string
		want      string
	}{
		{"guid tenant", "https://login.microsoftonline.com/11111111-2222-3333-4444-555555555555", "11111111-2222-3333-4444-555555555555"},
		{"guid tenant trailing slash", "https://login.microsoftonline.com/11111111-2222-3333-4444-555555555555/", "11111111-2222-3333-4444-555555555555"},
		{"common alias", "https://login.microsoftonline.com/common", "common"},
		{"organizations alias", "https://login.microsoftonline.com/organizations", "organizations"},
		{"consumers alias", "https://login.microsoftonline.com/consumers", "consumers"},
		{"unknown segment", "https://login.microsoftonline.com/contoso", ""},
		{"no path", "https://login.microsoftonline.com", ""},
		{"empty", "", ""},
		{"not a url", "://broken", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TenantFromAuthority(tc.authority)
			if got != tc.want {
				t.Errorf("TenantFromAuthority(%q): expected %q, got %q", tc.authority, tc.want, got)
			}
		})
	}
}
