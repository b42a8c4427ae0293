package config

// Authentication configuration model for docchat-tui

import (
	"fmt"
	"strings"

	"github.com/FBakkensen/docchat-tui/internal/util"
)

const (
	// AuthorityHost is the base URL of the Microsoft identity platform.
	AuthorityHost = "https://login.microsoftonline.com"

	// DefaultAuthority is the generic multi-tenant issuer used when no tenant
	// is known from any source.
	DefaultAuthority = AuthorityHost + "/common"

	// BaselineScope is always requested, regardless of configuration.
	BaselineScope = "User.Read"
)

// AuthConfig holds the resolved authentication settings for the application.
// It is produced by Resolver.Resolve and never mutated afterwards;
// re-resolution replaces the value wholesale.
type AuthConfig struct {
	ClientID  string   `json:"clientId"`
	TenantID  string   `json:"tenantId"`
	Authority string   `json:"authority"`
	APIScopes []string `json:"apiScopes"`
}

// HasClientID reports whether a client id was resolved from any source.
// Session initialization fails without one.
func (c AuthConfig) HasClientID() bool {
	return strings.TrimSpace(c.ClientID) != ""
}

// AuthorityForTenant returns the issuer URL for a tenant id.
func AuthorityForTenant(tenantID string) string {
	return fmt.Sprintf("%s/%s", AuthorityHost, strings.TrimSpace(tenantID))
}

// DefaultScopes returns the baseline scope plus, when the client id is known,
// the application scope derived from it.
func DefaultScopes(clientID string) []string {
	scopes := []string{BaselineScope}
	if strings.TrimSpace(clientID) != "" {
		scopes = append(scopes, fmt.Sprintf("api://%s/access_as_user", strings.TrimSpace(clientID)))
	}
	return scopes
}

// applyDefaults fills the fields no source supplied. After this call the
// authority and scope list are guaranteed non-empty.
func (c *AuthConfig) applyDefaults() {
	if strings.TrimSpace(c.Authority) == "" {
		if strings.TrimSpace(c.TenantID) != "" {
			c.Authority = AuthorityForTenant(c.TenantID)
		} else {
			c.Authority = DefaultAuthority
		}
	}
	if len(c.APIScopes) == 0 {
		c.APIScopes = DefaultScopes(c.ClientID)
	}
}

// LogFields returns masked key-value pairs suitable for the logging package.
func (c AuthConfig) LogFields() []string {
	return []string{
		"clientId", util.MaskID(c.ClientID),
		"tenantId", util.MaskID(c.TenantID),
		"authority", c.Authority,
		"scopes", strings.Join(c.APIScopes, " "),
	}
}
