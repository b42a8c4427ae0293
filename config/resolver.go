package config

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/FBakkensen/docchat-tui/logging"
)

// Resolver resolves an AuthConfig by querying its sources in precedence order
// and merging the results. The first successful resolution is cached for the
// lifetime of the process; ClearCache forces a fresh resolution.
//
// The resolver is the single owner of the cached value. Concurrent callers
// racing the first resolution are coalesced onto one in-flight attempt.
type Resolver struct {
	mu      sync.Mutex
	cached  *AuthConfig
	group   singleflight.Group
	sources []source
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	httpClient   *http.Client
	fs           FileSystem
	settingsPath string
}

// WithHTTPClient sets the HTTP client used for the network sources. The
// default client carries a 10 second timeout.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(o *resolverOptions) { o.httpClient = c }
}

// WithFileSystem injects a filesystem for the settings source (tests).
func WithFileSystem(fs FileSystem) ResolverOption {
	return func(o *resolverOptions) { o.fs = fs }
}

// WithSettingsPath pins the settings file instead of searching for it.
func WithSettingsPath(path string) ResolverOption {
	return func(o *resolverOptions) { o.settingsPath = path }
}

// NewResolver creates a Resolver for the given backend base URL.
func NewResolver(backendURL string, opts ...ResolverOption) *Resolver {
	options := resolverOptions{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fs:         &OsFileSystem{},
	}
	for _, opt := range opts {
		opt(&options)
	}

	var sources []source
	if strings.TrimSpace(backendURL) != "" {
		sources = append(sources,
			&backendSource{baseURL: backendURL, httpClient: options.httpClient},
			&platformSource{baseURL: backendURL, httpClient: options.httpClient},
		)
	}
	sources = append(sources,
		&settingsSource{
			fs:          options.fs,
			explicit:    options.settingsPath,
			searchPaths: defaultSearchPaths(options.fs),
		},
		&buildSource{},
	)

	return &Resolver{sources: sources}
}

// Resolve returns the resolved configuration. It never fails: every source
// failure degrades to the next source, and computed defaults guarantee a
// non-empty authority and scope list. A missing client id is only detected
// downstream, at session initialization.
func (r *Resolver) Resolve(ctx context.Context) AuthConfig {
	r.mu.Lock()
	if r.cached != nil {
		cfg := *r.cached
		r.mu.Unlock()
		return cfg
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do("resolve", func() (interface{}, error) {
		cfg := r.resolveOnce(ctx)
		r.mu.Lock()
		// A ClearCache between the check above and here simply re-caches the
		// fresh value, which is what the caller asked for.
		r.cached = &cfg
		r.mu.Unlock()
		return cfg, nil
	})
	return v.(AuthConfig)
}

// ClearCache discards the cached configuration so the next Resolve performs a
// full resolution. Used by tests and after deployment reconfiguration.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

// resolveOnce runs the source chain and applies computed defaults.
func (r *Resolver) resolveOnce(ctx context.Context) AuthConfig {
	var cfg AuthConfig

	for _, src := range r.sources {
		partial, err := src.load(ctx)
		if err != nil {
			logging.Warn("Configuration source failed; continuing with next source",
				"source", src.name(), "error", err.Error())
			continue
		}
		if partial == nil {
			logging.Debug("Configuration source had nothing to contribute", "source", src.name())
			continue
		}
		mergeMissing(&cfg, partial)
	}

	cfg.applyDefaults()
	logging.Info("Authentication configuration resolved", cfg.LogFields()...)
	return cfg
}
