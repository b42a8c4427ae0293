package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// newCountingServer serves /getMsalConfig and counts every request it sees.
func newCountingServer(body string) (*httptest.Server, *int64) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path != "/getMsalConfig" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	return server, &hits
}

func TestResolve_CachesFirstResult(t *testing.T) {
	server, hits := newCountingServer(`{"clientId":"cached-id","tenantId":"cached-tenant","authority":null}`)
	defer server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))

	first := resolver.Resolve(context.Background())
	afterFirst := atomic.LoadInt64(hits)
	second := resolver.Resolve(context.Background())

	if first.ClientID != "cached-id" || second.ClientID != "cached-id" {
		t.Errorf("Expected cached-id from both resolutions, got %q and %q", first.ClientID, second.ClientID)
	}
	if got := atomic.LoadInt64(hits); got != afterFirst {
		t.Errorf("Expected no further network calls after first resolution, got %d extra", got-afterFirst)
	}
}

func TestClearCache_ForcesReResolution(t *testing.T) {
	server, hits := newCountingServer(`{"clientId":"cached-id","tenantId":null,"authority":null}`)
	defer server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))

	resolver.Resolve(context.Background())
	afterFirst := atomic.LoadInt64(hits)

	resolver.ClearCache()
	resolver.Resolve(context.Background())

	if got := atomic.LoadInt64(hits); got <= afterFirst {
		t.Error("Expected ClearCache to force a fresh resolution with new network calls")
	}
}

func TestResolve_ConcurrentCallersCoalesce(t *testing.T) {
	// Gate the handler so every goroutine is in Resolve before any response is
	// written; coalescing means the backend still sees exactly one request
	// per endpoint.
	release := make(chan struct{})
	var msalHits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/getMsalConfig" {
			atomic.AddInt64(&msalHits, 1)
			<-release
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"clientId":"co-id","tenantId":"co-tenant","authority":null}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, WithFileSystem(NewMemFileSystem()))

	const callers = 8
	results := make([]AuthConfig, callers)
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			started.Done()
			results[i] = resolver.Resolve(context.Background())
			done.Done()
		}(i)
	}
	started.Wait()
	close(release)
	done.Wait()

	for i, cfg := range results {
		if cfg.ClientID != "co-id" {
			t.Errorf("Caller %d: expected co-id, got %q", i, cfg.ClientID)
		}
	}
	if got := atomic.LoadInt64(&msalHits); got != 1 {
		t.Errorf("Expected exactly one backend config request for concurrent callers, got %d", got)
	}
}

func TestNewResolver_SkipsNetworkSourcesWithoutBackendURL(t *testing.T) {
	resolver := NewResolver("", WithFileSystem(NewMemFileSystem()))

	for _, src := range resolver.sources {
		name := src.name()
		if name == "backend" || name == "platform" {
			t.Errorf("Expected no network source without a backend URL, found %q", name)
		}
	}
}
