package apiclient

// HTTP dispatch for the document-chat backend with bearer-token attachment.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/FBakkensen/docchat-tui/config"
	"github.com/FBakkensen/docchat-tui/logging"
)

// TokenProvider supplies access tokens for outbound requests. A nil token
// means no credential could be obtained silently; the request is sent
// unauthenticated and the backend decides.
type TokenProvider interface {
	AcquireTokenSilently(ctx context.Context, scopes []string) *oauth2.Token
}

// Options describes one outbound call.
type Options struct {
	Method      string // default GET
	Body        []byte
	ContentType string
	Scopes      []string // default: the dispatcher's configured scope set
	SkipAuth    bool     // public endpoints skip token acquisition entirely
}

// Client dispatches requests to the backend, attaching bearer tokens and
// retrying exactly once on 401. It never errors on ordinary HTTP failure
// statuses; interpreting those is the caller's responsibility.
type Client struct {
	mu            sync.Mutex
	httpClient    *http.Client
	baseURL       string
	tokens        TokenProvider
	defaultScopes []string
}

// NewClient creates a dispatcher for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetSession forwards the current session and its resolved scope set to the
// dispatcher. Called whenever the session changes so dispatches always go
// through the current client handle.
func (c *Client) SetSession(tokens TokenProvider, defaultScopes []string) {
	c.mu.Lock()
	c.tokens = tokens
	c.defaultScopes = defaultScopes
	c.mu.Unlock()
}

// session returns the current provider and scope defaults.
func (c *Client) session() (TokenProvider, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens, c.defaultScopes
}

// Do dispatches one request. Unless SkipAuth is set, a token is acquired
// silently and attached as a bearer credential; a 401 response triggers
// exactly one re-acquisition and one retry, never more.
func (c *Client) Do(ctx context.Context, path string, opts Options) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	tokens, scopes := c.session()
	if len(opts.Scopes) > 0 {
		scopes = opts.Scopes
	}
	if len(scopes) == 0 {
		scopes = []string{config.BaselineScope}
	}

	var token *oauth2.Token
	if !opts.SkipAuth && tokens != nil {
		token = tokens.AcquireTokenSilently(ctx, scopes)
	}

	requestID := uuid.NewString()
	logging.Debug("API request preflight",
		"method", method,
		"path", path,
		"body_bytes", fmt.Sprintf("%d", len(opts.Body)),
		"authenticated", fmt.Sprintf("%t", token != nil),
		"client-request-id", requestID,
	)

	start := time.Now()
	resp, err := c.send(ctx, method, path, opts, token, requestID)
	if err != nil {
		logging.Error("API request failed", "path", path, "error", err.Error())
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.SkipAuth && tokens != nil {
		// One refresh, one retry. A second 401 goes back to the caller so a
		// down or misconfigured identity provider cannot cause a retry storm.
		logging.Info("API request unauthorized; refreshing token and retrying once",
			"path", path, "client-request-id", requestID)

		if refreshed := tokens.AcquireTokenSilently(ctx, scopes); refreshed != nil {
			drainAndClose(resp)
			resp, err = c.send(ctx, method, path, opts, refreshed, requestID)
			if err != nil {
				logging.Error("API retry failed", "path", path, "error", err.Error())
				return nil, err
			}
		} else {
			logging.Warn("Token refresh after 401 yielded no token; returning original response", "path", path)
		}
	}

	logging.Debug("API request complete",
		"path", path,
		"status", fmt.Sprintf("%d", resp.StatusCode),
		"duration_ms", fmt.Sprintf("%d", time.Since(start).Milliseconds()),
	)
	return resp, nil
}

// send builds and executes a single HTTP attempt.
func (c *Client) send(ctx context.Context, method, path string, opts Options, token *oauth2.Token, requestID string) (*http.Response, error) {
	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("client-request-id", requestID)
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if token != nil {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

// drainAndClose discards a response body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// Get dispatches a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, path, Options{Method: http.MethodGet})
}

// PostJSON dispatches a POST request with a JSON-encoded payload.
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.Do(ctx, path, Options{
		Method:      http.MethodPost,
		Body:        data,
		ContentType: "application/json",
	})
}

// decodeJSON reads a response, enforcing a 200 status, and decodes the body.
func decodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
