package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default connection settings. Inside a supervised add-on the base URL is
// the supervisor proxy and the token arrives via SUPERVISOR_TOKEN.
const (
	DefaultBaseURL = "http://supervisor/core"
	defaultTimeout = 10 * time.Second
)

// errorBodyLimit caps how much of a failure response body is carried into
// the returned error.
const errorBodyLimit = 200

// Logger defines the logging interface used by the Home Assistant client.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is one entity row from GET /api/states, trimmed to the fields the
// catalog and the entity tester care about.
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// FriendlyName returns the friendly_name attribute, or "" when absent.
func (s State) FriendlyName() string {
	name, _ := s.Attributes["friendly_name"].(string)
	return name
}

// Client talks to the Home Assistant REST API with bearer token auth.
//
// Failures are returned, never retried; retry policy belongs to the caller.
// The catalog refresher, for example, keeps its previous snapshot on a
// failed fetch and tries again on the next tick.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger
}

// NewClient creates a client for the Home Assistant REST API.
//
// An empty baseURL falls back to the supervisor proxy; a non-positive
// timeout falls back to the default. A trailing slash on baseURL is
// trimmed so paths always join cleanly.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// States fetches every entity state from GET /api/states.
func (c *Client) States(ctx context.Context) ([]State, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching states: %w", err)
	}

	var states []State
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}

	c.logger.Debug("fetched entity states", "count", len(states))
	return states, nil
}

// CallService invokes a Home Assistant service, e.g. light.turn_on with
// {"entity_id": "light.living_room"} as the payload.
func (c *Client) CallService(ctx context.Context, domain, service string, payload map[string]any) error {
	if domain == "" || service == "" {
		return fmt.Errorf("homeassistant: domain and service are required")
	}

	path := "/api/services/" + url.PathEscape(domain) + "/" + url.PathEscape(service)
	if _, err := c.do(ctx, http.MethodPost, path, payload); err != nil {
		return fmt.Errorf("calling service %s.%s: %w", domain, service, err)
	}

	c.logger.Debug("service called", "domain", domain, "service", service)
	return nil
}

// SaveAutomation writes automation YAML to Home Assistant's config store
// under the given object ID. Callers follow up with ReloadAutomations so
// the saved automation goes live.
func (c *Client) SaveAutomation(ctx context.Context, objectID, yamlContent string) error {
	if objectID == "" {
		return fmt.Errorf("homeassistant: object id is required")
	}

	path := "/api/config/automation/config/" + url.PathEscape(objectID)
	payload := map[string]string{"content": yamlContent}
	if _, err := c.do(ctx, http.MethodPost, path, payload); err != nil {
		return fmt.Errorf("saving automation %s: %w", objectID, err)
	}

	c.logger.Info("automation saved", "object_id", objectID)
	return nil
}

// ReloadAutomations asks Home Assistant to re-read its automation configs.
func (c *Client) ReloadAutomations(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/api/services/automation/reload", nil); err != nil {
		return fmt.Errorf("reloading automations: %w", err)
	}

	c.logger.Info("automations reloaded")
	return nil
}

// Ping checks API reachability via GET /api/.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/api/", nil); err != nil {
		return fmt.Errorf("pinging api: %w", err)
	}
	return nil
}

// do executes one authenticated request and returns the response body.
// Non-2xx responses become sentinel errors carrying the status code and a
// snippet of the body, which is where Home Assistant reports config
// validation failures.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if s := bodySnippet(data); s != "" {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, s)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return data, nil
}

// bodySnippet trims a response body for inclusion in an error message.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodyLimit {
		s = s[:errorBodyLimit]
	}
	return s
}
