package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"billdash/internal/apiclient"
	"billdash/internal/dashboard"
	"billdash/internal/mockbackend"
	"billdash/internal/session"
	"billdash/internal/session/store/memory"
)

// Actor is one signed-in (or signed-out) dashboard user. Each actor owns its
// own session store, so several users can act in the same scenario.
type Actor struct {
	Name     string
	Pages    *dashboard.Pages
	Sessions *session.Manager
}

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	Backend   *mockbackend.App
	server    *httptest.Server
	actors    map[string]*Actor
	current   *Actor
	LastAlert *dashboard.Alert
	// LastLocation is where the last page load redirected, empty when it rendered.
	LastLocation string
}

// NewTestContext creates a new test context. When BASE_URL is set the steps
// talk to that backend instead of an in-process one.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL: os.Getenv("BASE_URL"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		actors: make(map[string]*Actor),
	}
}

// StartBackend boots an in-process mock backend with the given monthly limit.
func (tc *TestContext) StartBackend(limit int64) error {
	if tc.BaseURL != "" {
		return nil
	}
	tc.Backend = mockbackend.New(mockbackend.Config{
		SigningKey:   "e2e-signing-key",
		MonthlyLimit: limit,
		BcryptCost:   bcrypt.MinCost,
		Registry:     prometheus.NewRegistry(),
	})
	tc.server = httptest.NewServer(tc.Backend.Router)
	tc.BaseURL = tc.server.URL
	tc.HTTPClient = tc.server.Client()
	return nil
}

// SeedDemo loads the demo tenant into the in-process backend.
func (tc *TestContext) SeedDemo(ctx context.Context) error {
	if tc.Backend == nil {
		return fmt.Errorf("demo data needs the in-process backend")
	}
	return tc.Backend.SeedDemo(ctx)
}

// Close stops the in-process backend, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
	if tc.Backend != nil {
		tc.Backend.Close()
	}
}

// Actor returns the named actor, creating a signed-out one on first use, and
// makes it the current actor.
func (tc *TestContext) Actor(name string) *Actor {
	if a, ok := tc.actors[name]; ok {
		tc.current = a
		return a
	}
	sessions := session.NewManager(memory.New(), nil)
	client := apiclient.New(tc.BaseURL+"/api",
		apiclient.WithHTTPClient(tc.HTTPClient),
		apiclient.WithTokenSource(sessions),
	)
	a := &Actor{Name: name, Pages: dashboard.New(client, sessions), Sessions: sessions}
	tc.actors[name] = a
	tc.current = a
	return a
}

// Current returns the actor the last step acted as.
func (tc *TestContext) Current() *Actor {
	if tc.current == nil {
		return tc.Actor("default")
	}
	return tc.current
}

// PagesFor returns the dashboard pages of the named actor.
func (tc *TestContext) PagesFor(name string) *dashboard.Pages {
	return tc.Actor(name).Pages
}

// CurrentPages returns the dashboard pages of the current actor.
func (tc *TestContext) CurrentPages() *dashboard.Pages {
	return tc.Current().Pages
}

// RecordAlert keeps the alert of the last dashboard action.
func (tc *TestContext) RecordAlert(alert *dashboard.Alert) {
	tc.LastAlert = alert
}

// GetLastAlert returns the alert of the last dashboard action.
func (tc *TestContext) GetLastAlert() *dashboard.Alert {
	return tc.LastAlert
}

// RecordLocation keeps the redirect target of the last page load.
func (tc *TestContext) RecordLocation(location string) {
	tc.LastLocation = location
}

// GetLastLocation returns the redirect target of the last page load.
func (tc *TestContext) GetLastLocation() string {
	return tc.LastLocation
}

// BearerFor returns the stored token of the named actor, empty when signed out.
func (tc *TestContext) BearerFor(ctx context.Context, name string) string {
	a, ok := tc.actors[name]
	if !ok {
		return ""
	}
	return a.Sessions.Token(ctx)
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders makes a POST request with optional headers
func (tc *TestContext) POSTWithHeaders(path string, body interface{}, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains reports whether the last response body contains text.
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
