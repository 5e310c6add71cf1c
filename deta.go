// Package deta is an unofficial Go SDK for the Deta cloud service.
// It provides typed clients for the two Deta resource kinds: Base, a
// hosted NoSQL document store, and Drive, a hosted object store.
//
// A Client holds the project credentials and is safe for concurrent
// use. Base and Drive handles are created from it:
//
//	client, err := deta.New("a0abcyxz_aSecretValue")
//	if err != nil {
//		// ...
//	}
//	users := client.Base("users")
//	images := client.Drive("images")
//
// The client never caches or mutates remote state locally; every
// operation is a direct request/response pair against the Deta HTTP API.
package deta

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Default endpoints for the Deta HTTP APIs.
const (
	DefaultBaseURL  = "https://database.deta.sh/v1"
	DefaultDriveURL = "https://drive.deta.sh/v1"
)

// Client holds the credentials and shared HTTP configuration for a
// Deta project. The zero value is not usable; create one with New.
// All fields are immutable after construction, so a single Client may
// be shared by any number of goroutines.
type Client struct {
	apiKey    string
	projectID string

	baseURL    string
	driveURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the *http.Client used for all requests.
// Defaults to http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
// The API key is never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBaseURL overrides the Base API endpoint. Used by tests to point
// the client at a local server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithDriveURL overrides the Drive API endpoint. Used by tests to
// point the client at a local server.
func WithDriveURL(url string) Option {
	return func(c *Client) {
		c.driveURL = strings.TrimSuffix(url, "/")
	}
}

// New creates a Client from a Deta project API key.
// The key has the form "{project_id}_{secret}"; the project ID is
// derived from the segment before the first underscore.
func New(apiKey string, opts ...Option) (*Client, error) {
	projectID, _, found := strings.Cut(apiKey, "_")
	if !found || projectID == "" {
		return nil, fmt.Errorf("deta: malformed API key: expected \"{project_id}_{secret}\"")
	}

	c := &Client{
		apiKey:     apiKey,
		projectID:  projectID,
		baseURL:    DefaultBaseURL,
		driveURL:   DefaultDriveURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// ProjectID returns the project ID derived from the API key.
func (c *Client) ProjectID() string {
	return c.projectID
}

// Base returns a handle for the named Base (document store).
func (c *Client) Base(name string) *Base {
	return &Base{
		name: name,
		rest: c.newREST(fmt.Sprintf("%s/%s/%s", c.baseURL, c.projectID, name)),
	}
}

// Drive returns a handle for the named Drive (object store).
func (c *Client) Drive(name string) *Drive {
	return &Drive{
		name: name,
		rest: c.newREST(fmt.Sprintf("%s/%s/%s", c.driveURL, c.projectID, name)),
	}
}

func (c *Client) newREST(baseURL string) *restClient {
	return &restClient{
		baseURL:    baseURL,
		apiKey:     c.apiKey,
		httpClient: c.httpClient,
		logger:     c.logger,
		sleepFunc:  timeSleep,
	}
}

// drainAndClose discards any remaining response body bytes and closes
// it, so the underlying connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
