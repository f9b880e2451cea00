// Package sleepiq is a client for the SleepIQ bed cloud API.
//
// The client keeps an opaque session token and re-authenticates transparently
// when the server reports an expired session. FetchBed assembles one consistent
// snapshot of a bed from the individual REST resources.
package sleepiq

import (
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the production REST endpoint.
const DefaultBaseURL = "https://prod-api.sleepiq.sleepnumber.com/rest"

// tokenParam is the query key that carries the session token.
const tokenParam = "_k"

// Client talks to the SleepIQ REST API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	creds     Credentials
	transport Transport

	concurrentFetch bool
	extras          bool

	// mu guards the session; token refresh happens with mu held.
	mu         sync.Mutex
	token      string
	generation uint64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithTimeout sets the timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.transport = NewRestyTransport(timeout)
	}
}

// WithConcurrentFetch lets FetchBed request family status and sleepers in parallel.
func WithConcurrentFetch(enabled bool) Option {
	return func(c *Client) {
		c.concurrentFetch = enabled
	}
}

// WithExtras makes FetchBed also fetch responsive air, privacy mode and foot warming.
func WithExtras(enabled bool) Option {
	return func(c *Client) {
		c.extras = enabled
	}
}

// NewClient creates a client for the given account. No network call is made.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewRestyTransport(0)
	}
	return c
}

// Close releases transport resources.
func (c *Client) Close() {
	if rt, ok := c.transport.(*RestyTransport); ok {
		rt.Close()
	}
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}
