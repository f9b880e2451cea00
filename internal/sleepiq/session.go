package sleepiq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Credentials identify a SleepIQ account.
type Credentials struct {
	Username string
	Password string
}

// Validate rejects empty credentials before any network call is made.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}
	return nil
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Key *string `json:"key"`
}

// Login authenticates and stores the session token.
// A response without a token yields ErrNotAuthenticated.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

// Logout forgets the current session token.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// Authenticated reports whether the client currently holds a token.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// loginLocked must be called with c.mu held.
func (c *Client) loginLocked(ctx context.Context) (string, error) {
	c.token = ""

	if err := c.creds.Validate(); err != nil {
		return "", err
	}

	resp, err := c.transport.Do(ctx, &Request{
		Method: http.MethodPut,
		URL:    c.url("login"),
		Body:   loginRequest{Login: c.creds.Username, Password: c.creds.Password},
	})
	if err != nil {
		return "", transportError("login", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w: rejected by server", ErrInvalidCredentials)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &ServerError{Status: resp.StatusCode, Endpoint: "login"}
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", &MalformedResponseError{Endpoint: "login", Err: err}
	}
	if body.Key == nil || *body.Key == "" {
		log.Warn().Msg("SleepIQ login response carried no session key")
		return "", fmt.Errorf("%w: login response has no key", ErrNotAuthenticated)
	}

	c.token = *body.Key
	c.generation++

	log.Debug().Uint64("generation", c.generation).Msg("SleepIQ session established")
	return c.token, nil
}

// session returns the current token, logging in first if there is none.
// The generation identifies the token for a later relogin call.
func (c *Client) session(ctx context.Context) (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		if _, err := c.loginLocked(ctx); err != nil {
			return "", 0, notAuthenticated(err)
		}
	}
	return c.token, c.generation, nil
}

// relogin replaces the token identified by seen. If another caller already
// refreshed it, the new token is kept and no login is performed.
func (c *Client) relogin(ctx context.Context, seen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.generation != seen {
		return nil
	}
	if _, err := c.loginLocked(ctx); err != nil {
		return notAuthenticated(err)
	}
	return nil
}
