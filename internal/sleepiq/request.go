package sleepiq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// outletEndpoint marks endpoints where 404 means "this outlet does not exist".
const outletEndpoint = "foundation/outlet"

// get performs a GET and returns the raw JSON payload.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	return c.execute(ctx, http.MethodGet, endpoint, query, nil)
}

// put performs a PUT with a JSON body.
func (c *Client) put(ctx context.Context, endpoint string, query url.Values, body any) (json.RawMessage, error) {
	return c.execute(ctx, http.MethodPut, endpoint, query, body)
}

// execute sends an authenticated request and applies the status policy:
//
//	404 on an outlet GET       -> nil payload, no error
//	404 on an outlet write     -> *ServerError, no re-login
//	404, 401, 502              -> one re-login, then one retry
//	400, 503, anything non-2xx -> *ServerError
//	transport failure          -> *ConnectionError
//
// A nil payload with a nil error means the resource is absent.
func (c *Client) execute(ctx context.Context, method, endpoint string, query url.Values, body any) (json.RawMessage, error) {
	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}
	callerToken := params.Has(tokenParam)

	for attempt := 0; ; attempt++ {
		token, generation, err := c.session(ctx)
		if err != nil {
			return nil, err
		}
		if !callerToken {
			params.Set(tokenParam, token)
		}

		log.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Msg("SleepIQ request")

		resp, err := c.transport.Do(ctx, &Request{
			Method: method,
			URL:    c.url(endpoint),
			Query:  params,
			Body:   body,
		})
		if err != nil {
			return nil, transportError(endpoint, err)
		}

		status := resp.StatusCode
		if status == http.StatusNotFound && strings.Contains(endpoint, outletEndpoint) {
			if method != http.MethodGet {
				return nil, &ServerError{Status: status, Endpoint: endpoint}
			}
			return nil, nil
		}

		if needsRelogin(status) {
			if attempt > 0 {
				return nil, &ServerError{Status: status, Endpoint: endpoint}
			}
			log.Warn().
				Int("status", status).
				Str("endpoint", endpoint).
				Msg("SleepIQ session rejected, logging in again")
			if err := c.relogin(ctx, generation); err != nil {
				return nil, err
			}
			continue
		}

		if status < 200 || status >= 300 {
			return nil, &ServerError{Status: status, Endpoint: endpoint}
		}

		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			return nil, &UnexpectedResponseError{
				Endpoint:    endpoint,
				ContentType: contentType,
				Body:        string(resp.Body),
			}
		}

		payload := bytes.TrimSpace(resp.Body)
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			return nil, nil
		}
		return json.RawMessage(payload), nil
	}
}

func needsRelogin(status int) bool {
	switch status {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusBadGateway:
		return true
	}
	return false
}

func transportError(endpoint string, err error) error {
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	return &ConnectionError{Endpoint: endpoint, Timeout: timeout, Err: err}
}
