package sleepiq

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// userAgent mimics a desktop browser; the vendor API rejects unknown agents.
const userAgent = "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/28.0.1500.95 Safari/537.36"

// Request is a single HTTP exchange handed to a Transport.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Body   any // marshalled as JSON when non-nil
}

// Response is the raw result of a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs HTTP exchanges. Implementations must return a non-nil error
// only for transport-level failures; HTTP error statuses are reported in Response.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// RestyTransport is the default Transport, backed by go-resty.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport with the given per-request timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &RestyTransport{client: client}
}

// Do implements Transport.
func (t *RestyTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// Close releases idle connections.
func (t *RestyTransport) Close() {
	t.client.GetClient().CloseIdleConnections()
}
