package dav

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/rs/zerolog"
)

const (
	methodPropfind = "PROPFIND"
	methodReport   = "REPORT"

	defaultTimeout = 30 * time.Second
)

// Credentials supplies the basic auth login and secret.
type Credentials interface {
	Credentials(ctx context.Context) (login, secret string, err error)
}

type Options struct {
	// BaseURL is scheme://host:port, without a trailing path.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Retries is the number of extra attempts after a transport failure or
	// a 5xx response. Zero disables retrying.
	Retries  int
	RetryMin time.Duration
	RetryMax time.Duration
}

// Client talks to a CardDAV server.
type Client struct {
	http    *req.Client
	baseURL string
	creds   Credentials
	logger  zerolog.Logger
}

func NewClient(opts Options, creds Credentials, logger zerolog.Logger) *Client {
	hc := req.C()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc.SetTimeout(timeout)
	if opts.UserAgent != "" {
		hc.SetUserAgent(opts.UserAgent)
	}

	if opts.Retries > 0 {
		minWait, maxWait := opts.RetryMin, opts.RetryMax
		if minWait <= 0 {
			minWait = 500 * time.Millisecond
		}
		if maxWait < minWait {
			maxWait = 10 * minWait
		}
		hc.SetCommonRetryCount(opts.Retries).
			SetCommonRetryBackoffInterval(minWait, maxWait).
			SetCommonRetryCondition(func(resp *req.Response, err error) bool {
				if err != nil {
					return true
				}
				return resp.Response != nil && resp.StatusCode >= http.StatusInternalServerError
			})
	}

	c := &Client{
		http:    hc,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		creds:   creds,
		logger:  logger,
	}
	hc.OnAfterResponse(c.logResponse)
	return c
}

func (c *Client) logResponse(_ *req.Client, resp *req.Response) error {
	if resp.Response == nil || resp.Request == nil {
		return nil
	}
	c.logger.Debug().
		Str("method", resp.Request.Method).
		Str("url", resp.Request.RawURL).
		Int("status", resp.StatusCode).
		Dur("duration", resp.TotalTime()).
		Msg("dav request")
	return nil
}

// url resolves a server path or an absolute href against the base URL.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

type basicAuth struct {
	login  string
	secret string
}

// authenticate resolves the credentials for one operation. It runs before
// any request of that operation is sent.
func (c *Client) authenticate(ctx context.Context, op string) (basicAuth, error) {
	if c.creds == nil {
		return basicAuth{}, authErr(op, nil)
	}
	login, secret, err := c.creds.Credentials(ctx)
	if err != nil {
		return basicAuth{}, authErr(op, err)
	}
	return basicAuth{login: login, secret: secret}, nil
}

// do sends one DAV request and returns the response body. Failing to send,
// failing to read and error statuses are transport failures.
func (c *Client) do(ctx context.Context, op string, a basicAuth, method, path, depth, body string) ([]byte, error) {
	r := c.http.R().
		SetContext(ctx).
		SetBasicAuth(a.login, a.secret).
		SetHeader("Content-Type", "application/xml; charset=utf-8").
		SetBodyString(body)
	if depth != "" {
		r.SetHeader("Depth", depth)
	}

	resp, err := r.Send(method, c.url(path))
	if err != nil {
		return nil, transportErr(op, err)
	}
	data, err := resp.ToBytes()
	if err != nil {
		return nil, transportErr(op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, transportErr(op, &StatusError{Code: resp.StatusCode, Status: resp.Status})
	}
	return data, nil
}

func (c *Client) propfind(ctx context.Context, op string, a basicAuth, path, depth, body string) ([]byte, error) {
	return c.do(ctx, op, a, methodPropfind, path, depth, body)
}

func (c *Client) report(ctx context.Context, op string, a basicAuth, path, depth, body string) ([]byte, error) {
	return c.do(ctx, op, a, methodReport, path, depth, body)
}
