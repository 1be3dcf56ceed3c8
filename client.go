package main

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

// A Call is one HTTP exchange as the stats see it. Nothing is recorded until
// the caller hands it to Stats.Record, so an action can look at the response
// and mark it failed first.
type Call struct {
	Method     string
	Name       string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Err        error
}

// Failure marks the call failed with err, replacing whatever the status code
// said.
func (c *Call) Failure(err error) {
	c.Err = err
}

func (c *Call) Failed() bool {
	return c.Err != nil
}

// Client issues requests against the paste API. It is shared by all
// sessions; it holds no per-session state.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(base *url.URL, timeout time.Duration, maxConns int) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if maxConns > 0 {
		transport.MaxIdleConns = maxConns
		transport.MaxIdleConnsPerHost = maxConns
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.base.String(), "/") + path
}

// PostJSON sends v as a JSON body. The returned call is labeled with name.
func (c *Client) PostJSON(ctx context.Context, path, name string, v any) *Call {
	call := &Call{Method: http.MethodPost, Name: name}
	body, err := json.Marshal(v)
	if err != nil {
		call.Err = fmt.Errorf("encoding request: %w", err)
		return call
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		call.Err = err
		return call
	}
	req.Header.Set("Content-Type", "application/json")
	c.do(req, call)
	return call
}

func (c *Client) Get(ctx context.Context, path, name string) *Call {
	call := &Call{Method: http.MethodGet, Name: name}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		call.Err = err
		return call
	}
	c.do(req, call)
	return call
}

func (c *Client) do(req *http.Request, call *Call) {
	start := time.Now()
	defer func() { call.Duration = time.Since(start) }()

	resp, err := c.http.Do(req)
	if err != nil {
		call.Err = err
		return
	}
	defer resp.Body.Close()

	call.StatusCode = resp.StatusCode
	call.Body, err = io.ReadAll(resp.Body)
	if err != nil {
		call.Err = fmt.Errorf("reading response: %w", err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		call.Err = fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
}
