package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"rsswatch/domain"
)

// ErrNotRunning means nothing answered on the control address.
var ErrNotRunning = errors.New("background process is not running")

// APIError is a non-2xx answer from the control server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	addr string
	http *resty.Client
}

func NewClient(addr string) *Client {
	hc := resty.New().
		SetBaseURL("http://"+addr).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{addr: addr, http: hc}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var eb errorBody
	req := c.http.R().SetContext(ctx).SetError(&eb)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrNotRunning, c.addr, err)
	}
	if resp.IsError() {
		msg := eb.Error
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// SetInterval changes the refresh interval and returns the previous one.
func (c *Client) SetInterval(ctx context.Context, d time.Duration) (time.Duration, error) {
	var r struct {
		Old string `json:"old"`
		New string `json:"new"`
	}
	if err := c.do(ctx, http.MethodPost, "/set-interval", map[string]any{"duration": d.String()}, &r); err != nil {
		return 0, err
	}
	if r.Old == "" {
		return 0, nil
	}
	old, err := time.ParseDuration(r.Old)
	if err != nil {
		return 0, fmt.Errorf("bad interval in response: %w", err)
	}
	return old, nil
}

// SetWorkers changes the refresh concurrency and returns the previous value.
func (c *Client) SetWorkers(ctx context.Context, n int) (int, error) {
	var r struct {
		Old int `json:"old"`
		New int `json:"new"`
	}
	if err := c.do(ctx, http.MethodPost, "/set-workers", map[string]any{"workers": n}, &r); err != nil {
		return 0, err
	}
	return r.Old, nil
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var st StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// Refresh asks the daemon for an immediate refresh cycle. It returns
// domain.ErrRefreshInProgress if one is already running.
func (c *Client) Refresh(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/refresh", nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return domain.ErrRefreshInProgress
	}
	return err
}

func (c *Client) Start(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/start", nil, nil)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil)
}
