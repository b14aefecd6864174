package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running pulselink server. The CLI uses it so that only
// one process ever owns the handshake slot.
type Client struct {
	Base string
	HTTP *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		Base: base,
		HTTP: &http.Client{Timeout: 5 * time.Second},
	}
}

// StatusResponse mirrors GET /connect/status.
type StatusResponse struct {
	State   string         `json:"state"`
	Outcome map[string]any `json:"outcome,omitempty"`
}

// Available reports whether a server answers the health check at Base.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) Connect(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/connect", nil, http.StatusOK, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Cancel(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/connect", nil, http.StatusOK, nil)
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/connect/status", nil, http.StatusOK, &out)
	return out, err
}

// DeepLinkResult mirrors a successful POST /deeplink.
type DeepLinkResult struct {
	Handled      bool   `json:"handled"`
	Address      string `json:"address"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DeepLink forwards a URL the OS launched us with to the server and returns
// the session it resolved to.
func (c *Client) DeepLink(ctx context.Context, raw string) (DeepLinkResult, error) {
	var out DeepLinkResult
	err := c.do(ctx, http.MethodPost, "/deeplink", map[string]string{"url": raw}, http.StatusOK, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
