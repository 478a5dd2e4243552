// Package api is the HTTP client for the Axora task server. It covers
// authentication, tasks, categories, users, comments, and the
// notification endpoints used to reconcile the in-memory notification
// state. Failures surface to the caller; this layer performs no
// retries of its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin JSON-over-HTTP client with bearer authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. The token may
// be empty until Login succeeds; SetToken installs it afterwards.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken replaces the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// get performs an HTTP GET and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs an HTTP POST with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// patch performs an HTTP PATCH with an optional JSON body.
func (c *Client) patch(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// put performs an HTTP PUT with a JSON body.
func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// delete performs an HTTP DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do builds the request, attaches auth, and handles JSON
// (de)serialization and error mapping.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden {
		return &AuthError{
			Message: fmt.Sprintf(
				"server rejected credentials (%d) on %s %s",
				resp.StatusCode, method, path,
			),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var serverErr errorResponse
		if json.Unmarshal(respBody, &serverErr) == nil && serverErr.Message != "" {
			return fmt.Errorf(
				"server error (%d) on %s %s: %s",
				resp.StatusCode, method, path, serverErr.Message,
			)
		}
		return fmt.Errorf(
			"unexpected status %d on %s %s: %s",
			resp.StatusCode, method, path, string(respBody),
		)
	}

	// No content to parse (e.g. 204, or bare PATCH acknowledgments).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w", method, path, err,
		)
	}

	return nil
}

// errorResponse is the server's JSON error envelope.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
