// Package gqlclient is a minimal GraphQL-over-HTTP client for the backend
// API. It speaks POST {query, variables}, attaches the service x-api-key and
// an optional bearer token, and surfaces the errors array as a typed error.
package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func New(url, apiKey string, options ...Option) *Client {
	c := &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Request is one GraphQL operation.
type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Error carries the messages of a GraphQL errors array.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

// The backend does not use HTTP status codes reliably for auth failures,
// so callers sniff error messages instead.
var authErrorSubstrings = []string{
	"invalid token",
	"expired token",
	"unauthenticated",
	"unauthorized",
}

// IsAuthError reports whether any error message looks like an auth failure.
func (e *Error) IsAuthError() bool {
	for _, message := range e.Messages {
		lower := strings.ToLower(message)
		for _, pattern := range authErrorSubstrings {
			if strings.Contains(lower, pattern) {
				return true
			}
		}
	}
	return false
}

// IsAuthError reports whether err (or anything it wraps) is a GraphQL auth
// error.
func IsAuthError(err error) bool {
	var gqlErr *Error
	return errors.As(err, &gqlErr) && gqlErr.IsAuthError()
}

// Execute runs the operation and unmarshals the response's data field into
// out (which may be nil to discard). bearer is attached as Authorization
// when non-empty.
func (c *Client) Execute(ctx context.Context, gqlReq Request, bearer string, out interface{}) error {
	payload, err := json.Marshal(gqlReq)
	if err != nil {
		return errors.Wrap(err, "[Client.Execute] marshalling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[Client.Execute] building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Client.Execute] executing request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "[Client.Execute] reading response body")
	}

	if gqlErrors := gjson.GetBytes(body, "errors"); gqlErrors.IsArray() {
		gqlErr := &Error{}
		for _, e := range gqlErrors.Array() {
			gqlErr.Messages = append(gqlErr.Messages, e.Get("message").String())
		}
		return gqlErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("[Client.Execute] unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return errors.New("[Client.Execute] response missing data field")
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return errors.Wrap(err, "[Client.Execute] unmarshalling data")
	}
	return nil
}
