// Package client talks to the discovery conversation service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
)

// DefaultServerURL is used when no server is configured.
const DefaultServerURL = "http://localhost:8000"

const (
	pathSession  = "/api/session"
	pathMessage  = "/api/session/message"
	pathApproval = "/api/session/approve-summary"
	pathReport   = "/api/session/report"
)

// Client is a session.Service over the service's REST API.
type Client struct {
	baseURL   string
	token     string
	projectID string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithProject scopes every request to a project the stakeholder belongs to.
func WithProject(id string) Option {
	return func(c *Client) { c.projectID = id }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for baseURL authenticated with a bearer token.
// Pass an empty token to skip authorization headers.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ProjectID returns the configured project scope.
func (c *Client) ProjectID() string { return c.projectID }

// FetchSession returns the stakeholder's current session.
func (c *Client) FetchSession(ctx context.Context) (session.Session, error) {
	var s session.Session
	if err := c.do(ctx, http.MethodGet, pathSession, nil, &s); err != nil {
		return session.Session{}, fmt.Errorf("fetch session: %w", err)
	}
	return s, nil
}

// SendMessage posts text, either stakeholder input or a control token.
func (c *Client) SendMessage(ctx context.Context, text string) (session.Reply, error) {
	var r session.Reply
	body := struct {
		Message string `json:"message"`
	}{Message: text}
	if err := c.do(ctx, http.MethodPost, pathMessage, body, &r); err != nil {
		return session.Reply{}, fmt.Errorf("send message: %w", err)
	}
	return r, nil
}

// SubmitApproval approves the pending summary or requests changes to it.
func (c *Client) SubmitApproval(ctx context.Context, req session.ApprovalRequest) (session.Session, error) {
	var s session.Session
	if err := c.do(ctx, http.MethodPost, pathApproval, req, &s); err != nil {
		return session.Session{}, fmt.Errorf("submit approval: %w", err)
	}
	return s, nil
}

// FetchReport returns the final discovery report.
func (c *Client) FetchReport(ctx context.Context) (session.Report, error) {
	var r session.Report
	if err := c.do(ctx, http.MethodGet, pathReport, nil, &r); err != nil {
		return session.Report{}, fmt.Errorf("fetch report: %w", err)
	}
	return r, nil
}

func (c *Client) endpoint(path string) string {
	u := c.baseURL + path
	if c.projectID != "" {
		u += "?" + url.Values{"project_id": {c.projectID}}.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Body: parseDetail(respBody)}
		log.WarningLog.Printf("%s %s [%s]: %v", method, path, reqID, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ session.Service = (*Client)(nil)
