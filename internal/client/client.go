// Package client is a Go client for the taskboard HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
	Debug     bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}

// Organization is an organization the caller belongs to.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a membership of an organization.
type Member struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the caller's profile.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	ExternalUID string    `json:"external_uid"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
}

// APIError is a non-2xx response. Message is the server's user-facing message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Client calls the taskboard API with a bearer token.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. Requests are traced through otelhttp.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var resp struct {
		Organizations []Organization `json:"organizations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/organizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organizations, nil
}

func (c *Client) CreateOrganization(ctx context.Context, name string) (uuid.UUID, error) {
	var resp struct {
		OrganizationID uuid.UUID `json:"organization_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/organizations", map[string]string{"name": name}, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.OrganizationID, nil
}

func (c *Client) CheckAccess(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/organizations/"+orgID.String()+"/access", nil, &resp); err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

func (c *Client) Members(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/organizations/"+orgID.String()+"/members", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.ServerURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
