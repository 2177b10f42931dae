package nango

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

// Client communicates with the Nango OAuth broker over HTTP.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// New creates a Client targeting the given Nango base URL.
func New(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateConnectSession requests a short-lived session token scoped to the
// given user and integration.
func (c *Client) CreateConnectSession(ctx context.Context, endUser EndUser, providerConfigKey string) (*ConnectSession, error) {
	body := ConnectSessionRequest{
		EndUser:             endUser,
		AllowedIntegrations: []string{providerConfigKey},
	}

	var resp connectSessionResponse
	if err := c.do(ctx, http.MethodPost, "/connect/sessions", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create connect session: %w", err)
	}

	return &resp.Data, nil
}

// GetConnection exchanges an external connection id for the provider
// credentials Nango holds.
func (c *Client) GetConnection(ctx context.Context, connectionID, providerConfigKey string) (*Connection, error) {
	query := url.Values{"provider_config_key": {providerConfigKey}}

	var conn Connection
	if err := c.do(ctx, http.MethodGet, "/connection/"+url.PathEscape(connectionID), query, nil, &conn); err != nil {
		return nil, fmt.Errorf("failed to get connection %s: %w", connectionID, err)
	}

	return &conn, nil
}

// DeleteConnection revokes a connection on the broker side.
func (c *Client) DeleteConnection(ctx context.Context, connectionID, providerConfigKey string) error {
	query := url.Values{"provider_config_key": {providerConfigKey}}

	if err := c.do(ctx, http.MethodDelete, "/connection/"+url.PathEscape(connectionID), query, nil, nil); err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", connectionID, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr errorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("nango returned %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	return fmt.Errorf("nango returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
