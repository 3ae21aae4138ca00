package oidc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxBodySize caps how much of any upstream response we read.
const maxBodySize = 1 << 20

// doRequest performs an HTTP request with the client's HTTP client. token,
// if non-empty, is sent as a bearer credential.
func (c *Client) doRequest(
	ctx context.Context,
	method, url string,
	body io.Reader,
	token string,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (c *Client) postForm(ctx context.Context, url string, data url.Values) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPost, url, strings.NewReader(data.Encode()), "",
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func (c *Client) sendJSON(ctx context.Context, method, url, token string, v any) (*http.Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, method, url, bytes.NewReader(b), token,
		map[string]string{"Content-Type": "application/json"})
}

// decodeJSON decodes a JSON response into target, or returns a typed
// *OAuth2Error when the status is not the expected one.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus drains the body and returns a typed error unless the status
// is one of ok.
func checkStatus(resp *http.Response, ok ...int) error {
	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	for _, s := range ok {
		if resp.StatusCode == s {
			return nil
		}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
	return parseErrorResponse(resp, bodyBytes)
}
