package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://provinces.open-api.vn/api"
	defaultTimeout             = 10 * time.Second
	errorBodyReadLimit   int64 = 1024
	responseBodyMaxBytes int64 = 4 << 20
)

// Division is a province, district or ward reduced to what the checkout form needs.
type Division struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Client proxies the public Vietnamese administrative divisions API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the upstream base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a locations client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Provinces lists every province.
func (c *Client) Provinces(ctx context.Context) ([]Division, error) {
	return c.fetch(ctx, "p/", "")
}

// Districts lists the districts of a province.
func (c *Client) Districts(ctx context.Context, provinceCode string) ([]Division, error) {
	code, err := cleanCode(provinceCode)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, fmt.Sprintf("p/%s?depth=2", url.PathEscape(code)), "districts")
}

// Wards lists the wards of a district.
func (c *Client) Wards(ctx context.Context, districtCode string) ([]Division, error) {
	code, err := cleanCode(districtCode)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, fmt.Sprintf("d/%s?depth=2", url.PathEscape(code)), "wards")
}

func (c *Client) fetch(ctx context.Context, path, field string) ([]Division, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "locations client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build locations request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locations request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "locations request failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read locations response")
	}
	divisions, err := decodeDivisions(body, field)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode locations response")
	}
	return divisions, nil
}

// decodeDivisions accepts either a bare array or an object nesting the list under field.
func decodeDivisions(body []byte, field string) ([]Division, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []Division
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return nonNil(list), nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{field, "districts", "wards", "data"} {
		raw, ok := wrapper[key]
		if key == "" || !ok {
			continue
		}
		var list []Division
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return nonNil(list), nil
	}
	return []Division{}, nil
}

func nonNil(list []Division) []Division {
	if list == nil {
		return []Division{}
	}
	return list
}

func cleanCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "location code is required")
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "location code must be numeric")
		}
	}
	return trimmed, nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
