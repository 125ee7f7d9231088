package api

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

// Backend is the marketplace REST surface the stores depend on. It is
// implemented by *Client and can be faked in tests.
type Backend interface {
	Login(ctx context.Context, email, password string) (json.RawMessage, error)
	Register(ctx context.Context, reg Registration) (json.RawMessage, error)
	FetchUser(ctx context.Context, uid, token string) (json.RawMessage, error)
	UpdateUser(ctx context.Context, uid, token string, body any) (json.RawMessage, error)
	RemoveAddress(ctx context.Context, uid, addressID, token string) (json.RawMessage, error)
	SetDefaultAddress(ctx context.Context, uid, addressID, token string) (json.RawMessage, error)
	CreateRequest(ctx context.Context, token string, body CreateRequestBody) (json.RawMessage, error)
	FetchRequest(ctx context.Context, requestID, token string) (json.RawMessage, error)
	FetchCustomerRequests(ctx context.Context, uid, token string) (json.RawMessage, error)
	ConfirmDelivery(ctx context.Context, requestID, token string) (json.RawMessage, error)
	FetchPendingRequests(ctx context.Context, token string) (json.RawMessage, error)
	AcceptRequest(ctx context.Context, requestID, token string, body any) (json.RawMessage, error)
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// Client talks to the marketplace HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBaseURL        = "http://127.0.0.1:8080"
	defaultUserAgent      = "tanker/0.1"
	defaultRequestTimeout = 10 * time.Second
	maxErrorBody          = 64 << 10
)

// NewClient builds a Client for baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Registration is the sign-up payload.
type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// CreateRequestBody is the payload of POST /api/requests.
type CreateRequestBody struct {
	CustomerID string          `json:"customerId"`
	Litres     int             `json:"litres"`
	Location   RequestLocation `json:"location"`
	Date       string          `json:"date"`
}

// RequestLocation mirrors the drop-off object the backend expects.
type RequestLocation struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Login exchanges email and password for a user and token.
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	body := map[string]string{"email": email, "password": password}
	return c.send(ctx, http.MethodPost, "", body, "api", "auth", "login")
}

// Register creates an account and returns the new user and token.
func (c *Client) Register(ctx context.Context, reg Registration) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, "", reg, "api", "auth", "register")
}

// FetchUser retrieves the user record, address book included. The reply omits the uid.
func (c *Client) FetchUser(ctx context.Context, uid, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, token, nil, "api", "users", uid)
}

// UpdateUser PUTs a partial user record. An "address" list in body is
// appended to the address book by the backend.
func (c *Client) UpdateUser(ctx context.Context, uid, token string, body any) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPut, token, body, "api", "users", uid)
}

// RemoveAddress deletes one address from the user's book.
func (c *Client) RemoveAddress(ctx context.Context, uid, addressID, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodDelete, token, nil, "api", "users", uid, "address", addressID)
}

// SetDefaultAddress marks one address as the user's default.
func (c *Client) SetDefaultAddress(ctx context.Context, uid, addressID, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPut, token, nil, "api", "users", uid, "address", addressID, "default")
}

// CreateRequest posts a new water delivery request.
func (c *Client) CreateRequest(ctx context.Context, token string, body CreateRequestBody) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, token, body, "api", "requests")
}

// FetchRequest retrieves a single request by id.
func (c *Client) FetchRequest(ctx context.Context, requestID, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, token, nil, "api", "requests", requestID)
}

// FetchCustomerRequests retrieves every request placed by the customer uid.
func (c *Client) FetchCustomerRequests(ctx context.Context, uid, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, token, nil, "api", "requests", "customer", uid)
}

// ConfirmDelivery records that the customer received the water.
func (c *Client) ConfirmDelivery(ctx context.Context, requestID, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, token, nil, "api", "requests", requestID, "confirm-delivery")
}

// FetchPendingRequests retrieves the requests no provider has accepted yet.
func (c *Client) FetchPendingRequests(ctx context.Context, token string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, token, nil, "api", "requests", "pending")
}

// AcceptRequest claims a pending request for the provider summary in body.
// A request someone else already took answers 409.
func (c *Client) AcceptRequest(ctx context.Context, requestID, token string, body any) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPut, token, body, "api", "requests", requestID, "accept")
}

func (c *Client) send(ctx context.Context, method, token string, body any, segments ...string) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%s %s: empty path segment", method, strings.Join(segments, "/"))
		}
	}
	rel := &url.URL{Path: "/" + strings.Join(segments, "/")}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	rel.RawPath = "/" + strings.Join(escaped, "/")
	return c.doURL(ctx, method, rel, token, body)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, token string, body any) (json.RawMessage, error) {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(method, rel.Path, resp.StatusCode, raw)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decode response: invalid JSON from %s %s", method, rel.Path)
	}
	return json.RawMessage(raw), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
