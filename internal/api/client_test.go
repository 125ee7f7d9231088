package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("api.example.com:9000/v1?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "api.example.com:9000" || u.Path != "" || u.RawQuery != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

type recorded struct {
	method string
	path   string
	auth   string
	agent  string
	body   map[string]any
}

func TestClient_RoutesAndHeaders(t *testing.T) {
	t.Parallel()

	var got []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			auth:   r.Header.Get("Authorization"),
			agent:  r.Header.Get("User-Agent"),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		got = append(got, rec)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	calls := []struct {
		name   string
		call   func() (json.RawMessage, error)
		method string
		path   string
		auth   string
	}{
		{"login", func() (json.RawMessage, error) { return c.Login(ctx, "a@x", "pw") }, "POST", "/api/auth/login", ""},
		{"register", func() (json.RawMessage, error) { return c.Register(ctx, Registration{Email: "a@x"}) }, "POST", "/api/auth/register", ""},
		{"user", func() (json.RawMessage, error) { return c.FetchUser(ctx, "u1", "tok") }, "GET", "/api/users/u1", "Bearer tok"},
		{"update", func() (json.RawMessage, error) { return c.UpdateUser(ctx, "u1", "tok", map[string]any{"name": "n"}) }, "PUT", "/api/users/u1", "Bearer tok"},
		{"remove", func() (json.RawMessage, error) { return c.RemoveAddress(ctx, "u1", "a 1", "tok") }, "DELETE", "/api/users/u1/address/a%201", "Bearer tok"},
		{"default", func() (json.RawMessage, error) { return c.SetDefaultAddress(ctx, "u1", "a1", "tok") }, "PUT", "/api/users/u1/address/a1/default", "Bearer tok"},
		{"create", func() (json.RawMessage, error) {
			return c.CreateRequest(ctx, "tok", CreateRequestBody{CustomerID: "u1", Litres: 20})
		}, "POST", "/api/requests", "Bearer tok"},
		{"get", func() (json.RawMessage, error) { return c.FetchRequest(ctx, "r1", "tok") }, "GET", "/api/requests/r1", "Bearer tok"},
		{"customer", func() (json.RawMessage, error) { return c.FetchCustomerRequests(ctx, "u1", "tok") }, "GET", "/api/requests/customer/u1", "Bearer tok"},
		{"confirm", func() (json.RawMessage, error) { return c.ConfirmDelivery(ctx, "r1", "tok") }, "POST", "/api/requests/r1/confirm-delivery", "Bearer tok"},
		{"pending", func() (json.RawMessage, error) { return c.FetchPendingRequests(ctx, "tok") }, "GET", "/api/requests/pending", "Bearer tok"},
		{"accept", func() (json.RawMessage, error) { return c.AcceptRequest(ctx, "r1", "tok", map[string]any{"name": "P"}) }, "PUT", "/api/requests/r1/accept", "Bearer tok"},
	}

	for i, tc := range calls {
		payload, err := tc.call()
		if err != nil {
			t.Fatalf("%s returned error: %v", tc.name, err)
		}
		if string(payload) != `{"ok":true}` {
			t.Fatalf("%s payload = %s", tc.name, payload)
		}
		rec := got[i]
		if rec.method != tc.method || rec.path != tc.path || rec.auth != tc.auth {
			t.Fatalf("%s sent %s %s auth=%q, want %s %s auth=%q", tc.name, rec.method, rec.path, rec.auth, tc.method, tc.path, tc.auth)
		}
		if !strings.HasPrefix(rec.agent, "tanker/") {
			t.Fatalf("%s User-Agent = %q, want tanker/*", tc.name, rec.agent)
		}
	}

	if got[6].body["litres"] != float64(20) || got[6].body["customerId"] != "u1" {
		t.Fatalf("create body = %#v", got[6].body)
	}
	if got[0].body["email"] != "a@x" || got[0].body["password"] != "pw" {
		t.Fatalf("login body = %#v", got[0].body)
	}
}

func TestClient_ErrorsCarryBackendMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/u1":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"User not found"}`))
		case "/api/requests/r1/accept":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"already accepted"}`))
		case "/api/requests/pending":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/api/requests/r2":
			_, _ = w.Write([]byte("{not-json"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, 0)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.FetchUser(ctx, "u1", "tok")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("FetchUser error = %v, want 404 *Error", err)
	}
	if got := MessageOr(err, "fallback"); got != "User not found" {
		t.Fatalf("MessageOr = %q, want backend message", got)
	}

	_, err = c.AcceptRequest(ctx, "r1", "tok", nil)
	if !errors.As(err, &apiErr) || !apiErr.IsConflict() || apiErr.Message != "already accepted" {
		t.Fatalf("AcceptRequest error = %#v, want conflict with message", err)
	}

	_, err = c.FetchPendingRequests(ctx, "tok")
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchPendingRequests error = %v, want status 500", err)
	}
	if got := MessageOr(err, "Could not load requests"); got != "Could not load requests" {
		t.Fatalf("MessageOr = %q, want fallback", got)
	}

	_, err = c.FetchRequest(ctx, "r2", "tok")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchRequest error = %v, want decode response error", err)
	}
}

func TestClient_EmptyPathSegmentRejected(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", 0)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.FetchUser(context.Background(), " ", "tok"); err == nil {
		t.Fatal("FetchUser with blank uid returned nil error")
	}
}

func TestMessageOr_NetworkErrorUsesDefault(t *testing.T) {
	if got := MessageOr(errors.New("dial tcp: refused"), ""); got != DefaultMessage {
		t.Fatalf("MessageOr = %q, want %q", got, DefaultMessage)
	}
}
