// Package testutil provides an in-memory marketplace backend served over
// httptest so store tests exercise the real HTTP client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Route patterns, usable with FailNext and Hold.
const (
	RouteLogin          = "POST /api/auth/login"
	RouteRegister       = "POST /api/auth/register"
	RouteUser           = "GET /api/users/{uid}"
	RouteUpdateUser     = "PUT /api/users/{uid}"
	RouteRemoveAddress  = "DELETE /api/users/{uid}/address/{id}"
	RouteDefaultAddress = "PUT /api/users/{uid}/address/{id}/default"
	RouteCreateRequest  = "POST /api/requests"
	RoutePending        = "GET /api/requests/pending"
	RouteCustomer       = "GET /api/requests/customer/{uid}"
	RouteRequest        = "GET /api/requests/{id}"
	RouteConfirm        = "POST /api/requests/{id}/confirm-delivery"
	RouteAccept         = "PUT /api/requests/{id}/accept"
)

// Envelope selects how user replies are wrapped.
type Envelope string

const (
	EnvelopeDataUser Envelope = "data.user"
	EnvelopeData     Envelope = "data"
	EnvelopeUser     Envelope = "user"
	EnvelopeBare     Envelope = "bare"
)

// Token is the bearer token the fake backend accepts.
const Token = "test-token"

type failure struct {
	status  int
	message string
}

// Backend is a fake marketplace API.
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	users        map[string]map[string]any
	passwords    map[string]string
	requests     []map[string]any
	nextID       int
	failures     map[string][]failure
	holds        map[string][]chan struct{}
	calls        []string
	userEnvelope Envelope
	spreadAccept bool
}

// NewBackend starts a fake backend closed with t.Cleanup.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users:        map[string]map[string]any{},
		passwords:    map[string]string{},
		failures:     map[string][]failure{},
		holds:        map[string][]chan struct{}{},
		userEnvelope: EnvelopeDataUser,
	}

	mux := http.NewServeMux()
	b.handle(mux, RouteLogin, false, b.login)
	b.handle(mux, RouteRegister, false, b.register)
	b.handle(mux, RouteUser, true, b.getUser)
	b.handle(mux, RouteUpdateUser, true, b.updateUser)
	b.handle(mux, RouteRemoveAddress, true, b.removeAddress)
	b.handle(mux, RouteDefaultAddress, true, b.defaultAddress)
	b.handle(mux, RouteCreateRequest, true, b.createRequest)
	b.handle(mux, RoutePending, true, b.pending)
	b.handle(mux, RouteCustomer, true, b.customer)
	b.handle(mux, RouteRequest, true, b.getRequest)
	b.handle(mux, RouteConfirm, true, b.confirm)
	b.handle(mux, RouteAccept, true, b.accept)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the server base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetUserEnvelope changes how user replies are wrapped.
func (b *Backend) SetUserEnvelope(e Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userEnvelope = e
}

// SpreadProviderOnAccept stores accepted providers as top-level fields
// instead of a nested object.
func (b *Backend) SpreadProviderOnAccept(spread bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spreadAccept = spread
}

// AddUser seeds an account.
func (b *Backend) AddUser(uid, name, email, password, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[uid] = map[string]any{
		"name":         name,
		"email":        email,
		"role":         role,
		"phoneNumber":  "555-0100",
		"rating":       4.5,
		"totalReviews": 8,
		"address":      []any{},
	}
	b.passwords[email] = password
}

// AddAddress seeds an address entry (raw, so malformed entries are possible).
func (b *Backend) AddAddress(uid string, entry map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user := b.users[uid]
	list, _ := user["address"].([]any)
	user["address"] = append(list, entry)
}

// AddRequest seeds a delivery request and returns its id.
func (b *Backend) AddRequest(customerID string, litres int, status string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addRequestLocked(map[string]any{
		"customerId": customerID,
		"litres":     litres,
		"location":   map[string]any{"address": "1 Well Rd", "latitude": 1.0, "longitude": 2.0},
		"date":       "2026-10-20",
	}, status)
}

func (b *Backend) addRequestLocked(req map[string]any, status string) string {
	b.nextID++
	id := fmt.Sprintf("req-%d", b.nextID)
	req["id"] = id
	req["status"] = status
	req["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	b.requests = append(b.requests, req)
	return id
}

// Request returns a copy of a stored request.
func (b *Backend) Request(id string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req := b.findLocked(id); req != nil {
		dup := make(map[string]any, len(req))
		for k, v := range req {
			dup[k] = v
		}
		return dup
	}
	return nil
}

// SetStatus changes a stored request's status out of band.
func (b *Backend) SetStatus(id, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req := b.findLocked(id); req != nil {
		req["status"] = status
	}
}

// FailNext makes the next call to route fail with status and message.
func (b *Backend) FailNext(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], failure{status: status, message: message})
}

// Hold makes the next call to route block until release is called.
func (b *Backend) Hold(route string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.holds[route] = append(b.holds[route], ch)
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns the route patterns served so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount counts served calls for route.
func (b *Backend) CallCount(route string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == route {
			n++
		}
	}
	return n
}

type handlerFunc func(r *http.Request, body map[string]any) (int, any)

func (b *Backend) handle(mux *http.ServeMux, route string, auth bool, fn handlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, route)
		var hold chan struct{}
		if queue := b.holds[route]; len(queue) > 0 {
			hold, b.holds[route] = queue[0], queue[1:]
		}
		var fail *failure
		if queue := b.failures[route]; len(queue) > 0 {
			fail = &queue[0]
			b.failures[route] = queue[1:]
		}
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if fail != nil {
			writeJSON(w, fail.status, map[string]any{"message": fail.message})
			return
		}
		if auth && r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}

		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		b.mu.Lock()
		status, reply := fn(r, body)
		encoded, _ := json.Marshal(reply)
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(encoded)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) wrapUser(rec map[string]any) any {
	switch b.userEnvelope {
	case EnvelopeData:
		return map[string]any{"data": rec}
	case EnvelopeUser:
		return map[string]any{"user": rec}
	case EnvelopeBare:
		return rec
	default:
		return map[string]any{"data": map[string]any{"user": rec}}
	}
}

func (b *Backend) login(_ *http.Request, body map[string]any) (int, any) {
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if want, ok := b.passwords[email]; !ok || want != password {
		return http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"}
	}
	for uid, rec := range b.users {
		if rec["email"] == email {
			user := copyMap(rec)
			user["uid"] = uid
			return http.StatusOK, map[string]any{"token": Token, "user": user}
		}
	}
	return http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"}
}

func (b *Backend) register(_ *http.Request, body map[string]any) (int, any) {
	email, _ := body["email"].(string)
	if _, exists := b.passwords[email]; exists {
		return http.StatusConflict, map[string]any{"message": "Email already registered"}
	}
	uid := fmt.Sprintf("user-%d", len(b.users)+1)
	rec := map[string]any{
		"name":        body["name"],
		"email":       email,
		"role":        body["role"],
		"phoneNumber": body["phoneNumber"],
		"address":     []any{},
	}
	b.users[uid] = rec
	b.passwords[email], _ = body["password"].(string)
	user := copyMap(rec)
	user["uid"] = uid
	return http.StatusCreated, map[string]any{"data": map[string]any{"token": Token, "user": user}}
}

func (b *Backend) getUser(r *http.Request, _ map[string]any) (int, any) {
	rec, ok := b.users[r.PathValue("uid")]
	if !ok {
		return http.StatusNotFound, map[string]any{"message": "User not found"}
	}
	// The by-id endpoint omits the uid.
	return http.StatusOK, b.wrapUser(copyMap(rec))
}

func (b *Backend) updateUser(r *http.Request, body map[string]any) (int, any) {
	rec, ok := b.users[r.PathValue("uid")]
	if !ok {
		return http.StatusNotFound, map[string]any{"message": "User not found"}
	}
	for _, field := range []string{"name", "phoneNumber"} {
		if v, ok := body[field]; ok {
			rec[field] = v
		}
	}
	if added, ok := body["address"].([]any); ok {
		list, _ := rec["address"].([]any)
		rec["address"] = append(list, added...)
	}
	return http.StatusOK, map[string]any{"message": "User updated"}
}

func (b *Backend) removeAddress(r *http.Request, _ map[string]any) (int, any) {
	rec, ok := b.users[r.PathValue("uid")]
	if !ok {
		return http.StatusNotFound, map[string]any{"message": "User not found"}
	}
	list, _ := rec["address"].([]any)
	kept := make([]any, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok && m["id"] == r.PathValue("id") {
			continue
		}
		kept = append(kept, entry)
	}
	rec["address"] = kept
	return http.StatusOK, map[string]any{"message": "Address removed"}
}

func (b *Backend) defaultAddress(r *http.Request, _ map[string]any) (int, any) {
	rec, ok := b.users[r.PathValue("uid")]
	if !ok {
		return http.StatusNotFound, map[string]any{"message": "User not found"}
	}
	list, _ := rec["address"].([]any)
	found := false
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			m["isDefault"] = m["id"] == r.PathValue("id")
			found = found || m["id"] == r.PathValue("id")
		}
	}
	if !found {
		return http.StatusNotFound, map[string]any{"message": "Address not found"}
	}
	return http.StatusOK, map[string]any{"message": "Default address updated"}
}

func (b *Backend) createRequest(_ *http.Request, body map[string]any) (int, any) {
	if body == nil {
		return http.StatusBadRequest, map[string]any{"message": "Invalid body"}
	}
	req := copyMap(body)
	b.addRequestLocked(req, "pending")
	return http.StatusCreated, map[string]any{"message": "Request created", "request": copyMap(req)}
}

func (b *Backend) pending(_ *http.Request, _ map[string]any) (int, any) {
	out := []any{}
	for _, req := range b.requests {
		if req["status"] == "pending" {
			out = append(out, copyMap(req))
		}
	}
	return http.StatusOK, out
}

func (b *Backend) customer(r *http.Request, _ map[string]any) (int, any) {
	out := []any{}
	for _, req := range b.requests {
		if req["customerId"] == r.PathValue("uid") {
			out = append(out, copyMap(req))
		}
	}
	return http.StatusOK, map[string]any{"requests": out}
}

func (b *Backend) getRequest(r *http.Request, _ map[string]any) (int, any) {
	req := b.findLocked(r.PathValue("id"))
	if req == nil {
		return http.StatusNotFound, map[string]any{"message": "Request not found"}
	}
	return http.StatusOK, map[string]any{"data": copyMap(req)}
}

func (b *Backend) confirm(r *http.Request, _ map[string]any) (int, any) {
	req := b.findLocked(r.PathValue("id"))
	if req == nil {
		return http.StatusNotFound, map[string]any{"message": "Request not found"}
	}
	if req["status"] != "confirmed" {
		return http.StatusBadRequest, map[string]any{"message": "Request is not awaiting delivery"}
	}
	req["status"] = "delivered"
	req["deliveredAt"] = time.Now().UTC().Format(time.RFC3339)
	return http.StatusOK, map[string]any{"message": "Delivery confirmed"}
}

func (b *Backend) accept(r *http.Request, body map[string]any) (int, any) {
	req := b.findLocked(r.PathValue("id"))
	if req == nil {
		return http.StatusNotFound, map[string]any{"message": "Request not found"}
	}
	if req["status"] != "pending" {
		return http.StatusConflict, map[string]any{"message": "Request already accepted"}
	}
	req["status"] = "confirmed"
	if b.spreadAccept {
		for k, v := range body {
			req["provider"+strings.ToUpper(k[:1])+k[1:]] = v
		}
	} else {
		req["provider"] = copyMap(body)
	}
	return http.StatusOK, map[string]any{"message": "Request accepted"}
}

func (b *Backend) findLocked(id string) map[string]any {
	for _, req := range b.requests {
		if req["id"] == id {
			return req
		}
	}
	return nil
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
