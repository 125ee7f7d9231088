package pool

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/state"
	"github.com/five82/tanker/internal/testutil"
)

var driver = models.Provider{Name: "Omar", PhoneNumber: "555-0100", Email: "omar@example.com", Rating: 4.5, TotalReviews: 12}

func newStore(t *testing.T) (*Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	client, err := api.NewClient(backend.URL(), time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(client, logger.Nop()), backend
}

func ids(list []models.Request) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestGetAllRequests_OnlyPending(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	backend.AddRequest("c1", 200, "confirmed")
	b := backend.AddRequest("c2", 300, "pending")

	if err := s.GetAllRequests(context.Background(), testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}
	snap := s.Snapshot()
	if got := ids(snap.Requests); len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("pool = %v, want [%s %s]", got, a, b)
	}
	if snap.Loading || snap.Error != "" {
		t.Fatalf("sync = %#v", snap.Sync)
	}
}

func TestAcceptRequest_RemovesExactlyThatID(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	b := backend.AddRequest("c2", 300, "pending")
	ctx := context.Background()
	if err := s.GetAllRequests(ctx, testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}

	if err := s.AcceptRequest(ctx, testutil.Token, a, driver); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	snap := s.Snapshot()
	if got := ids(snap.Requests); len(got) != 1 || got[0] != b {
		t.Fatalf("pool = %v, want [%s]", got, b)
	}
	if !snap.Success {
		t.Fatal("Success = false after accept")
	}
	stored := backend.Request(a)
	if stored["status"] != "confirmed" {
		t.Fatalf("backend status = %v", stored["status"])
	}
	if p, ok := stored["provider"].(map[string]any); !ok || p["name"] != "Omar" {
		t.Fatalf("backend provider = %#v", stored["provider"])
	}
}

func TestAcceptRequest_ConflictRemovesItem(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	ctx := context.Background()
	if err := s.GetAllRequests(ctx, testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}
	backend.SetStatus(a, "confirmed")

	err := s.AcceptRequest(ctx, testutil.Token, a, driver)
	if !errors.Is(err, state.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	snap := s.Snapshot()
	if len(snap.Requests) != 0 || snap.Success {
		t.Fatalf("snapshot = %#v, want empty pool and no success", snap)
	}
	if snap.Error != "Request already accepted" {
		t.Fatalf("error = %q", snap.Error)
	}
}

func TestAcceptRequest_FailureKeepsItem(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	ctx := context.Background()
	if err := s.GetAllRequests(ctx, testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}
	backend.FailNext(testutil.RouteAccept, http.StatusInternalServerError, "")

	if err := s.AcceptRequest(ctx, testutil.Token, a, driver); err == nil {
		t.Fatal("expected error")
	}
	snap := s.Snapshot()
	if len(snap.Requests) != 1 || snap.Error != "Could not accept this request." {
		t.Fatalf("snapshot = %#v", snap)
	}
}

func TestAcceptRequest_StaleFetchCannotResurrect(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	ctx := context.Background()

	release := backend.Hold(testutil.RoutePending)
	done := make(chan error, 1)
	go func() { done <- s.GetAllRequests(ctx, testutil.Token) }()
	waitFor(t, func() bool { return backend.CallCount(testutil.RoutePending) == 1 })

	if err := s.AcceptRequest(ctx, testutil.Token, a, driver); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("discarded fetch returned %v, want nil", err)
	}
	if snap := s.Snapshot(); len(snap.Requests) != 0 || snap.Loading {
		t.Fatalf("snapshot = %#v, want accepted request gone", snap)
	}
}

func TestRemoveRequest_NotStickyAcrossFetch(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	b := backend.AddRequest("c2", 100, "pending")
	ctx := context.Background()
	if err := s.GetAllRequests(ctx, testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}

	s.RemoveRequest(a)
	if got := ids(s.Snapshot().Requests); len(got) != 1 || got[0] != b {
		t.Fatalf("pool = %v after decline", got)
	}
	if err := s.GetAllRequests(ctx, testutil.Token); err != nil {
		t.Fatalf("GetAllRequests: %v", err)
	}
	if got := s.Snapshot().Requests; len(got) != 2 {
		t.Fatalf("pool = %v, want the declined request back", ids(got))
	}
}

func TestConsumeSuccess(t *testing.T) {
	s, backend := newStore(t)
	a := backend.AddRequest("c1", 100, "pending")
	if err := s.AcceptRequest(context.Background(), testutil.Token, a, driver); err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if !s.ConsumeSuccess() || s.ConsumeSuccess() {
		t.Fatal("ConsumeSuccess should report true exactly once")
	}
}

func TestNearby(t *testing.T) {
	s := New(nil, nil)
	at := func(id string, lat, lng float64) models.Request {
		return models.Request{ID: id, Location: models.RequestLocation{Latitude: lat, Longitude: lng}}
	}
	s.requests = []models.Request{
		at("far", 1, 1),
		at("nowhere", 0, 0),
		at("near", 0, 0.005),
		at("mid", 0, 0.2),
	}
	origin := models.Coordinates{Latitude: 0, Longitude: 0.001}

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{"unfiltered", 0, []string{"near", "mid", "far", "nowhere"}},
		{"within 50 km", 50, []string{"near", "mid"}},
		{"within 1 km", 1, []string{"near"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Nearby(origin, tt.radius)
			var names []string
			for _, c := range got {
				names = append(names, c.Request.ID)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("Nearby = %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Fatalf("Nearby = %v, want %v", names, tt.want)
				}
			}
		})
	}
}

func TestNearby_NoOriginKeepsOrder(t *testing.T) {
	s := New(nil, nil)
	s.requests = []models.Request{
		{ID: "a", Location: models.RequestLocation{Latitude: 5, Longitude: 5}},
		{ID: "b", Location: models.RequestLocation{Latitude: 1, Longitude: 1}},
	}
	got := s.Nearby(models.Coordinates{}, 0)
	if len(got) != 2 || got[0].Request.ID != "a" || got[0].Located {
		t.Fatalf("Nearby = %#v", got)
	}
}

func TestMissingCredentialsNotAttempted(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()
	if err := s.GetAllRequests(ctx, ""); !errors.Is(err, state.ErrMissingCredentials) {
		t.Fatalf("fetch err = %v", err)
	}
	if err := s.AcceptRequest(ctx, testutil.Token, "", driver); !errors.Is(err, state.ErrMissingCredentials) {
		t.Fatalf("accept err = %v", err)
	}
	if n := len(backend.Calls()); n != 0 {
		t.Fatalf("backend calls = %d, want 0", n)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
