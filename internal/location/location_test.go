package location

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/state"
	"github.com/five82/tanker/internal/testutil"
)

func newStore(t *testing.T) (*Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddUser("u1", "Ana", "ana@example.com", "pw", "customer")
	client, err := api.NewClient(backend.URL(), time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(client, logger.Nop()), backend
}

func entry(id, address string, lat, lng float64, isDefault bool) map[string]any {
	return map[string]any{"id": id, "address": address, "latitude": lat, "longitude": lng, "isDefault": isDefault}
}

func TestFetchUserByID_NormalizesAndSelectsDefault(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))
	backend.AddAddress("u1", entry("2", "Y", 3, 4, false))
	backend.AddAddress("u1", map[string]any{"id": "3", "address": "broken"})

	if err := s.FetchUserByID(context.Background(), "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Addresses) != 2 {
		t.Fatalf("addresses = %#v, want 2 well-formed entries", snap.Addresses)
	}
	if snap.Selected == nil || snap.Selected.ID != "1" {
		t.Fatalf("selected = %#v, want id 1", snap.Selected)
	}
	if snap.Loading || snap.Error != "" {
		t.Fatalf("sync = %#v", snap.Sync)
	}
}

func TestFetchUserByID_NoDefaultSelectsFirst(t *testing.T) {
	s, backend := newStore(t)
	backend.SetUserEnvelope(testutil.EnvelopeUser)
	backend.AddAddress("u1", entry("a", "First", 1, 1, false))
	backend.AddAddress("u1", entry("b", "Second", 2, 2, false))

	if err := s.FetchUserByID(context.Background(), "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	if sel := s.Snapshot().Selected; sel == nil || sel.ID != "a" {
		t.Fatalf("selected = %#v, want first entry", sel)
	}
}

func TestFetchUserByID_EmptyBookSelectsNothing(t *testing.T) {
	s, _ := newStore(t)
	if err := s.FetchUserByID(context.Background(), "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	if snap := s.Snapshot(); snap.Selected != nil || len(snap.Addresses) != 0 {
		t.Fatalf("snapshot = %#v, want empty", snap)
	}
}

func TestAddLocationToUser_AppendsThenReplaces(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))

	loc := s.NewLocation("  22 River St  ", models.Coordinates{Latitude: 5, Longitude: 6}, models.LabelWork)
	if loc.ID == "" || loc.Address != "22 River St" || loc.CreatedAt.IsZero() {
		t.Fatalf("NewLocation = %#v", loc)
	}
	if err := s.AddLocationToUser(context.Background(), "u1", loc, testutil.Token); err != nil {
		t.Fatalf("AddLocationToUser: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Addresses) != 2 || snap.Addresses[1].ID != loc.ID || snap.Addresses[1].Label != models.LabelWork {
		t.Fatalf("addresses = %#v, want appended entry", snap.Addresses)
	}
	calls := backend.Calls()
	if len(calls) != 2 || calls[0] != testutil.RouteUpdateUser || calls[1] != testutil.RouteUser {
		t.Fatalf("calls = %v, want PUT then GET", calls)
	}
}

func TestNewLocation_IDsAreTimeOrdered(t *testing.T) {
	s, _ := newStore(t)
	first := s.NewLocation("a", models.Coordinates{}, models.LabelHome)
	second := s.NewLocation("b", models.Coordinates{}, models.LabelHome)
	if first.ID == second.ID || first.ID > second.ID {
		t.Fatalf("ids not ordered: %q then %q", first.ID, second.ID)
	}
}

func TestAddLocationToUser_RefetchFailureIsUnknownOutcome(t *testing.T) {
	s, backend := newStore(t)
	backend.FailNext(testutil.RouteUser, http.StatusServiceUnavailable, "")

	loc := s.NewLocation("X", models.Coordinates{Latitude: 1, Longitude: 1}, models.LabelHome)
	err := s.AddLocationToUser(context.Background(), "u1", loc, testutil.Token)
	if !errors.Is(err, state.ErrUnknownOutcome) {
		t.Fatalf("err = %v, want ErrUnknownOutcome", err)
	}

	// The write landed; the next refresh shows it.
	if err := s.FetchUserByID(context.Background(), "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	if got := s.Snapshot().Addresses; len(got) != 1 || got[0].ID != loc.ID {
		t.Fatalf("addresses = %#v, want the saved entry", got)
	}
}

func TestAddLocationToUser_WriteFailure(t *testing.T) {
	s, backend := newStore(t)
	backend.FailNext(testutil.RouteUpdateUser, http.StatusBadRequest, "Address is required")

	err := s.AddLocationToUser(context.Background(), "u1", models.Address{ID: "x"}, testutil.Token)
	if err == nil || errors.Is(err, state.ErrUnknownOutcome) {
		t.Fatalf("err = %v, want plain write failure", err)
	}
	snap := s.Snapshot()
	if snap.Error != "Address is required" || snap.Loading {
		t.Fatalf("sync = %#v", snap.Sync)
	}
	if backend.CallCount(testutil.RouteUser) != 0 {
		t.Fatal("refetch attempted after a failed write")
	}
}

func TestRemoveLocationFromUser(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))
	backend.AddAddress("u1", entry("2", "Y", 3, 4, false))

	if err := s.RemoveLocationFromUser(context.Background(), "u1", "1", testutil.Token); err != nil {
		t.Fatalf("RemoveLocationFromUser: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Addresses) != 1 || snap.Addresses[0].ID != "2" {
		t.Fatalf("addresses = %#v, want only id 2", snap.Addresses)
	}
	if snap.Selected == nil || snap.Selected.ID != "2" {
		t.Fatalf("selected = %#v, want id 2 after default removed", snap.Selected)
	}
}

func TestSetDefaultLocation(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))
	backend.AddAddress("u1", entry("2", "Y", 3, 4, false))

	if err := s.SetDefaultLocation(context.Background(), "u1", "2", testutil.Token); err != nil {
		t.Fatalf("SetDefaultLocation: %v", err)
	}
	snap := s.Snapshot()
	defaults := 0
	for _, a := range snap.Addresses {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 || snap.Selected == nil || snap.Selected.ID != "2" {
		t.Fatalf("snapshot = %#v, want exactly one default (id 2) selected", snap)
	}
}

func TestSelectLocation_SurvivesRefresh(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))
	backend.AddAddress("u1", entry("2", "Y", 3, 4, false))
	ctx := context.Background()

	if err := s.FetchUserByID(ctx, "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	picked := s.Snapshot().Addresses[1]
	s.SelectLocation(&picked)

	if err := s.FetchUserByID(ctx, "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	if sel := s.Snapshot().Selected; sel == nil || sel.ID != "2" {
		t.Fatalf("selected = %#v, want user pick kept", sel)
	}
	if backend.CallCount(testutil.RouteUser) != 2 {
		t.Fatal("SelectLocation should not call the backend")
	}

	s.SelectLocation(nil)
	if s.Snapshot().Selected != nil {
		t.Fatal("SelectLocation(nil) did not clear the selection")
	}
}

func TestFetchUserByID_SupersededFetchDiscarded(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "Old", 1, 2, true))
	ctx := context.Background()

	release := backend.Hold(testutil.RouteUser)
	done := make(chan error, 1)
	go func() { done <- s.FetchUserByID(ctx, "u1", testutil.Token) }()
	waitFor(t, func() bool { return backend.CallCount(testutil.RouteUser) == 1 })

	backend.AddAddress("u1", entry("2", "New", 3, 4, false))
	if err := s.FetchUserByID(ctx, "u1", testutil.Token); err != nil {
		t.Fatalf("second FetchUserByID: %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("superseded fetch returned %v, want nil", err)
	}

	snap := s.Snapshot()
	if len(snap.Addresses) != 2 || snap.Loading {
		t.Fatalf("snapshot = %#v, want the newer list and no loading", snap)
	}
}

func TestMissingCredentialsNotAttempted(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	for name, err := range map[string]error{
		"fetch":   s.FetchUserByID(ctx, "", testutil.Token),
		"add":     s.AddLocationToUser(ctx, "u1", models.Address{}, ""),
		"remove":  s.RemoveLocationFromUser(ctx, "u1", "", testutil.Token),
		"default": s.SetDefaultLocation(ctx, " ", "1", testutil.Token),
	} {
		if !errors.Is(err, state.ErrMissingCredentials) {
			t.Fatalf("%s: err = %v, want ErrMissingCredentials", name, err)
		}
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

func TestReset(t *testing.T) {
	s, backend := newStore(t)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))
	if err := s.FetchUserByID(context.Background(), "u1", testutil.Token); err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	s.Reset()
	if snap := s.Snapshot(); len(snap.Addresses) != 0 || snap.Selected != nil {
		t.Fatalf("snapshot = %#v, want empty", snap)
	}
}

// signedIn stands in for the session store's Credentials.
type signedIn struct{ out atomic.Bool }

func (c *signedIn) credentials() (string, string, bool) {
	if c.out.Load() {
		return "", "", false
	}
	return "u1", testutil.Token, true
}

func TestAddLocationToUser_LogoutDuringWriteLeavesBookEmpty(t *testing.T) {
	s, backend := newStore(t)
	creds := &signedIn{}
	s.UseCredentials(creds.credentials)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))

	release := backend.Hold(testutil.RouteUpdateUser)
	done := make(chan error, 1)
	loc := s.NewLocation("2 Pump St", models.Coordinates{Latitude: 3, Longitude: 4}, models.LabelWork)
	go func() { done <- s.AddLocationToUser(context.Background(), "u1", loc, testutil.Token) }()

	waitFor(t, func() bool { return backend.CallCount(testutil.RouteUpdateUser) == 1 })
	creds.out.Store(true)
	s.Reset()
	release()

	if err := <-done; err != nil {
		t.Fatalf("AddLocationToUser: %v", err)
	}
	if snap := s.Snapshot(); len(snap.Addresses) != 0 || snap.Selected != nil || snap.Loading {
		t.Fatalf("snapshot = %#v, want an empty settled book", snap)
	}
	if backend.CallCount(testutil.RouteUser) != 0 {
		t.Fatal("refetch sent after logout")
	}
}

func TestFetchUserByID_DroppedAfterLogout(t *testing.T) {
	s, backend := newStore(t)
	creds := &signedIn{}
	s.UseCredentials(creds.credentials)
	backend.AddAddress("u1", entry("1", "X", 1, 2, true))

	release := backend.Hold(testutil.RouteUser)
	done := make(chan error, 1)
	go func() { done <- s.FetchUserByID(context.Background(), "u1", testutil.Token) }()

	waitFor(t, func() bool { return backend.CallCount(testutil.RouteUser) == 1 })
	creds.out.Store(true)
	release()

	if err := <-done; err != nil {
		t.Fatalf("FetchUserByID: %v", err)
	}
	if snap := s.Snapshot(); len(snap.Addresses) != 0 || snap.Loading {
		t.Fatalf("snapshot = %#v, want the late reply dropped", snap)
	}
}
