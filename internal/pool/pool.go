// Package pool owns the provider's view of unclaimed delivery requests.
package pool

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/geo"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/normalize"
	"github.com/five82/tanker/internal/state"
)

const fetchPool = "pool"

// Snapshot is the read-only view handed to screens.
type Snapshot struct {
	Requests []models.Request
	Success  bool
	state.Sync
}

// Candidate is a pool entry ranked by distance from the provider.
type Candidate struct {
	Request    models.Request
	DistanceKm float64
	Located    bool // false when either end has no coordinates
}

// Store owns the unclaimed pool.
type Store struct {
	backend api.Backend
	log     logger.Logger
	gens    state.Tracker
	creds   state.CredentialsFunc

	mu       sync.RWMutex
	requests []models.Request
	success  bool
	sync     state.Sync
}

// New builds a Store.
func New(backend api.Backend, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		log:     log.With(logger.String("store", "pool")),
	}
}

// UseCredentials makes the store drop replies for anyone but the signed-in
// user. Without it every reply is applied.
func (s *Store) UseCredentials(creds state.CredentialsFunc) {
	s.creds = creds
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Requests: models.CloneRequests(s.requests),
		Success:  s.success,
		Sync:     s.sync,
	}
}

// GetAllRequests replaces the pool with the backend's pending list. A reply
// that lands after logout is dropped.
func (s *Store) GetAllRequests(ctx context.Context, token string) error {
	if err := state.RequireCredentials(token); err != nil {
		s.log.Warn("pool fetch skipped", logger.Error(err))
		return err
	}

	if !s.creds.Holds("", token) {
		s.log.Debug("pool fetch skipped: signed out or switched user")
		return nil
	}

	s.mu.Lock()
	s.sync.Start()
	s.mu.Unlock()

	fetchCtx, tk := s.gens.Begin(ctx, fetchPool)
	payload, err := s.backend.FetchPendingRequests(fetchCtx, token)

	var result error
	stale := false
	committed := s.gens.Commit(tk, func() {
		if !s.creds.Holds("", token) {
			stale = true
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.sync.Fail(api.MessageOr(err, "Could not load available requests."))
			result = fmt.Errorf("fetch pool: %w", err)
			return
		}
		list, ok := normalize.Requests(payload)
		if !ok {
			s.log.Warn("pool reply has no usable request list")
		}
		s.requests = list
		s.sync.Succeed()
	})
	if !committed || stale {
		s.mu.Lock()
		s.sync.Settle()
		s.mu.Unlock()
		return nil
	}
	return result
}

// AcceptRequest claims requestID for provider. Both success and a conflict
// remove the entry: either way nobody else can take it.
func (s *Store) AcceptRequest(ctx context.Context, token, requestID string, provider models.Provider) error {
	if err := state.RequireCredentials(token, requestID); err != nil {
		s.log.Warn("accept skipped", logger.Error(err))
		return err
	}

	s.mu.Lock()
	s.sync.Start()
	s.success = false
	s.mu.Unlock()

	_, err := s.backend.AcceptRequest(ctx, requestID, token, provider)

	var apiErr *api.Error
	conflict := errors.As(err, &apiErr) && apiErr.IsConflict()
	if err == nil || conflict {
		s.gens.Invalidate(fetchPool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.creds.Holds("", token) {
		s.sync.Settle()
		return nil
	}
	switch {
	case conflict:
		s.requests = without(s.requests, requestID)
		s.sync.Fail(api.MessageOr(err, "This request was already taken."))
		s.log.Info("request taken by someone else", logger.String("request", requestID))
		return fmt.Errorf("accept %s: %w: %w", requestID, state.ErrConflict, err)
	case err != nil:
		s.sync.Fail(api.MessageOr(err, "Could not accept this request."))
		return fmt.Errorf("accept %s: %w", requestID, err)
	}
	s.requests = without(s.requests, requestID)
	s.success = true
	s.sync.Succeed()
	s.log.Info("request accepted", logger.String("request", requestID))
	return nil
}

// RemoveRequest declines requestID locally. The next fetch may bring it back.
func (s *Store) RemoveRequest(requestID string) {
	s.gens.Invalidate(fetchPool)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = without(s.requests, requestID)
}

// ConsumeSuccess returns the success flag and clears it.
func (s *Store) ConsumeSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.success
	s.success = false
	return ok
}

// Nearby ranks the pool by distance from origin. Entries without coordinates
// sort last and are dropped when radiusKm > 0.
func (s *Store) Nearby(origin models.Coordinates, radiusKm float64) []Candidate {
	s.mu.RLock()
	out := make([]Candidate, 0, len(s.requests))
	for _, r := range s.requests {
		c := Candidate{Request: r.Clone()}
		if to := r.Location.Coordinates(); !origin.IsZero() && !to.IsZero() {
			c.DistanceKm = geo.HaversineKm(origin, to)
			c.Located = true
		}
		out = append(out, c)
	}
	s.mu.RUnlock()

	if radiusKm > 0 {
		out = slices.DeleteFunc(out, func(c Candidate) bool {
			return !c.Located || c.DistanceKm > radiusKm
		})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Located && !b.Located:
			return -1
		case !a.Located && b.Located:
			return 1
		}
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return out
}

// Reset drops everything (used on logout).
func (s *Store) Reset() {
	s.gens.Invalidate(fetchPool)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	s.success = false
	s.sync = state.Sync{}
}

func without(list []models.Request, id string) []models.Request {
	return slices.DeleteFunc(slices.Clone(list), func(r models.Request) bool { return r.ID == id })
}
