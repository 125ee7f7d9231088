// Package requests owns the customer's delivery requests.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/normalize"
	"github.com/five82/tanker/internal/state"
)

const (
	fetchCurrent = "current"
	fetchList    = "list"
)

var (
	// ErrInvalidLitres rejects non-positive quantities before any call.
	ErrInvalidLitres = errors.New("litres must be a positive whole number")
	// ErrUnexpectedResponse means a 2xx reply carried no usable request.
	ErrUnexpectedResponse = errors.New("unexpected response from server")
)

// Snapshot is the read-only view handed to screens.
type Snapshot struct {
	Created  *models.Request
	Current  *models.Request
	Customer []models.Request
	Success  bool
	state.Sync
}

// Store owns the customer's requests.
type Store struct {
	backend api.Backend
	log     logger.Logger
	now     func() time.Time
	gens    state.Tracker
	creds   state.CredentialsFunc

	mu       sync.RWMutex
	created  *models.Request
	current  *models.Request
	customer []models.Request
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
		log:     log.With(logger.String("store", "requests")),
		now:     time.Now,
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
		Created:  clonePtr(s.created),
		Current:  clonePtr(s.current),
		Customer: models.CloneRequests(s.customer),
		Success:  s.success,
		Sync:     s.sync,
	}
}

// CreateRequest posts a new delivery request.
func (s *Store) CreateRequest(ctx context.Context, litres int, loc models.RequestLocation, date time.Time, uid, token string) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("create request skipped", logger.Error(err))
		return err
	}
	if litres <= 0 {
		s.log.Warn("create request skipped", logger.Int("litres", litres))
		return ErrInvalidLitres
	}

	s.mu.Lock()
	s.sync.Start()
	s.success = false
	s.mu.Unlock()

	body := api.CreateRequestBody{
		CustomerID: uid,
		Litres:     litres,
		Location: api.RequestLocation{
			Address:   loc.Address,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		},
		Date: date.UTC().Format(time.RFC3339),
	}
	payload, err := s.backend.CreateRequest(ctx, token, body)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.creds.Holds(uid, token) {
		s.sync.Settle()
		return nil
	}
	if err != nil {
		s.sync.Fail(api.MessageOr(err, "Could not create your request."))
		return fmt.Errorf("create request: %w", err)
	}
	created, ok := normalize.Request(payload)
	if !ok {
		s.log.Warn("create reply has no usable request")
		s.sync.Fail("Could not create your request.")
		return fmt.Errorf("create request: %w", ErrUnexpectedResponse)
	}
	s.created = &created
	s.success = true
	s.sync.Succeed()
	s.log.Info("request created", logger.String("request", created.ID), logger.Int("litres", created.Litres))
	return nil
}

// GetRequestByID replaces Current with the server's copy.
func (s *Store) GetRequestByID(ctx context.Context, requestID, token string) error {
	if err := state.RequireCredentials(requestID, token); err != nil {
		s.log.Warn("get request skipped", logger.Error(err))
		return err
	}
	return s.fetch(ctx, fetchCurrent, "", token, "Could not load this request.",
		func(ctx context.Context) (json.RawMessage, error) {
			return s.backend.FetchRequest(ctx, requestID, token)
		},
		func(payload json.RawMessage) bool {
			r, ok := normalize.Request(payload)
			if ok {
				s.current = &r
			}
			return ok
		})
}

// GetCustomerRequests replaces the customer's list wholesale.
func (s *Store) GetCustomerRequests(ctx context.Context, uid, token string) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("get customer requests skipped", logger.Error(err))
		return err
	}
	return s.fetch(ctx, fetchList, uid, token, "Could not load your requests.",
		func(ctx context.Context) (json.RawMessage, error) {
			return s.backend.FetchCustomerRequests(ctx, uid, token)
		},
		func(payload json.RawMessage) bool {
			list, ok := normalize.Requests(payload)
			s.customer = list
			return ok
		})
}

// fetch runs one superseding fetch; apply is called under the store lock and
// reports whether the payload was usable. Replies for a signed-out or
// replaced user are dropped.
func (s *Store) fetch(ctx context.Context, kind, uid, token, fallback string, call func(context.Context) (json.RawMessage, error), apply func(json.RawMessage) bool) error {
	if !s.creds.Holds(uid, token) {
		s.log.Debug("fetch skipped: signed out or switched user", logger.String("fetch", kind))
		return nil
	}

	s.mu.Lock()
	s.sync.Start()
	s.mu.Unlock()

	fetchCtx, tk := s.gens.Begin(ctx, kind)
	payload, err := call(fetchCtx)

	var result error
	stale := false
	committed := s.gens.Commit(tk, func() {
		if !s.creds.Holds(uid, token) {
			stale = true
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.sync.Fail(api.MessageOr(err, fallback))
			result = fmt.Errorf("fetch %s: %w", kind, err)
			return
		}
		if !apply(payload) {
			s.log.Warn("reply has no usable requests", logger.String("fetch", kind))
		}
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

// ConfirmDelivery confirms receipt. On success Current (and the matching list
// entry) flips to delivered locally without waiting for a refetch; the next
// authoritative fetch overwrites the guess.
func (s *Store) ConfirmDelivery(ctx context.Context, requestID, token string) error {
	if err := state.RequireCredentials(requestID, token); err != nil {
		s.log.Warn("confirm delivery skipped", logger.Error(err))
		return err
	}
	s.mu.Lock()
	s.sync.Start()
	s.mu.Unlock()

	_, err := s.backend.ConfirmDelivery(ctx, requestID, token)
	if err != nil {
		s.mu.Lock()
		s.sync.Fail(api.MessageOr(err, "Could not confirm delivery."))
		s.mu.Unlock()
		return fmt.Errorf("confirm delivery: %w", err)
	}

	s.gens.Invalidate(fetchCurrent)
	s.gens.Invalidate(fetchList)

	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now()
	if s.current != nil && s.current.ID == requestID {
		markDelivered(s.current, at)
	}
	for i := range s.customer {
		if s.customer[i].ID == requestID {
			markDelivered(&s.customer[i], at)
		}
	}
	s.sync.Succeed()
	s.log.Info("delivery confirmed", logger.String("request", requestID))
	return nil
}

// ConsumeSuccess returns the success flag and clears it.
func (s *Store) ConsumeSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.success
	s.success = false
	return ok
}

// Reset drops everything (used on logout).
func (s *Store) Reset() {
	s.gens.Invalidate(fetchCurrent)
	s.gens.Invalidate(fetchList)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = nil
	s.current = nil
	s.customer = nil
	s.success = false
	s.sync = state.Sync{}
}

func markDelivered(r *models.Request, at time.Time) {
	r.Status = models.StatusDelivered
	stamp := at
	r.DeliveredAt = &stamp
}

func clonePtr(r *models.Request) *models.Request {
	if r == nil {
		return nil
	}
	dup := r.Clone()
	return &dup
}
