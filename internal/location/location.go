// Package location owns the address book and the selected delivery address.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/normalize"
	"github.com/five82/tanker/internal/state"
)

const fetchUser = "user"

// Snapshot is the read-only view handed to screens.
type Snapshot struct {
	Addresses []models.Address
	Selected  *models.Address
	state.Sync
}

// Store owns the address book.
type Store struct {
	backend api.Backend
	log     logger.Logger
	now     func() time.Time
	gens    state.Tracker
	creds   state.CredentialsFunc

	mu        sync.RWMutex
	addresses []models.Address
	selected  *models.Address
	picked    bool // selection came from SelectLocation
	sync      state.Sync
}

// New builds a Store.
func New(backend api.Backend, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		log:     log.With(logger.String("store", "location")),
		now:     time.Now,
	}
}

// UseCredentials makes the store drop replies for anyone but the signed-in
// user. Without it every reply is applied.
func (s *Store) UseCredentials(creds state.CredentialsFunc) {
	s.creds = creds
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Addresses: cloneAddresses(s.addresses), Sync: s.sync}
	if s.selected != nil {
		selected := *s.selected
		snap.Selected = &selected
	}
	return snap
}

// NewLocation builds an address with a time-ordered client id.
func (s *Store) NewLocation(address string, coords models.Coordinates, label models.Label) models.Address {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return models.Address{
		ID:        id.String(),
		Address:   strings.TrimSpace(address),
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Label:     label,
		CreatedAt: s.now().UTC(),
	}
}

// AddLocationToUser appends an address on the backend, then replaces the
// local list with the server's. If the append succeeds but the refetch fails
// the error wraps state.ErrUnknownOutcome.
func (s *Store) AddLocationToUser(ctx context.Context, uid string, loc models.Address, token string) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("add location skipped", logger.Error(err))
		return err
	}
	body := map[string]any{"address": []models.Address{loc}}
	return s.mutate(ctx, uid, token, "add location", "Could not save this address.", func(ctx context.Context) error {
		_, err := s.backend.UpdateUser(ctx, uid, token, body)
		return err
	})
}

// RemoveLocationFromUser deletes an address, then refetches.
func (s *Store) RemoveLocationFromUser(ctx context.Context, uid, locationID, token string) error {
	if err := state.RequireCredentials(uid, token, locationID); err != nil {
		s.log.Warn("remove location skipped", logger.Error(err))
		return err
	}
	return s.mutate(ctx, uid, token, "remove location", "Could not remove this address.", func(ctx context.Context) error {
		_, err := s.backend.RemoveAddress(ctx, uid, locationID, token)
		return err
	})
}

// SetDefaultLocation marks an address as default, then refetches.
func (s *Store) SetDefaultLocation(ctx context.Context, uid, locationID, token string) error {
	if err := state.RequireCredentials(uid, token, locationID); err != nil {
		s.log.Warn("set default location skipped", logger.Error(err))
		return err
	}
	err := s.mutate(ctx, uid, token, "set default location", "Could not update your default address.", func(ctx context.Context) error {
		_, err := s.backend.SetDefaultAddress(ctx, uid, locationID, token)
		return err
	})
	if err == nil && s.creds.Holds(uid, token) {
		s.mu.Lock()
		s.picked = false
		s.selected = normalize.SelectAddress(s.addresses)
		s.mu.Unlock()
	}
	return err
}

// mutate runs write and then the authoritative refetch.
func (s *Store) mutate(ctx context.Context, uid, token, op, fallback string, write func(context.Context) error) error {
	s.start()
	if err := write(ctx); err != nil {
		s.fail(api.MessageOr(err, fallback))
		s.log.Warn(op+" failed", logger.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.settle()

	if err := s.FetchUserByID(ctx, uid, token); err != nil {
		s.log.Warn(op+" applied but refresh failed", logger.Error(err))
		return fmt.Errorf("%s: %w: %w", op, state.ErrUnknownOutcome, err)
	}
	return nil
}

// FetchUserByID loads the user record and replaces the address list. Replies
// that arrive after the user signed out or switched are dropped.
func (s *Store) FetchUserByID(ctx context.Context, uid, token string) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("fetch addresses skipped", logger.Error(err))
		return err
	}

	if !s.creds.Holds(uid, token) {
		s.log.Debug("fetch addresses skipped: signed out or switched user", logger.String("uid", uid))
		return nil
	}

	s.start()
	fetchCtx, tk := s.gens.Begin(ctx, fetchUser)
	payload, err := s.backend.FetchUser(fetchCtx, uid, token)

	var result error
	stale := false
	committed := s.gens.Commit(tk, func() {
		if !s.creds.Holds(uid, token) {
			stale = true
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		result = s.applyLocked(payload, err)
	})
	if !committed || stale {
		s.settle()
		return nil
	}
	return result
}

func (s *Store) applyLocked(payload json.RawMessage, err error) error {
	if err != nil {
		s.sync.Fail(api.MessageOr(err, "Could not load your addresses."))
		return fmt.Errorf("fetch addresses: %w", err)
	}
	list, ok := normalize.Addresses(payload)
	if !ok {
		s.log.Warn("user reply has no address list")
		s.addresses = nil
		s.selected = nil
		s.picked = false
		s.sync.Succeed()
		return nil
	}

	s.addresses = list
	if s.picked && s.selected != nil {
		if kept := find(list, s.selected.ID); kept != nil {
			s.selected = kept
			s.sync.Succeed()
			return nil
		}
	}
	s.picked = false
	s.selected = normalize.SelectAddress(list)
	s.sync.Succeed()
	return nil
}

// SelectLocation chooses a delivery address locally. nil clears the choice.
func (s *Store) SelectLocation(loc *models.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc == nil {
		s.selected = nil
		s.picked = false
		return
	}
	selected := *loc
	s.selected = &selected
	s.picked = true
}

// Reset drops the address book (used on logout).
func (s *Store) Reset() {
	s.gens.Invalidate(fetchUser)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses = nil
	s.selected = nil
	s.picked = false
	s.sync = state.Sync{}
}

func (s *Store) start() {
	s.mu.Lock()
	s.sync.Start()
	s.mu.Unlock()
}

func (s *Store) settle() {
	s.mu.Lock()
	s.sync.Settle()
	s.mu.Unlock()
}

func (s *Store) fail(message string) {
	s.mu.Lock()
	s.sync.Fail(message)
	s.mu.Unlock()
}

func find(list []models.Address, id string) *models.Address {
	for _, a := range list {
		if a.ID == id {
			found := a
			return &found
		}
	}
	return nil
}

func cloneAddresses(list []models.Address) []models.Address {
	if len(list) == 0 {
		return nil
	}
	dup := make([]models.Address, len(list))
	copy(dup, list)
	return dup
}
