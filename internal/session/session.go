// Package session owns the authenticated identity and its durable copy.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/keystore"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/normalize"
	"github.com/five82/tanker/internal/state"
)

// StorageKey is the keystore entry holding the {user, token} blob.
const StorageKey = "session"

const fetchUser = "user"

// ErrUnexpectedResponse means the backend replied 2xx with nothing usable.
var ErrUnexpectedResponse = errors.New("unexpected response from server")

// Snapshot is the read-only view handed to screens.
type Snapshot struct {
	Session models.Session
	state.Sync
}

// IsAuthenticated is derived from the session.
func (s Snapshot) IsAuthenticated() bool {
	return s.Session.IsAuthenticated()
}

// Store owns the session.
type Store struct {
	backend api.Backend
	keys    keystore.Store
	log     logger.Logger
	now     func() time.Time
	gens    state.Tracker

	mu      sync.RWMutex
	session models.Session
	sync    state.Sync

	persistMu  sync.Mutex
	persistSeq atomic.Uint64
	pending    sync.WaitGroup
}

// New builds a Store. keys may be nil, in which case nothing is persisted.
func New(backend api.Backend, keys keystore.Store, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		keys:    keys,
		log:     log.With(logger.String("store", "session")),
		now:     time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Session: cloneSession(s.session), Sync: s.sync}
}

// Credentials is the projection the other stores read.
func (s *Store) Credentials() (uid, token string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User.UID, s.session.Token, s.session.IsAuthenticated()
}

// RestoreSession loads the persisted session. A missing, unreadable or
// expired blob yields the unauthenticated state; it is never an error.
func (s *Store) RestoreSession(ctx context.Context) models.Session {
	restored := s.readPersisted()

	s.mu.Lock()
	s.session = restored
	s.mu.Unlock()

	if restored.IsAuthenticated() {
		s.log.Info("session restored", logger.String("uid", restored.User.UID))
	}
	return cloneSession(restored)
}

func (s *Store) readPersisted() models.Session {
	if s.keys == nil {
		return models.Session{}
	}
	blob, ok, err := s.keys.Get(StorageKey)
	if err != nil {
		s.log.Warn("read persisted session failed", logger.Error(err))
		return models.Session{}
	}
	if !ok {
		return models.Session{}
	}

	var stored models.Session
	if err := json.Unmarshal(blob, &stored); err != nil {
		s.log.Warn("persisted session is corrupt", logger.Error(err))
		return models.Session{}
	}
	if !stored.IsAuthenticated() {
		return models.Session{}
	}
	if tokenExpired(stored.Token, s.now()) {
		s.log.Info("persisted session expired", logger.String("uid", stored.User.UID))
		return models.Session{}
	}
	return stored
}

// tokenExpired reports whether a JWT's exp claim has passed. Tokens that are
// not JWTs are opaque and never expire client side.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// SetAuthData publishes a new session immediately. The durable write happens
// in the background; use Flush to wait for it.
func (s *Store) SetAuthData(user models.User, token string) {
	next := models.Session{User: user, Token: strings.TrimSpace(token)}

	s.mu.Lock()
	s.session = next
	s.persistLocked(next)
	s.mu.Unlock()
}

// persistLocked writes session in the background. Writes are sequenced: a
// write superseded by a newer write or by a logout is skipped. The caller
// holds s.mu so the sequence follows the order of in-memory changes.
func (s *Store) persistLocked(session models.Session) {
	if s.keys == nil {
		return
	}
	blob, err := json.Marshal(session)
	if err != nil {
		s.log.Error("encode session failed", logger.Error(err))
		return
	}
	seq := s.persistSeq.Add(1)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.persistMu.Lock()
		defer s.persistMu.Unlock()

		if s.persistSeq.Load() != seq {
			return
		}
		if err := s.keys.Set(StorageKey, blob); err != nil {
			s.log.Error("persist session failed", logger.Error(err))
		}
	}()
}

// Flush blocks until background writes finish.
func (s *Store) Flush() {
	s.pending.Wait()
}

// LogoutUser clears the session in memory and on disk. No backend call is
// made.
func (s *Store) LogoutUser() {
	s.gens.Invalidate(fetchUser)

	s.mu.Lock()
	uid := s.session.User.UID
	s.session = models.Session{}
	s.sync = state.Sync{}
	s.persistSeq.Add(1)
	s.mu.Unlock()

	if s.keys != nil {
		s.persistMu.Lock()
		err := s.keys.Delete(StorageKey)
		s.persistMu.Unlock()
		if err != nil {
			s.log.Error("remove persisted session failed", logger.Error(err))
		}
	}
	s.log.Info("logged out", logger.String("uid", uid))
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.log.Warn("login skipped: missing email or password")
		return state.ErrMissingCredentials
	}
	s.start()
	payload, err := s.backend.Login(ctx, email, password)
	return s.finishAuth(payload, err, "Login failed. Check your email and password.")
}

// Register creates an account and signs in.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" {
		s.log.Warn("registration skipped: missing email or password")
		return state.ErrMissingCredentials
	}
	if reg.Role == "" {
		reg.Role = string(models.RoleCustomer)
	}
	s.start()
	payload, err := s.backend.Register(ctx, reg)
	return s.finishAuth(payload, err, "Registration failed. Please try again.")
}

func (s *Store) finishAuth(payload json.RawMessage, err error, fallback string) error {
	if err != nil {
		s.fail(api.MessageOr(err, fallback))
		return fmt.Errorf("authenticate: %w", err)
	}
	user, token, ok := normalize.Auth(payload)
	if !ok {
		s.log.Warn("auth reply has no usable user or token")
		s.fail(fallback)
		return fmt.Errorf("authenticate: %w", ErrUnexpectedResponse)
	}

	s.SetAuthData(user, token)
	s.mu.Lock()
	s.sync.Succeed()
	s.mu.Unlock()
	s.log.Info("authenticated", logger.String("uid", user.UID), logger.String("role", string(user.Role)))
	return nil
}

// FetchUserByID reloads the canonical user record. The uid is attached
// because the endpoint omits it. A reply for anyone other than the currently
// signed-in uid and token is dropped, so a fetch racing a logout cannot sign
// the old user back in.
func (s *Store) FetchUserByID(ctx context.Context, uid, token string) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("fetch user skipped", logger.Error(err))
		return err
	}

	if !s.holds(uid, token) {
		s.log.Debug("fetch user skipped: signed out or switched user", logger.String("uid", uid))
		return nil
	}

	s.start()
	fetchCtx, tk := s.gens.Begin(ctx, fetchUser)
	payload, err := s.backend.FetchUser(fetchCtx, uid, token)

	var result error
	stale := false
	committed := s.gens.Commit(tk, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.holdsLocked(uid, token) {
			stale = true
			return
		}
		if err != nil {
			s.sync.Fail(api.MessageOr(err, "Could not load your profile."))
			result = fmt.Errorf("fetch user: %w", err)
			return
		}
		user, ok := normalize.User(payload, uid)
		if !ok {
			s.log.Warn("user reply has no usable record", logger.String("uid", uid))
			s.sync.Fail("Could not load your profile.")
			result = fmt.Errorf("fetch user: %w", ErrUnexpectedResponse)
			return
		}
		s.session = models.Session{User: user, Token: token}
		s.sync.Succeed()
		s.persistLocked(cloneSession(s.session))
	})
	if !committed || stale {
		s.settle()
		return nil
	}
	return result
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// UpdateProfile saves profile fields and re-fetches the canonical record.
func (s *Store) UpdateProfile(ctx context.Context, uid, token string, update ProfileUpdate) error {
	if err := state.RequireCredentials(uid, token); err != nil {
		s.log.Warn("profile update skipped", logger.Error(err))
		return err
	}
	s.start()
	_, err := s.backend.UpdateUser(ctx, uid, token, update)
	if err != nil {
		s.fail(api.MessageOr(err, "Could not save your profile."))
		return fmt.Errorf("update profile: %w", err)
	}
	s.settle()

	if err := s.FetchUserByID(ctx, uid, token); err != nil {
		return fmt.Errorf("%w: %w", state.ErrUnknownOutcome, err)
	}
	return nil
}

func (s *Store) holds(uid, token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdsLocked(uid, token)
}

func (s *Store) holdsLocked(uid, token string) bool {
	return s.session.IsAuthenticated() && s.session.User.UID == uid && s.session.Token == token
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

func cloneSession(in models.Session) models.Session {
	out := in
	if in.User.Rating != nil {
		v := *in.User.Rating
		out.User.Rating = &v
	}
	if in.User.TotalReviews != nil {
		v := *in.User.TotalReviews
		out.User.TotalReviews = &v
	}
	return out
}
