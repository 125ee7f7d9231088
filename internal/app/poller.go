package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/keystore"
	"github.com/five82/tanker/internal/location"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/pool"
	"github.com/five82/tanker/internal/requests"
	"github.com/five82/tanker/internal/session"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// Stores groups the four state containers.
type Stores struct {
	Session   *session.Store
	Locations *location.Store
	Requests  *requests.Store
	Pool      *pool.Store
}

// NewStores builds the four stores. The data stores check the session's
// credentials before applying a reply, so nothing fetched for a signed-out
// user lands after Logout.
func NewStores(backend api.Backend, keys keystore.Store, log logger.Logger) Stores {
	sess := session.New(backend, keys, log)
	stores := Stores{
		Session:   sess,
		Locations: location.New(backend, log),
		Requests:  requests.New(backend, log),
		Pool:      pool.New(backend, log),
	}
	stores.Locations.UseCredentials(sess.Credentials)
	stores.Requests.UseCredentials(sess.Credentials)
	stores.Pool.UseCredentials(sess.Credentials)
	return stores
}

// Logout clears every store.
func (s Stores) Logout() {
	s.Session.LogoutUser()
	s.Locations.Reset()
	s.Requests.Reset()
	s.Pool.Reset()
}

// Poller refreshes the stores for the signed-in role in the background.
type Poller struct {
	stores   Stores
	log      logger.Logger
	interval time.Duration
	kick     chan struct{}

	mu       sync.Mutex
	failures int
}

// NewPoller builds a Poller; a non-positive interval uses the default.
func NewPoller(stores Stores, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{
		stores:   stores,
		log:      log.With(logger.String("component", "poller")),
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		for {
			_ = p.Refresh(ctx)

			timer := time.NewTimer(calculateBackoff(p.Failures(), p.interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-p.kick:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()
}

// Trigger asks for an immediate refresh without blocking.
func (p *Poller) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Failures returns the number of consecutive failed refreshes.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Refresh fetches what the signed-in role looks at: the user and address
// book always, then the customer's own requests or the provider's pool.
// Signed-out sessions are skipped. A logout midway is safe: every store drops
// replies for credentials that are no longer signed in.
func (p *Poller) Refresh(ctx context.Context) error {
	uid, token, ok := p.stores.Session.Credentials()
	if !ok {
		return nil
	}

	errs := []error{
		p.stores.Session.FetchUserByID(ctx, uid, token),
		p.stores.Locations.FetchUserByID(ctx, uid, token),
	}
	if p.stores.Session.Snapshot().Session.User.IsProvider() {
		errs = append(errs, p.stores.Pool.GetAllRequests(ctx, token))
	} else {
		errs = append(errs, p.stores.Requests.GetCustomerRequests(ctx, uid, token))
	}

	err := errors.Join(errs...)
	p.mu.Lock()
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
	}
	failures := p.failures
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("refresh failed", logger.Int("consecutive_failures", failures), logger.Error(err))
	}
	return err
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
