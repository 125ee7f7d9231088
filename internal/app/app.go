package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/config"
	"github.com/five82/tanker/internal/geocode"
	"github.com/five82/tanker/internal/keystore"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/ui"
)

// Options configure the tanker application.
type Options struct {
	ConfigPath string
	PollEvery  time.Duration // zero uses the configured poll_interval
	Email      string        // optional sign-in on startup
	Password   string
}

// Run boots the tanker TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) (err error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New("tanker", cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	keys, err := keystore.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := keys.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close storage: %w", cerr))
		}
	}()

	client, err := api.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	maps, err := geocode.NewClient(cfg.MapsURL, cfg.MapsAPIKey, log)
	if err != nil {
		return fmt.Errorf("init geocoder: %w", err)
	}

	stores := NewStores(client, keys, log)
	defer stores.Session.Flush()

	stores.Session.RestoreSession(ctx)
	if opts.Email != "" {
		if err := stores.Session.Login(ctx, opts.Email, opts.Password); err != nil {
			log.Warn("startup login failed", logger.Error(err))
		}
	}

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}
	poller := NewPoller(stores, interval, log)
	poller.Start(ctx)

	log.Info("tanker started",
		logger.String("api", cfg.APIURL),
		logger.String("storage", cfg.StorageDriver),
		logger.Duration("poll_interval", interval),
	)

	return ui.Run(ui.Options{
		Context:        ctx,
		Session:        stores.Session,
		Locations:      stores.Locations,
		Requests:       stores.Requests,
		Pool:           stores.Pool,
		Geocoder:       maps,
		Keys:           keys,
		Refresher:      poller,
		Logout:         stores.Logout,
		Log:            log,
		LogPath:        cfg.LogPath,
		NearbyRadiusKm: cfg.NearbyRadiusKm,
	})
}
