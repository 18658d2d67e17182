package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/moodtrack/internal/api"
	"github.com/matheus3301/moodtrack/internal/bus"
	"github.com/matheus3301/moodtrack/internal/config"
	"github.com/matheus3301/moodtrack/internal/connectivity"
	"github.com/matheus3301/moodtrack/internal/lock"
	"github.com/matheus3301/moodtrack/internal/logging"
	"github.com/matheus3301/moodtrack/internal/mirror"
	"github.com/matheus3301/moodtrack/internal/profile"
	"github.com/matheus3301/moodtrack/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile       string
	SocketPath    string // optional override for testing; empty = use default
	MirrorURL     string // empty disables mirroring
	DeviceID      string
	LogLevel      zapcore.Level
	Location      *time.Location
	ProbeInterval time.Duration
	MirrorTimeout time.Duration
}

// ParamsFromConfig resolves daemon parameters for profileName from cfg.
func ParamsFromConfig(profileName string, cfg *config.Config) (Params, error) {
	level, err := cfg.Level()
	if err != nil {
		return Params{}, fmt.Errorf("log_level: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return Params{}, err
	}
	probe, err := cfg.ProbeEvery()
	if err != nil {
		return Params{}, err
	}
	timeout, err := cfg.MirrorDeadline()
	if err != nil {
		return Params{}, err
	}
	return Params{
		Profile:       profileName,
		MirrorURL:     cfg.MirrorURL,
		DeviceID:      cfg.DeviceID,
		LogLevel:      level,
		Location:      loc,
		ProbeInterval: probe,
		MirrorTimeout: timeout,
	}, nil
}

// Remote is the mirror target together with its reachability probe.
type Remote interface {
	mirror.Mirror
	connectivity.Prober
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideEntries,
			provideRemote,
			provideDispatcher,
			provideObserver,
			provideMonitor,
			provideJournalService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, p.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two
// daemons at once.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideEntries(p Params, db *store.DB, logger *zap.Logger) *store.Entries {
	return store.NewEntries(db, logger, store.WithLocation(p.Location))
}

func provideRemote(p Params, logger *zap.Logger) (Remote, error) {
	if p.MirrorURL == "" {
		logger.Info("no mirror configured, entries stay local")
		return mirror.Nop{}, nil
	}
	c, err := mirror.NewClient(p.MirrorURL, p.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("mirror_url: %w", err)
	}
	logger.Info("mirror configured", zap.String("url", c.BaseURL()), zap.String("device", p.DeviceID))
	return c, nil
}

func provideDispatcher(p Params, r Remote, b *bus.Bus, logger *zap.Logger) *mirror.Dispatcher {
	return mirror.NewDispatcher(r, b, logger.Named("mirror"), p.MirrorTimeout)
}

func provideObserver(b *bus.Bus) *connectivity.Observer {
	return connectivity.NewObserver(b)
}

func provideMonitor(p Params, o *connectivity.Observer, r Remote, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(o, r, p.ProbeInterval, p.MirrorTimeout, logger.Named("connectivity"))
}

func provideJournalService(p Params, entries *store.Entries, d *mirror.Dispatcher, o *connectivity.Observer, b *bus.Bus, logger *zap.Logger) *api.JournalService {
	return api.NewJournalService(api.ServiceConfig{
		Profile:  p.Profile,
		Store:    entries,
		Mirror:   d,
		Network:  o,
		Bus:      b,
		Logger:   logger.Named("journal"),
		Location: p.Location,
	})
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, d *mirror.Dispatcher, m *connectivity.Monitor, logger *zap.Logger) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			// Mirror worker first so tasks dispatched right after the first
			// probe are drained.
			d.Start(ctx)
			m.Start(ctx)

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			m.Stop()
			d.Stop()
			if cancel != nil {
				cancel()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
