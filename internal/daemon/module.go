package daemon

import (
	"context"
	"time"

	"github.com/brezze/brezze/internal/config"
	"github.com/brezze/brezze/internal/history"
	"github.com/brezze/brezze/internal/httpapi"
	"github.com/brezze/brezze/internal/lock"
	"github.com/brezze/brezze/internal/logging"
	"github.com/brezze/brezze/internal/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved server configuration passed to the fx module.
type Params struct {
	Config config.Server
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideDB,
			provideRegistry,
			provideRooms,
			provideHub,
			provideAPI,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(config.LogPath(p.Config.DataDir), "brezzed")
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := config.EnsureDataDir(p.Config.DataDir); err != nil {
		return nil, err
	}
	logger.Info("acquiring data dir lock", zap.String("dir", p.Config.DataDir))
	l, err := lock.Acquire(p.Config.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("lock acquired")
	return l, nil
}

func provideDB(p Params, logger *zap.Logger) (*history.DB, error) {
	dbPath := config.DBPath(p.Config.DataDir)
	db, err := history.Open(dbPath)
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
	logger.Info("history store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRegistry() *relay.Registry {
	return relay.NewRegistry()
}

func provideRooms() *relay.Rooms {
	return relay.NewRooms()
}

func provideHub(registry *relay.Registry, rooms *relay.Rooms, logger *zap.Logger) *relay.Hub {
	return relay.NewHub(registry, rooms, logger)
}

func provideAPI(p Params, db *history.DB, logger *zap.Logger) *httpapi.API {
	ttl := time.Duration(p.Config.TokenTTLHours) * time.Hour
	return httpapi.New(db, []byte(p.Config.JWTSecret), ttl, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *history.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing history store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
