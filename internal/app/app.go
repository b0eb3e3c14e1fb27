package app

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/blogclient/api/handler"
	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/internal/config"
	"github.com/fastygo/blogclient/internal/infrastructure/boltdb"
	"github.com/fastygo/blogclient/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/blogclient/internal/infrastructure/redis"
	"github.com/fastygo/blogclient/internal/middleware"
	"github.com/fastygo/blogclient/internal/router"
	"github.com/fastygo/blogclient/internal/services"
	"github.com/fastygo/blogclient/internal/services/lifecycle"
	"github.com/fastygo/blogclient/internal/session"
	"github.com/fastygo/blogclient/pkg/httpcontext"
	"github.com/fastygo/blogclient/repository"
	"github.com/fastygo/blogclient/repository/memory"
	redisRepo "github.com/fastygo/blogclient/repository/redis"
	"github.com/fastygo/blogclient/usecase"
	adminUC "github.com/fastygo/blogclient/usecase/admin"
	articleUC "github.com/fastygo/blogclient/usecase/article"
	authUC "github.com/fastygo/blogclient/usecase/auth"
	userUC "github.com/fastygo/blogclient/usecase/user"
	"github.com/fastygo/blogclient/usecase/view"
)

// App holds the wired client. Close releases everything New opened.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Lifecycle  *lifecycle.Manager
	Storage    repository.ClientStorage
	Session    *session.Store
	API        *transport.Pipeline
	Auth       *authUC.UseCase
	Articles   *articleUC.UseCase
	Users      *userUC.UseCase
	Admin      *adminUC.UseCase
	Dispatcher *usecase.Dispatcher
}

// New opens the configured storage, restores the session and builds the use
// cases on top of one request pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	manager := lifecycle.New(cfg.Context.ShutdownTimeout, logger)

	storage, err := openStorage(ctx, cfg, manager, logger)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return nil, err
	}

	store := session.NewStore(storage, logger.Named("session"))
	if err := store.Initialize(ctx); err != nil {
		logger.Warn("session restore failed, continuing anonymous", zap.Error(err))
	}

	client := transport.NewHTTPClient(cfg.AppName, cfg.API.MaxConns, cfg.API.Timeout)
	manager.Register("http_client", func(context.Context) error {
		client.CloseIdleConnections()
		return nil
	})
	api := transport.New(client, store, transport.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, logger.Named("api"))

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Lifecycle:  manager,
		Storage:    storage,
		Session:    store,
		API:        api,
		Auth:       authUC.New(api, store, logger),
		Articles:   articleUC.New(api, logger),
		Users:      userUC.New(api, store, logger),
		Admin:      adminUC.New(api, logger),
		Dispatcher: usecase.NewDispatcher(),
	}
	view.RegisterAll(a.Dispatcher, view.Deps{
		Session:  store,
		Articles: a.Articles,
		Users:    a.Users,
		Admin:    a.Admin,
		Logger:   logger.Named("view"),
	})
	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (repository.ClientStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return memory.NewStorageRepository(), nil

	case config.StorageRedis:
		client, err := redisInfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		manager.Register("redis", func(context.Context) error {
			return client.Close()
		})
		logger.Info("session storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("prefix", cfg.Redis.Prefix))
		return redisRepo.NewStorageRepository(client, cfg.Redis.Prefix), nil

	default:
		store, err := boltdb.Open(cfg.Storage.Path, cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("bolt storage: %w", err)
		}
		manager.Register("bolt", func(context.Context) error {
			return store.Close()
		})
		logger.Info("session storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("path", cfg.Storage.Path))
		return store, nil
	}
}

// Close runs the registered shutdown hooks.
func (a *App) Close(ctx context.Context) error {
	return a.Lifecycle.Shutdown(ctx)
}

// Handler builds the preview router around a started monitor.
func (a *App) Handler(mon *monitor.Monitor) fasthttp.RequestHandler {
	adapter := httpcontext.NewAdapter(a.Config.Context.RequestTimeout)
	r := router.New(router.Handlers{
		View:   apiHandler.NewViewHandler(a.Dispatcher, adapter, a.Logger),
		Health: apiHandler.NewHealthHandler(mon, adapter, a.Logger),
	}, middleware.NewGuard(a.Session, adapter, a.Logger))
	return r.Handler
}

// Serve runs the preview server with the connectivity monitor and the session
// watchdog until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config

	mon := monitor.New(a.API, a.Storage, cfg.Storage.Driver, a.Session, cfg.Monitor.Interval, a.Logger.Named("monitor"))
	mon.Start()
	a.Lifecycle.Register("monitor", func(context.Context) error {
		mon.Stop()
		return nil
	})

	watchdog := services.NewSessionWatchdog(a.Session, a.Logger.Named("watchdog"), services.WatchdogConfig{
		Interval: cfg.Watchdog.Interval,
	})
	watchdog.Start()
	a.Lifecycle.Register("session_watchdog", func(ctx context.Context) error {
		watchdog.Stop(ctx)
		return nil
	})

	server := &fasthttp.Server{
		Handler:      a.Handler(mon),
		ReadTimeout:  cfg.Preview.ReadTimeout,
		WriteTimeout: cfg.Preview.WriteTimeout,
		IdleTimeout:  cfg.Preview.IdleTimeout,
		Name:         cfg.AppName,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("preview server started", zap.String("address", cfg.Address()), zap.String("api", cfg.API.BaseURL))
		errCh <- server.ListenAndServe(cfg.Address())
	}()
	a.Lifecycle.Register("preview_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// RequestTimeout bounds one CLI command.
func (a *App) RequestTimeout() time.Duration {
	if a.Config.Context.RequestTimeout > 0 {
		return a.Config.Context.RequestTimeout
	}
	return 20 * time.Second
}
