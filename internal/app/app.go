package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/config"
	"github.com/MrSnakeDoc/banners/internal/console"
	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/httpserver"
	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
	"github.com/MrSnakeDoc/banners/internal/identity"
	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/records"
	"github.com/MrSnakeDoc/banners/internal/redis"
	"github.com/MrSnakeDoc/banners/internal/scheduler"
	"github.com/MrSnakeDoc/banners/internal/staging"
	redisstore "github.com/MrSnakeDoc/banners/internal/store/redis"
	"github.com/MrSnakeDoc/banners/internal/store/sqlstore"
	"github.com/MrSnakeDoc/banners/internal/utils"
	"github.com/MrSnakeDoc/banners/internal/version"
)

type App struct {
	cfg         *config.Config
	desc        config.Descriptor
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sqlStore    *sqlstore.Store
	machine     *auth.Machine
	console     *console.Console
	reloader    *scheduler.DirectoryReloader // nil without an identity directory
	collector   *scheduler.PreviewCollector
}

// New wires every component from cfg. A missing or unreachable backend never
// stops the process: the affected features report NotReady instead.
func New(cfg *config.Config) *App {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	desc := config.Resolve(cfg)
	if !desc.Ready {
		loggerClient.Warn("service descriptor not ready, running degraded",
			logger.String("reason", desc.Reason))
	}

	a := &App{cfg: cfg, desc: desc, logger: loggerClient}
	reason := desc.Reason

	// Redis backs the object store and the default document store.
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Error("redis unavailable, uploads and redis documents disabled", logger.Error(err))
			reason = "object store unavailable: " + err.Error()
		} else {
			a.redisClient = client
			loggerClient.Info("Redis initialized successfully")
		}
	}

	var (
		objects      staging.ObjectStore
		objectStore  *redisstore.ObjectStore
		docs         records.DocumentStore
		docsPinger   deps.Pinger
		operators    func() int
		provider     auth.Provider
		reloadSignal chan struct{}
	)

	if desc.Ready && a.redisClient != nil {
		objectStore = redisstore.NewObjectStore(a.redisClient, desc.Objects.PublicURL, desc.Objects.PublicRead)
		objects = objectStore
	}

	if desc.Ready {
		switch desc.Documents.Driver {
		case config.DocStoreRedis:
			if a.redisClient != nil {
				docs = redisstore.NewDocumentStore(a.redisClient)
			}
		case config.DocStoreSQLite, config.DocStorePostgres:
			store, err := sqlstore.Open(desc.Documents.Driver, desc.Documents.DSN)
			if err != nil {
				loggerClient.Error("document store unavailable", logger.Error(err))
				reason = "document store unavailable: " + err.Error()
			} else {
				a.sqlStore = store
				docs = store
				docsPinger = store
			}
		}
	}

	if desc.Ready {
		loader := identity.NewDirectoryLoader(desc.Identity.File)
		dir, err := loader.Load()
		if err != nil {
			loggerClient.Error("identity directory unavailable", logger.Error(err))
			provider = identity.Unavailable{Reason: "identity directory unavailable: " + err.Error()}
		} else {
			local := identity.NewLocal(dir, []byte(desc.Identity.Secret), desc.Identity.TokenTTL, loggerClient.Named("identity"))
			provider = local
			operators = local.Operators
			reloadSignal = make(chan struct{}, 1)
			a.reloader = scheduler.NewDirectoryReloader(loader, local, loggerClient.Named("directory"),
				cfg.DirectoryReloadInterval, cfg.IdentityWatch, reloadSignal)
			loggerClient.Info("identity directory loaded", logger.Int("operators", dir.Len()))
		}
	} else {
		provider = identity.Unavailable{Reason: desc.Reason}
	}

	a.machine = auth.NewMachine(provider, auth.BuildPolicies(auth.PolicyOptions{
		Allowlist:  cfg.AdminAllowlist,
		ClaimCheck: cfg.ClaimCheck,
		ClaimName:  cfg.ClaimName,
		ClaimValue: cfg.ClaimValue,
	}, provider), loggerClient.Named("auth"), cfg.AuthCheckTimeout)

	seed := loadSeed(cfg.SeedFile, loggerClient)

	facade := records.NewFacade(docs, records.Options{
		Collection: desc.Documents.Collection,
		Ready:      desc.Ready,
		Reason:     reason,
		Seed:       seed,
	}, loggerClient.Named("records"))

	previews := staging.NewPreviewRegistry()
	pipeline := staging.NewPipeline(objects, previews, staging.Options{
		Prefix:     desc.Objects.Prefix,
		URLTimeout: desc.Objects.DownloadURLTimeout,
		Ready:      desc.Ready && objects != nil,
		Reason:     reason,
	}, loggerClient.Named("staging"))

	a.console = console.New(provider, a.machine, facade, pipeline, loggerClient.Named("console"))
	a.collector = scheduler.NewPreviewCollector(previews, loggerClient.Named("previews"), cfg.PreviewGCInterval, cfg.PreviewTTL)

	credentials, _ := provider.(deps.Credentials)
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		CORSOrigins:   cfg.CORSOrigins,
		Descriptor:    desc,
		RedisClient:   a.redisClient,
		Credentials:   credentials,
		Console:       a.console,
		Facade:        facade,
		Previews:      previews,
		Objects:       objectStore,
		Documents:     docsPinger,
		Operators:     operators,
		ReloadTrigger: reloadSignal,
		SignInLimit: deps.SignInLimit{
			Burst:        cfg.SignInBurst,
			RefillPerMin: cfg.SignInRefillPerMin,
		},
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a
}

// loadSeed reads the optional seed override. A broken file falls back to
// the built-in seed set.
func loadSeed(path string, log logger.Logger) []domain.Record {
	if path == "" {
		return nil
	}
	seed, err := records.NewSeedLoader(path).Load()
	if err != nil {
		log.Warn("seed file ignored, using built-in demo data", logger.Error(err))
		return nil
	}
	log.Info("seed file loaded", logger.String("file", path), logger.Int("records", len(seed)))
	return seed
}

// Descriptor returns the resolved service descriptor.
func (a *App) Descriptor() config.Descriptor { return a.desc }

func (a *App) Run() error {
	a.logger.Infof("Starting banners %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("banners %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.machine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start auth state machine: %w", err)
	}

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start directory reloader: %w", err)
		}
	}

	if err := a.collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start preview collector: %w", err)
	}
	a.logger.Info("preview collector started",
		logger.Duration("interval", a.cfg.PreviewGCInterval),
		logger.Duration("ttl", a.cfg.PreviewTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.collector.Stop()
	a.machine.Stop()
	utils.CloseLogged(a.console, a.logger, "console")

	if a.sqlStore != nil {
		utils.CloseLogged(a.sqlStore, a.logger, "document store")
	}
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}

	if runErr == nil {
		a.logger.Info("banners stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}
