package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ledgerview/internal/amqp"
	"ledgerview/internal/backend"
	"ledgerview/internal/cache"
	"ledgerview/internal/cli"
	apphttp "ledgerview/internal/http"
	"ledgerview/internal/log"
	"ledgerview/internal/middleware/security"
	"ledgerview/internal/notify"
	"ledgerview/internal/records"
	"ledgerview/internal/services"
	"ledgerview/internal/worker"
	"ledgerview/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Start the web UI and JSON API.

With AMQP_URL set, tenant switches and new records are shared with other
replicas and lists showing affected data reload automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	logger.Info("Starting ledgerview", "version", version, "port", cfg.Port, "backend", cfg.DataBackend)

	formatter, err := cli.NewFormatter(cfg)
	if err != nil {
		return fmt.Errorf("create currency formatter: %w", err)
	}

	proxy := security.NewProxyTrust(cfg.IdentityHeader)
	if len(cfg.TrustedProxies) > 0 {
		if err := proxy.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return fmt.Errorf("configure trusted proxies: %w", err)
		}
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.FetchTimeout+5*time.Second)
	res, err := cli.OpenStore(startCtx, logger, cfg)
	cancelStart()
	if err != nil {
		return err
	}

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	var (
		repo        records.Repository = res.Store
		invalidator services.Invalidator
	)
	if cfg.CacheEnabled() {
		cached := records.NewCached(res.Store, cfg.CacheSize, cfg.CacheTTL).WithTimeout(cfg.FetchTimeout)
		repo, invalidator = cached, cached
		cacheManager.Register("records", cached)
		logger.Info("Record cache enabled", "ttl", cfg.CacheTTL, "size", cfg.CacheSize)
	}

	var (
		bus       *amqp.Client
		publisher services.Publisher
		notifier  notify.Notifier = notify.NewLog(logger.WithComponent(log.ComponentListView).Logger)
	)
	if cfg.EventsEnabled() {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			_ = res.Cleanup()
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		publisher = bus
		notifier = notify.Multi{notifier, bus}
		logger.Info("Event bus connected", "exchange", cfg.AMQPExchange, "origin", bus.Origin())
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	registry := workspace.NewRegistry(appCtx, workspace.Deps{
		Repository:   repo,
		Notifier:     notifier,
		Logger:       logger.WithComponent(log.ComponentWorkspace),
		FetchTimeout: cfg.FetchTimeout,
	}, cfg.WorkspaceLimit, cfg.WorkspaceTTL)
	cacheManager.Register("workspaces", registry)
	cacheManager.StartCleanup(time.Minute)

	if bus != nil {
		ew := worker.NewEventWorker(bus, registry, invalidator, logger.WithComponent(log.ComponentWorker).Logger)
		go func() {
			if err := ew.Run(appCtx); err != nil {
				logger.Error("Event worker stopped", "error", err)
			}
		}()
	}

	var ready func(context.Context) error
	if p, ok := res.Store.(backend.Pinger); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Registry:     registry,
		Tenants:      res.Store,
		Formatter:    formatter,
		Publisher:    publisher,
		Ready:        ready,
		Logger:       logger,
		Proxy:        proxy,
		RefreshLimit: cfg.RefreshRateLimit,
	})
	srv.ReadTimeout = 10 * time.Second
	// Refresh waits for the fetch, so writes must outlast it.
	srv.WriteTimeout = cfg.FetchTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	cleanup := func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		stopApp()
		cacheManager.Stop()
		registry.Each(func(ws *workspace.Workspace) { ws.Stop() })
		if bus != nil {
			if err := bus.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Store close error", "error", err)
		}
	}
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, cleanup)

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cleanup(context.Background())
		return fmt.Errorf("serve on port %s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
