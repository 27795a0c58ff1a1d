package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cms_mirror/internal/httpapi"
	"cms_mirror/internal/scheduler"
	"cms_mirror/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve webhooks and the read API, reconciling on a schedule",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger

	verifier := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if !verifier.Enabled() {
		logger.Warn("webhook secret not set, signature verification disabled")
	}

	var deduper httpapi.Deduplicator
	if a.redis != nil {
		deduper = webhook.NewDeduper(a.redis, verifier.Tolerance())
	}

	if cfg.Sync.Secret == "" {
		logger.Warn("sync secret not set, manual sync endpoint disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		WebhookHandler: httpapi.NewWebhookHandler(verifier, deduper, a.webhooks, logger),
		SyncHandler:    httpapi.NewSyncHandler(a.reconciler, cfg.Sync.Timeout, logger),
		ReadHandler:    httpapi.NewReadHandler(a.reader),
		SyncSecret:     cfg.Sync.Secret,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if !cfg.Sync.ScheduleDisabled {
		sched := scheduler.NewScheduler(a.reconciler, cfg.Sync.Interval, cfg.Sync.Timeout, logger)
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
