package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coop-door-backend/internal/api"
	"coop-door-backend/internal/mqtt"
	"coop-door-backend/internal/mw"
	"coop-door-backend/internal/notification"
	"coop-door-backend/internal/reconciler"
	"coop-door-backend/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := openSources(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		return err
	}
	defer src.Close()

	hub := stream.NewHub(logger, mw.OriginChecker(cfg.Server.AllowedOrigins))
	src.gateway.Subscribe(hub.Broadcast)

	var alerters []reconciler.Alerter

	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, src.db, webpushOptions, logger)
		alerters = append(alerters, pool)
	} else {
		logger.Info("VAPID keys not configured; push notifications disabled")
	}

	if cfg.MQTT.Enabled {
		mq, err := mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT unavailable; continuing without it", zap.Error(err))
		} else {
			defer mq.Close()
			src.gateway.Subscribe(mq.OnStatus)
			alerters = append(alerters, mq)
			if status, err := src.gateway.ReadStatus(ctx); err == nil {
				mq.OnStatus(status)
			}
		}
	}

	svc := reconciler.NewService(cfg, src.almanac, src.gateway, logger, reconciler.WithAlerters(alerters...))

	router := api.NewRouter(cfg, api.Deps{
		Status:  src.gateway,
		Almanac: src.almanac,
		DB:      src.db,
		WebPush: webpushOptions,
		Hub:     hub,
		Logger:  logger,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if pool != nil {
		pool.Start(gctx)
	}

	g.Go(func() error {
		svc.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping services...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server gracefully stopped")
	return nil
}
