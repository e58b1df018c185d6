package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plugaishop/ordercore/internal/analytics"
	"github.com/plugaishop/ordercore/internal/bus"
	"github.com/plugaishop/ordercore/internal/config"
	"github.com/plugaishop/ordercore/internal/engine"
	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/logger"
	"github.com/plugaishop/ordercore/internal/notification"
	"github.com/plugaishop/ordercore/internal/server"
	"github.com/plugaishop/ordercore/internal/storage"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv := kvstore.New(cfg.DataDir)
	orders := storage.NewOrderStore(kv)
	notifications := storage.NewNotificationStore(kv)
	guard := notification.NewGuard(kv)
	changeBus := bus.New()

	var sink analytics.Sink
	if len(cfg.KafkaBrokers) > 0 {
		sink = analytics.NewKafkaSink(cfg.KafkaBrokers, cfg.AnalyticsTopic)
		zap.S().Infow("analytics sink: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.AnalyticsTopic)
	} else {
		sink = analytics.NewConsoleSink()
		zap.S().Info("analytics sink: console")
	}
	defer func() {
		if err := sink.Close(); err != nil {
			zap.S().Warnw("failed to close analytics sink", "error", err)
		}
	}()

	eng := engine.New(orders, notifications, guard, changeBus, sink)
	srv := server.New(eng)

	changeBus.Subscribe(func() {
		zap.S().Debugw("state changed", "unread", eng.UnreadNotifications(ctx))
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(cfg.Port)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.AutoProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := eng.AutoProgressPass(gctx); n > 0 {
					zap.S().Infow("auto-progress pass", "advanced", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Fatalw("server exited", "error", err)
	}
	zap.S().Info("server gracefully stopped")
}
