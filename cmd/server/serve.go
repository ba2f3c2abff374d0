package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/config"
	"github.com/iliyamo/manufacturer-api/internal/database"
	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/queue"
	"github.com/iliyamo/manufacturer-api/internal/router"
	"github.com/iliyamo/manufacturer-api/internal/service"
)

func serveCmd() *cobra.Command {
	var (
		consume  bool
		orderLog string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), consume, orderLog)
		},
	}
	cmd.Flags().BoolVar(&consume, "consume", true, "run the order event consumer when events are enabled")
	cmd.Flags().StringVar(&orderLog, "order-log", "logs/orders.log", "file the order event consumer appends to")
	return cmd
}

func runServe(parent context.Context, consume bool, orderLog string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.L()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	} else {
		log.Info("redis unavailable; role cache and response cache disabled")
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.AMQPURL)
		if consume {
			f, err := queue.OpenOrderLog(orderLog)
			if err != nil {
				return err
			}
			defer f.Close()
			go func() {
				if err := queue.NewConsumer(cfg.AMQPURL, f).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("order consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is empty; payment intents will fail")
	}

	e := router.New(router.Deps{
		Cfg:       cfg,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Store:     store,
		Redis:     rdb,
		Intents:   service.NewStripeIntents(cfg.StripeSecretKey, nil),
		Events:    events,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
