package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"deliverysim/internal/api"
	"deliverysim/internal/config"
	"deliverysim/internal/logging"
	"deliverysim/internal/redis"
	"deliverysim/internal/service/entity"
	"deliverysim/internal/telemetry"
	"deliverysim/internal/worker"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("dashboard: %v", err)
	}
}

func run() (err error) {
	flags := config.Flags("dashboard")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, _, err := config.LoadConfig(":3001", flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.ValidateDashboard(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser, err := logging.Setup(logging.Options{Name: "dashboard", Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	hub := entity.NewHub(cfg.EventBuffer)
	index := entity.NewSpatialIndex()
	agg := entity.NewAggregator(entity.WithObserver(hub), entity.WithObserver(index), entity.WithLogger(logger))

	var mirror *redis.Mirror
	if cfg.RedisUrl != "" {
		var client *goredis.Client
		if client, err = redis.Init(cfg.RedisUrl); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redis.Close(client)) }()
		mirror = redis.NewMirror(client, cfg.MirrorTTL, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	receiver := telemetry.NewReceiver(cfg.ListenAddr, agg, logger)

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	workers := worker.StartAllWorkers(workersCtx, worker.Workers{
		Aggregator:     agg,
		Mirror:         mirror,
		MirrorInterval: cfg.MirrorInterval,
		StatsInterval:  config.StatsLogInterval,
		Logger:         logger,
	})
	// Workers stop after the receiver so the final mirror flush sees every message
	defer func() {
		stopWorkers()
		workers.Wait()
	}()

	r := gin.Default()
	api.SetupDashboardRouter(r, map[string]string{
		"port":       cfg.Port,
		"listenAddr": cfg.ListenAddr,
		"mirror":     fmt.Sprint(mirror != nil),
	}, agg, hub, index)

	g, ctx := errgroup.WithContext(ctx)
	// Event streams end when ctx does; Shutdown alone would wait for them
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error { return receiver.Run(ctx) })
	g.Go(func() error {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
