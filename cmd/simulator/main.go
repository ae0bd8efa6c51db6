package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"deliverysim/internal/api"
	"deliverysim/internal/config"
	"deliverysim/internal/logging"
	"deliverysim/internal/postgres"
	"deliverysim/internal/service/routing"
	"deliverysim/internal/service/simulation"
	"deliverysim/internal/service/startpoint"
	"deliverysim/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("simulator: %v", err)
	}
}

func run() (err error) {
	flags := config.Flags("simulator")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, v, err := config.LoadConfig(":3000", flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser, err := logging.Setup(logging.Options{Name: "simulator", Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	rng := newRand(cfg.RandomSeed)

	var db *gorm.DB
	if cfg.StartPoints == "pg" {
		if db, err = postgres.Init(cfg.DBUrl); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, postgres.Close(db)) }()
	}

	source, err := newStartPointSource(cfg, db)
	if err != nil {
		return err
	}
	solver, err := newSolver(cfg, logger)
	if err != nil {
		return err
	}

	sender, err := telemetry.DialUDP(cfg.SimTargetAddr, telemetry.SenderOptions{
		SpeedVarianceMin: cfg.SpeedVarianceMin,
		SpeedVarianceMax: cfg.SpeedVarianceMax,
		Rand:             rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sender.Close()) }()

	scheduler := simulation.NewScheduler(solver, source, sender, simulation.Options{
		Company:           cfg.Company,
		MaxActiveRoutes:   cfg.MaxActiveRoutes,
		SpeedMultiplier:   cfg.SpeedMultiplier,
		BaseTickInterval:  cfg.BaseTickInterval,
		ReplenishInterval: cfg.ReplenishInterval,
		SkipProbability:   simulation.Probability(cfg.SkipProbability),
		Extent:            simulation.ExtentFromMercator(cfg.Extent),
		Rand:              rng,
		Logger:            logger,
	})
	watchRate(v, scheduler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Connect(ctx); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}
	defer scheduler.Disconnect()

	reportMemoryStats(ctx, logger)

	r := gin.Default()
	api.SetupSimulatorRouter(r, map[string]string{
		"port":        cfg.Port,
		"company":     cfg.Company.String(),
		"target":      cfg.SimTargetAddr,
		"solver":      cfg.Solver,
		"startPoints": cfg.StartPoints,
	}, scheduler)

	return serve(ctx, &http.Server{Addr: cfg.Port, Handler: r})
}

// serve runs srv until ctx is done, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
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

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	slog.Info("random source", "seed", seed)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newStartPointSource(cfg config.Config, db *gorm.DB) (startpoint.Source, error) {
	switch cfg.StartPoints {
	case "pg":
		return startpoint.NewPGSource(db), nil
	case "geojson":
		return startpoint.NewGeoJSONSource(afero.NewOsFs(), cfg.StartPointsFile), nil
	case "osm":
		extent := simulation.ExtentFromMercator(cfg.Extent)
		return startpoint.NewOSMSource(afero.NewOsFs(), cfg.StartPointsFile, startpoint.ParseTagFilter(cfg.OsmTag), extent), nil
	}
	return nil, fmt.Errorf("unknown start point source %q", cfg.StartPoints)
}

func newSolver(cfg config.Config, logger *slog.Logger) (routing.Solver, error) {
	var solver routing.Solver
	switch cfg.Solver {
	case "direct":
		solver = routing.NewDirectSolver()
	case "ors":
		ors, err := routing.NewORSSolver(cfg.OrsAPIKey, cfg.OrsBaseURL, logger)
		if err != nil {
			return nil, err
		}
		solver = ors
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
	}

	if cfg.SolverCacheSize <= 0 {
		return solver, nil
	}
	cached, err := routing.NewCachingSolver(solver, cfg.SolverCacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// watchRate applies SPEED_MULTIPLIER edits in the .env file without a restart
func watchRate(v *viper.Viper, scheduler *simulation.Scheduler, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	config.WatchSpeedMultiplier(v, func(multiplier float64) {
		if err := scheduler.SetRate(multiplier); err != nil {
			logger.Warn("ignoring speed multiplier from config file", "err", err)
		}
	})
}

func reportMemoryStats(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)
				logger.Debug("memory",
					"alloc_mib", m.Alloc/1024/1024,
					"sys_mib", m.Sys/1024/1024,
					"num_gc", m.NumGC)
			}
		}
	}()
}
