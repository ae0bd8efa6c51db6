package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"deliverysim/internal/config"
	"deliverysim/internal/logging"
	"deliverysim/internal/model"
	"deliverysim/internal/postgres"
	"deliverysim/internal/service/simulation"
	"deliverysim/internal/service/startpoint"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed-start-points: %v", err)
	}
}

func run() (err error) {
	flags := config.Flags("seed-start-points")
	format := flags.String("format", "", "input format: geojson or osm (default from the file extension)")
	sourceName := flags.String("source", "", "label stored with each point; replaces earlier rows with the same label")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, _, err := config.LoadConfig("", flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.DBUrl == "" {
		return fmt.Errorf("DB_URL is required")
	}

	logger, logCloser, err := logging.Setup(logging.Options{Name: "seed-start-points", Level: cfg.LogLevel, File: "-"})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file := cfg.StartPointsFile
	if *format == "" {
		*format = formatFromPath(file)
	}
	if *sourceName == "" {
		*sourceName = *format
	}

	start := time.Now()
	var candidates []startpoint.Candidate
	switch *format {
	case "geojson":
		candidates, err = startpoint.LoadGeoJSON(afero.NewOsFs(), file)
	case "osm":
		extent := simulation.ExtentFromMercator(cfg.Extent)
		candidates, err = startpoint.LoadOSM(ctx, afero.NewOsFs(), file, startpoint.ParseTagFilter(cfg.OsmTag), extent)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return err
	}
	logger.Info("start points read", "file", file, "count", len(candidates), "took", time.Since(start))

	db, err := postgres.Init(cfg.DBUrl)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, postgres.Close(db)) }()

	rows := make([]model.StartPointPG, len(candidates))
	for i, c := range candidates {
		rows[i] = model.StartPointPG{Name: c.Name, Lon: c.Point.Lon(), Lat: c.Point.Lat()}
	}

	if err := postgres.ReplaceStartPoints(ctx, db, *sourceName, rows); err != nil {
		return err
	}
	logger.Info("start points stored", "source", *sourceName, "count", len(rows), "took", time.Since(start))
	return nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pbf":
		return "osm"
	default:
		return "geojson"
	}
}
