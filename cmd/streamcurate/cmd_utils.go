package main

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"streamcurate/pkg/cluster"
	"streamcurate/pkg/trackio"
	"streamcurate/pkg/tract"
)

// buildLogger returns a zap logger writing to sink, which is either a
// file path or one of zap's registered sinks like "stderr". The
// interactive screen owns the terminal, so the curate command logs to
// a file; the batch commands log to stderr.
func buildLogger(sink string) *zap.Logger {
	var zcfg zap.Config
	if cfg.Output.Verbose {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.OutputPaths = []string{sink}
	zcfg.ErrorOutputPaths = []string{sink}

	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	return logger
}

// metricFor picks the clustering distance from the resample point
// count and orientation flags.
func metricFor(points int, flipInvariant bool) cluster.Metric {
	if flipInvariant {
		return cluster.MinimumDirectFlip{Points: points}
	}
	return cluster.AveragePointwise{Points: points}
}

// loadTracts merges the named track files in argument order.
func loadTracts(args []string) *tract.Tractogram {
	tracts, err := trackio.LoadAll(context.Background(), args)
	if err != nil {
		log.Fatalf("Failed to load tracks: %v", err)
	}
	return tracts
}

// defaultPrefix derives an output prefix from the first input file:
// its base name without the extension.
func defaultPrefix(args []string) string {
	base := filepath.Base(args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}
