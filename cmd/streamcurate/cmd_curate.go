package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"streamcurate/internal/tui"
	"streamcurate/pkg/anatomy"
	"streamcurate/pkg/journal"
	"streamcurate/pkg/scene"
	"streamcurate/pkg/session"
	"streamcurate/pkg/trackio"
)

// mergeCurateFlags fills every curate flag the user left untouched
// from the configuration file.
func mergeCurateFlags(cmd *cobra.Command, args []string) {
	if !cmd.Flags().Changed("threshold") {
		threshold = cfg.Session.DefaultThreshold
	}
	if !cmd.Flags().Changed("undo") {
		undoCapacity = cfg.Session.UndoCapacity
	}
	if !cmd.Flags().Changed("journal") {
		journalPath = cfg.Output.JournalPath
	}
	if !cmd.Flags().Changed("anat") {
		anatPath = cfg.Anatomy.Path
	}
	if !cmd.Flags().Changed("points") {
		points = cfg.Clustering.ResamplePoints
	}
	if !cmd.Flags().Changed("flip-invariant") {
		flipInvariant = cfg.Clustering.FlipInvariant
	}
	if prefix == "" {
		prefix = cfg.Output.Prefix
	}
	if prefix == "" {
		prefix = defaultPrefix(args)
	}
}

func runCurate(cmd *cobra.Command, args []string) {
	mergeCurateFlags(cmd, args)

	if dir := filepath.Dir(prefix); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	logger := buildLogger(prefix + "_curate.log")
	defer func() { _ = logger.Sync() }()

	tracts := loadTracts(args)
	fmt.Printf("Loaded %d streamlines from %d files\n", tracts.Len(), len(args))

	var vol *anatomy.Volume
	if anatPath != "" {
		var err error
		vol, err = anatomy.LoadNIfTI(anatPath)
		if err != nil {
			log.Fatalf("Failed to load anatomy volume: %v", err)
		}
	}

	sink := tui.NewStatusSink()
	sess := session.New(scene.NewMemoryStage(), tracts, session.Options{
		Prefix:           prefix,
		Extension:        cfg.Output.Extension,
		DefaultThreshold: threshold,
		UndoCapacity:     undoCapacity,
		Metric:           metricFor(points, flipInvariant),
		Storage:          trackio.FileStore{},
		Observer:         sink,
		Logger:           logger,
	})

	opts := tui.Options{
		Session: sess,
		Sink:    sink,
		Volume:  vol,
		Width:   cfg.Session.ScreenWidth,
		Height:  cfg.Session.ScreenHeight,
		Logger:  logger,
	}

	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		defer j.Close()

		runID, err := j.BeginRun(context.Background(), prefix, args, tracts.Len())
		if err != nil {
			log.Fatalf("Failed to begin journal run: %v", err)
		}
		opts.Journal = j
		opts.RunID = runID
		logger.Info("journal run started",
			zap.String("journal", journalPath), zap.String("run", runID))
	}

	p := tea.NewProgram(tui.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Interactive session failed: %v", err)
	}
}
