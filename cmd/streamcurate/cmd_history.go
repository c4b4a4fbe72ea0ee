package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"streamcurate/pkg/journal"
)

func runHistory(cmd *cobra.Command, args []string) {
	if !cmd.Flags().Changed("journal") {
		journalPath = cfg.Output.JournalPath
	}
	if journalPath == "" {
		log.Fatalf("No journal given; pass --journal or set output.journalPath in the config")
	}

	j, err := journal.Open(journalPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	if len(args) == 1 {
		printDecisions(ctx, j, args[0])
		return
	}
	printRuns(ctx, j)
}

func printRuns(ctx context.Context, j *journal.Journal) {
	runs, err := j.Runs(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No curation runs recorded.")
		return
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  prefix=%s  %d streamlines  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Prefix,
			r.Streamlines,
			strings.Join(r.Sources, ","))
	}
}

func printDecisions(ctx context.Context, j *journal.Journal, runID string) {
	decs, err := j.Decisions(ctx, runID)
	if err != nil {
		log.Fatalf("Failed to list decisions: %v", err)
	}
	if len(decs) == 0 {
		fmt.Println("No decisions recorded for this run.")
		return
	}

	for _, d := range decs {
		thr := "-"
		if !math.IsNaN(d.Threshold) {
			thr = fmt.Sprintf("%.2f", d.Threshold)
		}
		bundle := d.Bundle
		if bundle == "" {
			bundle = "-"
		}
		fmt.Printf("%3d  %-6s  %-14s  %6d lines  threshold %-8s  %s\n",
			d.Seq, d.Action, bundle, d.Streamlines, thr,
			d.CreatedAt.Local().Format("15:04:05"))
	}
}
