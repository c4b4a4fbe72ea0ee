package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	anatPath      string
	prefix        string
	threshold     float64
	undoCapacity  int
	journalPath   string
	points        int
	flipInvariant bool

	lengthGT float64
	lengthLT float64
	sizeGT   int
	sizeLT   int

	slicesDir string
	limit     int

	rootCmd = &cobra.Command{
		Use:   "streamcurate",
		Short: "Interactive curation of streamline tractography bundles",
		Long: `Streamcurate loads whole-brain tractograms, clusters them into
bundles and drives an interactive accept/reject review with bounded
undo. Batch clustering, tractogram statistics and the curation journal
are available as subcommands.`,
	}

	curateCmd = &cobra.Command{
		Use:   "curate [flags] TRACTOGRAM...",
		Short: "Review and curate bundles interactively",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCurate, // Defined in cmd_curate.go
	}

	clusterCmd = &cobra.Command{
		Use:   "cluster [flags] TRACTOGRAM...",
		Short: "Cluster tracks in one batch pass and save the surviving bundles",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCluster, // Defined in cmd_tracks.go
	}

	infoCmd = &cobra.Command{
		Use:   "info [flags] TRACTOGRAM...",
		Short: "Print streamline statistics for one or more track files",
		Args:  cobra.MinimumNArgs(1),
		Run:   runInfo, // Defined in cmd_tracks.go
	}

	historyCmd = &cobra.Command{
		Use:   "history [run-id]",
		Short: "List curation runs and their recorded decisions",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHistory, // Defined in cmd_history.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "streamcurate.yaml",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Debug-level logging")

	rootCmd.AddCommand(curateCmd)
	curateCmd.Flags().StringVar(&anatPath, "anat", "",
		"NIfTI anatomy volume shown alongside the tracks")
	curateCmd.Flags().StringVar(&prefix, "prefix", "",
		"Output file prefix, may include a directory (default: first input basename)")
	curateCmd.Flags().Float64Var(&threshold, "threshold", 0,
		"Clustering threshold in mm applied on selection (0 previews the widest)")
	curateCmd.Flags().IntVar(&undoCapacity, "undo", 0,
		"Undo log capacity (0 uses the built-in default)")
	curateCmd.Flags().StringVar(&journalPath, "journal", "",
		"SQLite file recording the curation decisions of this run")
	curateCmd.Flags().IntVar(&points, "points", 0,
		"Resample streamlines to this many points for clustering (0 uses the built-in default)")
	curateCmd.Flags().BoolVar(&flipInvariant, "flip-invariant", false,
		"Compare streamlines in both orientations (minimum direct flip distance)")

	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().Float64Var(&threshold, "threshold", 15,
		"Clustering threshold in mm")
	clusterCmd.Flags().StringVar(&prefix, "prefix", "",
		"Output file prefix (default: first input basename)")
	clusterCmd.Flags().Float64Var(&lengthGT, "length-gt", 0,
		"Keep clusters whose centroid is longer than this many mm")
	clusterCmd.Flags().Float64Var(&lengthLT, "length-lt", 1000,
		"Keep clusters whose centroid is shorter than this many mm")
	clusterCmd.Flags().IntVar(&sizeGT, "size-gt", 0,
		"Keep clusters with more streamlines than this")
	clusterCmd.Flags().IntVar(&sizeLT, "size-lt", 100000000,
		"Keep clusters with fewer streamlines than this")
	clusterCmd.Flags().IntVar(&points, "points", 0,
		"Resample streamlines to this many points for clustering (0 uses the built-in default)")
	clusterCmd.Flags().BoolVar(&flipInvariant, "flip-invariant", false,
		"Compare streamlines in both orientations (minimum direct flip distance)")

	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&anatPath, "anat", "",
		"Also describe this NIfTI anatomy volume")
	infoCmd.Flags().StringVar(&slicesDir, "slices", "",
		"Write mid-volume anatomy slices as JPEGs into this directory")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&journalPath, "journal", "",
		"SQLite journal to read (default: the configured journal path)")
	historyCmd.Flags().IntVar(&limit, "limit", 10,
		"Number of runs to list, newest first (0 lists all)")
}
