package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"streamcurate/pkg/anatomy"
	"streamcurate/pkg/cluster"
	"streamcurate/pkg/trackio"
)

// runCluster is the batch counterpart of the interactive review: one
// clustering pass at a fixed threshold, keep the clusters inside the
// length and size windows, save each survivor as a bundle file.
func runCluster(cmd *cobra.Command, args []string) {
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
	ext := cfg.Output.Extension

	tracts := loadTracts(args)
	fmt.Printf("Loaded %d streamlines from %d files\n", tracts.Len(), len(args))

	qb := cluster.QuickBundles{
		Metric:    metricFor(points, flipInvariant),
		Threshold: threshold,
	}
	clusters := qb.Cluster(tracts)
	fmt.Printf("Found %d clusters at threshold %.1f mm\n", len(clusters), threshold)

	store := trackio.FileStore{}
	kept := 0
	for _, c := range clusters {
		length := c.Centroid.Length()
		if length <= lengthGT || length >= lengthLT {
			continue
		}
		if c.Size() <= sizeGT || c.Size() >= sizeLT {
			continue
		}

		path := fmt.Sprintf("%s_bundle_%d%s", prefix, kept, ext)
		if err := store.Write(path, tracts.Slice(c.Indices)); err != nil {
			log.Fatalf("Failed to save cluster: %v", err)
		}
		fmt.Printf("  %s: %d streamlines, centroid %.1f mm\n", path, c.Size(), length)
		kept++
	}

	fmt.Printf("Saved %d of %d clusters\n", kept, len(clusters))
}

func runInfo(cmd *cobra.Command, args []string) {
	tracts := loadTracts(args)

	fmt.Printf("Tracks:  %d\n", tracts.Len())
	fmt.Printf("Points:  %d\n", tracts.TotalPoints())

	if tracts.Len() > 0 {
		lengths := make([]float64, tracts.Len())
		for i := range lengths {
			lengths[i] = tracts.Line(i).Length()
		}
		sort.Float64s(lengths)

		fmt.Printf("Length:  mean %.1f mm  sd %.1f  median %.1f  min %.1f  max %.1f\n",
			stat.Mean(lengths, nil),
			stat.StdDev(lengths, nil),
			stat.Quantile(0.5, stat.Empirical, lengths, nil),
			lengths[0], lengths[len(lengths)-1])

		lo, hi := tracts.Bounds()
		fmt.Printf("Bounds:  [%.1f %.1f %.1f] to [%.1f %.1f %.1f]\n",
			lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
		fmt.Printf("Extent:  %.1f mm\n", tracts.Extent())
	}

	if anatPath == "" {
		return
	}

	vol, err := anatomy.LoadNIfTI(anatPath)
	if err != nil {
		log.Fatalf("Failed to load anatomy volume: %v", err)
	}
	w, h, d := vol.Dims()
	vx, vy, vz := vol.VoxelSize()
	lo, hi := vol.Range()
	fmt.Printf("Anatomy: %dx%dx%d voxels  %.2fx%.2fx%.2f mm  intensity %.1f to %.1f\n",
		w, h, d, vx, vy, vz, lo, hi)

	if slicesDir == "" {
		return
	}
	if err := os.MkdirAll(slicesDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", slicesDir, err)
	}

	x, y, z := vol.MidSlices()
	for _, s := range []struct {
		axis string
		pos  int
	}{{"x", x}, {"y", y}, {"z", z}} {
		img, err := vol.ExtractSlice(s.axis, s.pos)
		if err != nil {
			log.Fatalf("Failed to extract %s slice: %v", s.axis, err)
		}
		path := filepath.Join(slicesDir, fmt.Sprintf("%s_%03d.jpg", s.axis, s.pos))
		if err := anatomy.WriteSliceJPEG(img, path); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
}
