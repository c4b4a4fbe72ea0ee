// Package bundle implements the unit of curation: a named group of
// streamlines together with its on-demand cluster decomposition,
// per-point display colors and its two visual representations (full
// streamlines and cluster centroids).
package bundle

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"streamcurate/pkg/cluster"
	"streamcurate/pkg/colormap"
	"streamcurate/pkg/scene"
	"streamcurate/pkg/tract"
)

// ErrNotClustered is returned by cluster-derived operations invoked
// before any clustering pass has run.
var ErrNotClustered = errors.New("bundle: streamlines have not been clustered yet")

// fallbackColor stands in for a missing explicit color when a
// single-cluster preview needs one representative color.
var fallbackColor = colormap.Color{R: 0, G: 0, B: 1}

// Options configures a new bundle. The zero value is valid for a root
// bundle created from a freshly loaded tractogram.
type Options struct {
	// Centroid carries the representative streamline of the parent
	// cluster this bundle was carved out of, if any.
	Centroid tract.Streamline

	// ThresholdUsed is the clustering threshold that produced this
	// bundle. Zero means none, recorded as +Inf.
	ThresholdUsed float64

	// Color pins an explicit display color. When nil, streamlines are
	// colored by the orientation colormap.
	Color *colormap.Color

	// Metric overrides the clustering metric. Nil selects
	// AveragePointwise at the default resolution.
	Metric cluster.Metric

	// Logger receives progress messages. Nil disables logging.
	Logger *zap.Logger
}

// Bundle owns one streamline collection for its whole lifetime, plus
// everything derived from it: the current clusters, the per-point
// colors and the scene actors. Bundles are created from the full
// input or carved out of another bundle's cluster, and destroyed when
// curated away, split into children, or merged into a reset root.
type Bundle struct {
	lines         *tract.Tractogram
	color         *colormap.Color
	centroid      tract.Streamline
	thresholdUsed float64
	metric        cluster.Metric
	log           *zap.Logger

	clusters      []cluster.Cluster
	clusterColors []colormap.Color
	lastThreshold float64

	// originalPointColors is the construction-time coloring restored
	// whenever the bundle collapses back to a single cluster.
	originalPointColors []colormap.Color
	pointColors         []colormap.Color
	lineColors          []colormap.Color

	stage          scene.Stage
	actor          scene.Actor
	centroidActors []scene.Actor
	dirty          bool

	centroidsVisible   bool
	streamlinesVisible bool
}

// New wraps a streamline collection into a bundle and clusters it at
// +Inf, so a fresh bundle always starts as one whole-bundle cluster.
// The bundle takes ownership of lines.
func New(lines *tract.Tractogram, opts Options) *Bundle {
	b := &Bundle{
		lines:              lines,
		color:              opts.Color,
		centroid:           opts.Centroid,
		thresholdUsed:      opts.ThresholdUsed,
		metric:             opts.Metric,
		log:                opts.Logger,
		dirty:              true,
		streamlinesVisible: true,
	}
	if b.thresholdUsed == 0 {
		b.thresholdUsed = math.Inf(1)
	}
	if b.metric == nil {
		b.metric = cluster.AveragePointwise{}
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}

	lineColors := colormap.LineColors(lines)
	if b.color != nil {
		for i := range lineColors {
			lineColors[i] = *b.color
		}
	}
	b.lineColors = make([]colormap.Color, len(lineColors))
	copy(b.lineColors, lineColors)
	b.originalPointColors = colormap.ExpandToPoints(lineColors, lines.Lengths())
	b.pointColors = b.originalPointColors

	b.recluster(math.Inf(1))
	return b
}

// Lines returns the owned streamline collection. Callers must treat
// it as read-only.
func (b *Bundle) Lines() *tract.Tractogram { return b.lines }

// Len returns the number of streamlines in the bundle.
func (b *Bundle) Len() int { return b.lines.Len() }

// Color returns the explicit color, or nil when the bundle uses the
// orientation colormap.
func (b *Bundle) Color() *colormap.Color { return b.color }

// Centroid returns the parent-cluster centroid metadata, if any.
func (b *Bundle) Centroid() tract.Streamline { return b.centroid }

// ThresholdUsed returns the clustering threshold that carved this
// bundle out of its parent, +Inf for a root bundle.
func (b *Bundle) ThresholdUsed() float64 { return b.thresholdUsed }

// LastThreshold returns the threshold of the most recent clustering
// pass.
func (b *Bundle) LastThreshold() float64 { return b.lastThreshold }

// Clusters returns the current cluster decomposition.
func (b *Bundle) Clusters() []cluster.Cluster { return b.clusters }

// ClusterColors returns one display color per current cluster.
func (b *Bundle) ClusterColors() []colormap.Color { return b.clusterColors }

// Extent returns the length of the bounding-box diagonal of the
// owned streamlines. The interactive threshold range is derived from
// half this value.
func (b *Bundle) Extent() float64 { return b.lines.Extent() }

// Preview re-clusters at the given threshold, recolors every
// streamline by its cluster color and returns the cluster count. The
// centroid representation is rebuilt lazily by Update. Calling
// Preview twice with the same threshold yields identical clusters and
// colors.
func (b *Bundle) Preview(threshold float64) int {
	b.recluster(threshold)
	b.Update()
	return len(b.clusters)
}

// Reset collapses the bundle back to a single cluster and restores
// its original coloring.
func (b *Bundle) Reset() {
	b.recluster(math.Inf(1))
	b.Update()
}

func (b *Bundle) recluster(threshold float64) {
	qb := cluster.QuickBundles{Metric: b.metric, Threshold: threshold}
	b.clusters = qb.Cluster(b.lines)
	b.lastThreshold = threshold
	b.clusterColors = colormap.Distinguishable(len(b.clusters), colormap.Color{}, colormap.DarkColors)
	b.dirty = true

	if threshold < math.Inf(1) {
		b.log.Info("clustered bundle",
			zap.Int("clusters", len(b.clusters)),
			zap.Float64("threshold_mm", threshold))
	}

	if len(b.clusters) == 1 {
		// A single cluster keeps the bundle's own identity: explicit
		// color if one was assigned, original coloring on screen.
		if b.color != nil {
			b.clusterColors = []colormap.Color{*b.color}
		} else {
			b.clusterColors = []colormap.Color{fallbackColor}
		}
		b.applyPointColors(b.originalPointColors)
		return
	}

	for ci, c := range b.clusters {
		for _, idx := range c.Indices {
			b.lineColors[idx] = b.clusterColors[ci]
		}
	}
	b.applyPointColors(colormap.ExpandToPoints(b.lineColors, b.lines.Lengths()))
}

func (b *Bundle) applyPointColors(colors []colormap.Color) {
	b.pointColors = colors
	if b.actor != nil {
		b.actor.SetPointColors(colors)
	}
}

// ClusterBundles materializes the current clusters as independent
// child bundles, each owning a copy of its member streamlines and
// carrying its cluster color, centroid and the threshold that formed
// it. A single-cluster decomposition yields one child that preserves
// the parent's explicit color (even when nil) instead of the
// generated cluster color, so a manually colored bundle survives a
// split that did not actually divide it.
func (b *Bundle) ClusterBundles() ([]*Bundle, error) {
	if b.clusters == nil {
		return nil, ErrNotClustered
	}

	if len(b.clusters) == 1 {
		child := New(b.lines.Slice(b.clusters[0].Indices), Options{
			Centroid:      b.clusters[0].Centroid,
			ThresholdUsed: b.lastThreshold,
			Color:         b.color,
			Metric:        b.metric,
			Logger:        b.log,
		})
		return []*Bundle{child}, nil
	}

	children := make([]*Bundle, 0, len(b.clusters))
	for ci, c := range b.clusters {
		color := b.clusterColors[ci]
		child := New(b.lines.Slice(c.Indices), Options{
			Centroid:      c.Centroid,
			ThresholdUsed: b.lastThreshold,
			Color:         &color,
			Metric:        b.metric,
			Logger:        b.log,
		})
		children = append(children, child)
	}
	return children, nil
}
