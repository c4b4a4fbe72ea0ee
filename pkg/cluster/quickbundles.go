package cluster

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"streamcurate/pkg/tract"
)

// Cluster is one group produced by a clustering pass. Clusters are
// derived data: they are recomputed wholesale whenever the threshold
// changes and are never persisted.
type Cluster struct {
	// Centroid is the representative streamline: the pointwise mean
	// of the member feature polylines.
	Centroid tract.Streamline

	// Indices lists the member streamlines by their position in the
	// clustered collection, in joining order.
	Indices []int
}

// Size returns the number of member streamlines.
func (c Cluster) Size() int { return len(c.Indices) }

// QuickBundles clusters a streamline collection in a single greedy
// pass. Each streamline is compared against the centroids of the
// clusters formed so far; if the smallest distance is within
// Threshold the streamline joins that cluster (first minimum wins)
// and the centroid is updated incrementally, otherwise the streamline
// seeds a new cluster.
//
// A Threshold of +Inf therefore collapses any non-empty collection
// into exactly one cluster, which is the "unclustered" state of a
// freshly loaded bundle.
type QuickBundles struct {
	Metric    Metric
	Threshold float64
}

// Cluster runs the pass over t and returns the clusters in creation
// order. The input collection is not modified; an empty collection
// yields no clusters.
func (qb QuickBundles) Cluster(t *tract.Tractogram) []Cluster {
	metric := qb.Metric
	if metric == nil {
		metric = AveragePointwise{}
	}

	clusters := make([]Cluster, 0)
	for i := 0; i < t.Len(); i++ {
		features := metric.Features(t.Line(i))

		best := -1
		bestDist := math.Inf(1)
		for ci := range clusters {
			d := metric.Distance(features, clusters[ci].Centroid)
			if d < bestDist {
				best = ci
				bestDist = d
			}
		}

		if best >= 0 && bestDist <= qb.Threshold {
			join(&clusters[best], features, i)
			continue
		}
		clusters = append(clusters, Cluster{
			Centroid: features.Clone(),
			Indices:  []int{i},
		})
	}
	return clusters
}

// join adds the feature polyline to the cluster and moves the centroid
// to the running mean of its members.
func join(c *Cluster, features tract.Streamline, index int) {
	n := float64(len(c.Indices))
	for j := range c.Centroid {
		delta := r3.Sub(features[j], c.Centroid[j])
		c.Centroid[j] = r3.Add(c.Centroid[j], r3.Scale(1/(n+1), delta))
	}
	c.Indices = append(c.Indices, index)
}
