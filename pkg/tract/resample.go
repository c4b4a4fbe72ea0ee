package tract

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Resample returns a copy of the streamline with exactly n points,
// evenly spaced along its arc length, with the original endpoints
// preserved. Resampling to a fixed point count is the feature
// transform behind the clustering metrics: it makes streamlines with
// different point counts comparable point by point.
func Resample(s Streamline, n int) Streamline {
	if n < 2 {
		n = 2
	}
	if len(s) == 0 {
		return Streamline{}
	}

	// Cumulative arc length at every original vertex.
	cum := make([]float64, len(s))
	seg := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		seg[i-1] = r3.Norm(r3.Sub(s[i], s[i-1]))
	}
	floats.CumSum(cum[1:], seg)
	total := cum[len(cum)-1]

	out := make(Streamline, n)
	if total == 0 {
		// Degenerate line: every point coincides.
		for i := range out {
			out[i] = s[0]
		}
		return out
	}

	step := total / float64(n-1)
	j := 0
	for i := 0; i < n; i++ {
		target := float64(i) * step
		for j < len(cum)-2 && cum[j+1] < target {
			j++
		}
		segLen := cum[j+1] - cum[j]
		t := 0.0
		if segLen > 0 {
			t = (target - cum[j]) / segLen
		}
		out[i] = r3.Add(s[j], r3.Scale(t, r3.Sub(s[j+1], s[j])))
	}
	// Guard against floating-point drift on the last sample.
	out[n-1] = s[len(s)-1]
	return out
}
