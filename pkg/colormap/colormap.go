// Package colormap assigns display colors to streamlines and
// clusters. It provides the standard orientation colormap (endpoint
// direction mapped to RGB) and a deterministic generator of mutually
// distinguishable cluster colors that avoids a reserved set of
// near-black tones, keeping clusters readable on a dark background.
package colormap

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"

	"streamcurate/pkg/tract"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Hex renders the color as #rrggbb for terminal styling.
func (c Color) Hex() string {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hex()
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", c.R, c.G, c.B)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DarkColors is the reserved set of near-black colors excluded from
// generated cluster palettes so that no cluster disappears against
// the dark scene background.
var DarkColors = []Color{
	{0.1, 0, 0}, {0.1, 0.1, 0}, {0.1, 0.1, 0.1},
	{0, 0.1, 0}, {0, 0.1, 0.1},
	{0, 0, 0.1}, {0.1, 0, 0.1},
}

// LineColor returns the orientation color of one streamline: the
// absolute value of the normalized end-to-end direction, so left-right
// fibers show red, front-back green and top-bottom blue.
func LineColor(s tract.Streamline) Color {
	if len(s) < 2 {
		return Color{0.5, 0.5, 0.5}
	}
	dir := r3.Sub(s[len(s)-1], s[0])
	n := r3.Norm(dir)
	if n == 0 {
		return Color{0.5, 0.5, 0.5}
	}
	u := r3.Scale(1/n, dir)
	return Color{abs(u.X), abs(u.Y), abs(u.Z)}
}

// LineColors returns one orientation color per streamline.
func LineColors(t *tract.Tractogram) []Color {
	out := make([]Color, t.Len())
	for i := range out {
		out[i] = LineColor(t.Line(i))
	}
	return out
}

// ExpandToPoints repeats each per-line color once per point of its
// line, producing the flat per-point color buffer renderers consume.
func ExpandToPoints(lineColors []Color, lengths []int) []Color {
	total := 0
	for _, n := range lengths {
		total += n
	}
	out := make([]Color, 0, total)
	for i, n := range lengths {
		for j := 0; j < n; j++ {
			out = append(out, lineColors[i])
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
