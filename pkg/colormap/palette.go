package colormap

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette generates a sequence of mutually distinguishable colors.
// Candidates are drawn from a fixed HSV grid and picked greedily to
// maximize the minimum CIE-Lab distance to the background, to every
// excluded color and to every color already handed out. The sequence
// is deterministic, so re-clustering at the same threshold recolors
// clusters identically.
type Palette struct {
	candidates []colorful.Color
	avoid      []colorful.Color
	used       []Color
	next       int
}

// NewPalette returns a generator avoiding the background and the given
// exclusion set.
func NewPalette(background Color, exclude []Color) *Palette {
	p := &Palette{candidates: candidateGrid()}
	p.avoid = append(p.avoid, toColorful(background))
	for _, c := range exclude {
		p.avoid = append(p.avoid, toColorful(c))
	}
	return p
}

// Next returns the next palette color. Once the candidate grid is
// exhausted the sequence recycles, which only matters past a few
// hundred clusters.
func (p *Palette) Next() Color {
	if len(p.candidates) == 0 {
		if len(p.used) == 0 {
			return Color{0, 0, 1}
		}
		c := p.used[p.next%len(p.used)]
		p.next++
		return c
	}

	best := 0
	bestScore := math.Inf(-1)
	for i, cand := range p.candidates {
		score := math.Inf(1)
		for _, a := range p.avoid {
			if d := cand.DistanceLab(a); d < score {
				score = d
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	chosen := p.candidates[best]
	p.candidates = append(p.candidates[:best], p.candidates[best+1:]...)
	p.avoid = append(p.avoid, chosen)
	out := Color{chosen.R, chosen.G, chosen.B}
	p.used = append(p.used, out)
	return out
}

// Colors returns the first n palette colors.
func (p *Palette) Colors(n int) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = p.Next()
	}
	return out
}

// Distinguishable returns n colors distinguishable from each other,
// from the background and from the exclusion set. Successive calls
// with growing n share a common prefix.
func Distinguishable(n int, background Color, exclude []Color) []Color {
	return NewPalette(background, exclude).Colors(n)
}

// candidateGrid spans hues at 15° steps across three saturation and
// three value levels, skipping the darkest corner outright.
func candidateGrid() []colorful.Color {
	var grid []colorful.Color
	for _, v := range []float64{1.0, 0.75, 0.5} {
		for _, s := range []float64{1.0, 0.75, 0.5} {
			for h := 0.0; h < 360.0; h += 15.0 {
				grid = append(grid, colorful.Hsv(h, s, v))
			}
		}
	}
	return grid
}

func toColorful(c Color) colorful.Color {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}
