package tract

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func straightLine(from, to r3.Vec, points int) Streamline {
	s := make(Streamline, points)
	for i := 0; i < points; i++ {
		t := float64(i) / float64(points-1)
		s[i] = r3.Add(from, r3.Scale(t, r3.Sub(to, from)))
	}
	return s
}

func TestStreamlineLength(t *testing.T) {
	tests := []struct {
		name string
		line Streamline
		want float64
	}{
		{
			name: "straight segment",
			line: Streamline{{X: 0}, {X: 3, Y: 4}},
			want: 5,
		},
		{
			name: "three collinear points",
			line: straightLine(r3.Vec{}, r3.Vec{X: 10}, 3),
			want: 10,
		},
		{
			name: "right angle",
			line: Streamline{{X: 0}, {X: 1}, {X: 1, Y: 1}},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.line.Length(), 1e-12)
		})
	}
}

func TestFromLinesRejectsShortLines(t *testing.T) {
	_, err := FromLines([]Streamline{
		straightLine(r3.Vec{}, r3.Vec{X: 1}, 5),
		{{X: 1, Y: 2, Z: 3}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestAppendAndTruncate(t *testing.T) {
	tg := NewTractogram()
	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{X: 1}, 3)))
	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{Y: 2}, 4)))
	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{Z: 3}, 5)))

	require.Equal(t, 3, tg.Len())
	assert.Equal(t, 12, tg.TotalPoints())
	assert.Equal(t, []int{3, 4, 5}, tg.Lengths())

	t.Run("removes from the end", func(t *testing.T) {
		work := tg.Clone()
		require.NoError(t, work.Truncate(2))
		require.Equal(t, 1, work.Len())
		assert.Equal(t, 3, work.TotalPoints())
		assert.Equal(t, r3.Vec{X: 1}, work.Line(0)[2])
	})

	t.Run("removes everything", func(t *testing.T) {
		work := tg.Clone()
		require.NoError(t, work.Truncate(3))
		assert.Equal(t, 0, work.Len())
		assert.Equal(t, 0, work.TotalPoints())
	})

	t.Run("rejects more than it has", func(t *testing.T) {
		work := tg.Clone()
		assert.Error(t, work.Truncate(4))
		assert.Equal(t, 3, work.Len())
	})

	t.Run("zero is a no-op", func(t *testing.T) {
		work := tg.Clone()
		before := work.Version()
		require.NoError(t, work.Truncate(0))
		assert.Equal(t, 3, work.Len())
		assert.Equal(t, before, work.Version())
	})
}

func TestVersionCounter(t *testing.T) {
	tg := NewTractogram()
	v0 := tg.Version()

	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{X: 1}, 2)))
	v1 := tg.Version()
	assert.Greater(t, v1, v0)

	other := NewTractogram()
	require.NoError(t, other.Append(straightLine(r3.Vec{}, r3.Vec{Y: 1}, 2)))
	tg.AppendTractogram(other)
	v2 := tg.Version()
	assert.Greater(t, v2, v1)

	require.NoError(t, tg.Truncate(1))
	assert.Greater(t, tg.Version(), v2)
}

func TestAppendTractogram(t *testing.T) {
	a := NewTractogram()
	require.NoError(t, a.Append(straightLine(r3.Vec{}, r3.Vec{X: 1}, 2)))

	b := NewTractogram()
	require.NoError(t, b.Append(straightLine(r3.Vec{}, r3.Vec{Y: 1}, 3)))
	require.NoError(t, b.Append(straightLine(r3.Vec{}, r3.Vec{Z: 1}, 4)))

	a.AppendTractogram(b)
	require.Equal(t, 3, a.Len())
	assert.Equal(t, []int{2, 3, 4}, a.Lengths())
	assert.Equal(t, r3.Vec{Z: 1}, a.Line(2)[3])
	// The source is untouched.
	assert.Equal(t, 2, b.Len())
}

func TestSlice(t *testing.T) {
	tg := NewTractogram()
	tg.SetAffine(NewAffine([16]float64{
		1, 0, 0, 10,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}))
	for i := 0; i < 4; i++ {
		require.NoError(t, tg.Append(straightLine(
			r3.Vec{X: float64(i)}, r3.Vec{X: float64(i), Y: 1}, 2+i)))
	}

	sub := tg.Slice([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, []int{4, 2}, sub.Lengths())
	assert.Equal(t, r3.Vec{X: 2}, sub.Line(0)[0])
	assert.Equal(t, r3.Vec{X: 0}, sub.Line(1)[0])
	assert.False(t, sub.Affine().IsIdentity())

	// Slices are copies: growing the source leaves the slice alone.
	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{X: 9}, 2)))
	assert.Equal(t, 2, sub.Len())
}

func TestBoundsAndExtent(t *testing.T) {
	tg := NewTractogram()
	assert.Equal(t, 0.0, tg.Extent())

	require.NoError(t, tg.Append(Streamline{{X: -1, Y: -2, Z: -3}, {X: 2, Y: 2, Z: 1}}))
	min, max := tg.Bounds()
	assert.Equal(t, r3.Vec{X: -1, Y: -2, Z: -3}, min)
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 1}, max)
	assert.InDelta(t, math.Sqrt(9+16+16), tg.Extent(), 1e-12)
}

func TestMeanLength(t *testing.T) {
	tg := NewTractogram()
	assert.Equal(t, 0.0, tg.MeanLength())

	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{X: 10}, 5)))
	require.NoError(t, tg.Append(straightLine(r3.Vec{}, r3.Vec{Y: 20}, 5)))
	assert.InDelta(t, 15, tg.MeanLength(), 1e-12)
}

func TestResample(t *testing.T) {
	t.Run("even spacing on a straight line", func(t *testing.T) {
		in := straightLine(r3.Vec{}, r3.Vec{X: 29}, 4)
		out := Resample(in, 30)
		require.Len(t, out, 30)
		assert.Equal(t, in[0], out[0])
		assert.Equal(t, in[len(in)-1], out[len(out)-1])
		for i := 1; i < len(out); i++ {
			assert.InDelta(t, 1.0, r3.Norm(r3.Sub(out[i], out[i-1])), 1e-9)
		}
	})

	t.Run("upsamples short lines", func(t *testing.T) {
		out := Resample(Streamline{{X: 0}, {X: 1}}, 10)
		require.Len(t, out, 10)
		assert.InDelta(t, 1.0/9.0, out[1].X, 1e-12)
	})

	t.Run("degenerate line repeats the point", func(t *testing.T) {
		p := r3.Vec{X: 1, Y: 2, Z: 3}
		out := Resample(Streamline{p, p, p}, 5)
		require.Len(t, out, 5)
		for _, q := range out {
			assert.Equal(t, p, q)
		}
	})

	t.Run("preserves arc length within tolerance", func(t *testing.T) {
		// Quarter circle sampled coarsely, then densified.
		in := make(Streamline, 10)
		for i := range in {
			a := float64(i) / 9 * math.Pi / 2
			in[i] = r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
		}
		out := Resample(in, 50)
		assert.InDelta(t, in.Length(), out.Length(), 1e-6)
	})
}

func TestAffine(t *testing.T) {
	translate := NewAffine([16]float64{
		1, 0, 0, 5,
		0, 1, 0, -3,
		0, 0, 1, 2,
		0, 0, 0, 1,
	})
	scale := NewAffine([16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	})

	t.Run("apply", func(t *testing.T) {
		got := translate.Apply(r3.Vec{X: 1, Y: 1, Z: 1})
		assert.Equal(t, r3.Vec{X: 6, Y: -2, Z: 3}, got)
	})

	t.Run("composition order", func(t *testing.T) {
		// translate∘scale: scale first, then translate.
		got := translate.Mul(scale).Apply(r3.Vec{X: 1})
		assert.Equal(t, r3.Vec{X: 7, Y: -3, Z: 2}, got)
	})

	t.Run("inverse round trip", func(t *testing.T) {
		inv, err := translate.Inverse()
		require.NoError(t, err)
		p := r3.Vec{X: 4, Y: 5, Z: 6}
		back := inv.Apply(translate.Apply(p))
		assert.InDelta(t, p.X, back.X, 1e-12)
		assert.InDelta(t, p.Y, back.Y, 1e-12)
		assert.InDelta(t, p.Z, back.Z, 1e-12)
	})

	t.Run("identity", func(t *testing.T) {
		assert.True(t, IdentityAffine().IsIdentity())
		assert.False(t, translate.IsIdentity())
		var zero Affine
		assert.True(t, zero.IsIdentity())
		assert.Equal(t, r3.Vec{X: 1}, zero.Apply(r3.Vec{X: 1}))
	})
}
