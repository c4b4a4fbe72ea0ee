// Package tract provides the streamline data model used throughout
// streamcurate. A streamline is an ordered polyline of 3D points; a
// tractogram is a collection of streamlines stored as a single flat
// point buffer plus a per-line length array (a ragged array), which
// keeps memory contiguous for collections of hundreds of thousands of
// lines.
package tract

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Streamline is one fiber path: an ordered sequence of at least two
// 3D points. Streamlines handed to a Tractogram are copied; a
// Streamline returned by Tractogram.Line is a view into the shared
// buffer and must not be mutated.
type Streamline []r3.Vec

// Length returns the arc length of the streamline: the sum of the
// Euclidean lengths of its segments.
func (s Streamline) Length() float64 {
	var total float64
	for i := 1; i < len(s); i++ {
		total += r3.Norm(r3.Sub(s[i], s[i-1]))
	}
	return total
}

// Bounds returns the axis-aligned bounding box of the streamline.
func (s Streamline) Bounds() (min, max r3.Vec) {
	return pointBounds(s)
}

// Clone returns an independent copy of the streamline.
func (s Streamline) Clone() Streamline {
	out := make(Streamline, len(s))
	copy(out, s)
	return out
}

// Tractogram is a ragged array of streamlines: one flat point buffer,
// a per-line length array and an affine mapping the stored coordinates
// to world (RAS-mm) space. The zero value is not usable; construct
// with NewTractogram or FromLines.
//
// Every mutation bumps a monotonic version counter. Callers that rely
// on "nothing has touched this collection since" (the undo machinery)
// check the counter instead of assuming it.
type Tractogram struct {
	points  []r3.Vec
	lengths []int
	offsets []int
	affine  Affine
	version uint64
}

// NewTractogram returns an empty tractogram in world space (identity
// affine).
func NewTractogram() *Tractogram {
	return &Tractogram{affine: IdentityAffine()}
}

// FromLines builds a tractogram from a set of streamlines. Lines are
// copied into the flat buffer. Lines with fewer than two points are
// rejected.
func FromLines(lines []Streamline) (*Tractogram, error) {
	t := NewTractogram()
	for i, line := range lines {
		if err := t.Append(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
	}
	return t, nil
}

// Len returns the number of streamlines.
func (t *Tractogram) Len() int { return len(t.lengths) }

// TotalPoints returns the number of points across all streamlines.
func (t *Tractogram) TotalPoints() int { return len(t.points) }

// Version returns the mutation counter. It increases by at least one
// for every Append, AppendTractogram and Truncate.
func (t *Tractogram) Version() uint64 { return t.version }

// Affine returns the transform from stored coordinates to world space.
func (t *Tractogram) Affine() Affine { return t.affine }

// SetAffine replaces the affine-to-world transform.
func (t *Tractogram) SetAffine(a Affine) {
	t.affine = a
	t.version++
}

// Line returns streamline i as a view into the shared point buffer.
func (t *Tractogram) Line(i int) Streamline {
	start := t.offsets[i]
	return Streamline(t.points[start : start+t.lengths[i]])
}

// Lengths returns a copy of the per-line length array.
func (t *Tractogram) Lengths() []int {
	out := make([]int, len(t.lengths))
	copy(out, t.lengths)
	return out
}

// Append copies one streamline onto the end of the collection.
func (t *Tractogram) Append(line Streamline) error {
	if len(line) < 2 {
		return fmt.Errorf("streamline needs at least 2 points, got %d", len(line))
	}
	t.offsets = append(t.offsets, len(t.points))
	t.lengths = append(t.lengths, len(line))
	t.points = append(t.points, line...)
	t.version++
	return nil
}

// AppendTractogram copies every streamline of src onto the end of the
// collection. Affines are not reconciled; callers keep both sides in
// the same space.
func (t *Tractogram) AppendTractogram(src *Tractogram) {
	for i := 0; i < src.Len(); i++ {
		t.offsets = append(t.offsets, len(t.points))
		t.lengths = append(t.lengths, src.lengths[i])
		t.points = append(t.points, src.Line(i)...)
	}
	t.version++
}

// Truncate removes the last n streamlines. It is the undo counterpart
// of Append and fails rather than guess when n exceeds the collection.
func (t *Tractogram) Truncate(n int) error {
	if n < 0 || n > t.Len() {
		return fmt.Errorf("cannot truncate %d of %d streamlines", n, t.Len())
	}
	if n == 0 {
		return nil
	}
	keep := t.Len() - n
	if keep == 0 {
		t.points = t.points[:0]
	} else {
		t.points = t.points[:t.offsets[keep-1]+t.lengths[keep-1]]
	}
	t.offsets = t.offsets[:keep]
	t.lengths = t.lengths[:keep]
	t.version++
	return nil
}

// Slice returns a new tractogram holding copies of the streamlines at
// the given indices, in the given order. The affine is carried over.
func (t *Tractogram) Slice(indices []int) *Tractogram {
	out := NewTractogram()
	out.affine = t.affine
	for _, i := range indices {
		out.offsets = append(out.offsets, len(out.points))
		out.lengths = append(out.lengths, t.lengths[i])
		out.points = append(out.points, t.Line(i)...)
	}
	return out
}

// Clone returns a deep copy of the tractogram.
func (t *Tractogram) Clone() *Tractogram {
	out := &Tractogram{
		points:  make([]r3.Vec, len(t.points)),
		lengths: make([]int, len(t.lengths)),
		offsets: make([]int, len(t.offsets)),
		affine:  t.affine,
	}
	copy(out.points, t.points)
	copy(out.lengths, t.lengths)
	copy(out.offsets, t.offsets)
	return out
}

// Bounds returns the axis-aligned bounding box over every point in the
// collection. An empty tractogram yields two zero vectors.
func (t *Tractogram) Bounds() (min, max r3.Vec) {
	return pointBounds(t.points)
}

// Extent returns the length of the bounding-box diagonal. The
// clustering threshold range for a bundle is derived from this value.
func (t *Tractogram) Extent() float64 {
	if len(t.points) == 0 {
		return 0
	}
	min, max := t.Bounds()
	return r3.Norm(r3.Sub(max, min))
}

// MeanLength returns the mean arc length across streamlines, zero when
// empty.
func (t *Tractogram) MeanLength() float64 {
	if t.Len() == 0 {
		return 0
	}
	var total float64
	for i := 0; i < t.Len(); i++ {
		total += t.Line(i).Length()
	}
	return total / float64(t.Len())
}

func pointBounds(pts []r3.Vec) (min, max r3.Vec) {
	if len(pts) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range pts {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}
