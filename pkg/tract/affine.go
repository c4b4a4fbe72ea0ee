package tract

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Affine is a 4x4 homogeneous transform mapping stored streamline
// coordinates to world (RAS-mm) space. The identity affine means the
// coordinates already are world coordinates, which is what the TCK
// format guarantees.
type Affine struct {
	m *mat.Dense
}

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return Affine{m: eye4()}
}

// NewAffine builds an affine from 16 row-major elements.
func NewAffine(elements [16]float64) Affine {
	return Affine{m: mat.NewDense(4, 4, elements[:])}
}

func eye4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// At returns element (i, j).
func (a Affine) At(i, j int) float64 {
	if a.m == nil {
		if i == j {
			return 1
		}
		return 0
	}
	return a.m.At(i, j)
}

// IsIdentity reports whether the transform is the identity within a
// small tolerance.
func (a Affine) IsIdentity() bool {
	if a.m == nil {
		return true
	}
	return mat.EqualApprox(a.m, eye4(), 1e-9)
}

// Apply transforms one point into world space.
func (a Affine) Apply(p r3.Vec) r3.Vec {
	if a.m == nil {
		return p
	}
	return r3.Vec{
		X: a.m.At(0, 0)*p.X + a.m.At(0, 1)*p.Y + a.m.At(0, 2)*p.Z + a.m.At(0, 3),
		Y: a.m.At(1, 0)*p.X + a.m.At(1, 1)*p.Y + a.m.At(1, 2)*p.Z + a.m.At(1, 3),
		Z: a.m.At(2, 0)*p.X + a.m.At(2, 1)*p.Y + a.m.At(2, 2)*p.Z + a.m.At(2, 3),
	}
}

// Mul returns the composition a∘b (apply b first, then a).
func (a Affine) Mul(b Affine) Affine {
	if a.m == nil {
		return b
	}
	if b.m == nil {
		return a
	}
	out := mat.NewDense(4, 4, nil)
	out.Mul(a.m, b.m)
	return Affine{m: out}
}

// Inverse returns the inverse transform, or an error for a singular
// matrix.
func (a Affine) Inverse() (Affine, error) {
	if a.m == nil {
		return IdentityAffine(), nil
	}
	out := mat.NewDense(4, 4, nil)
	if err := out.Inverse(a.m); err != nil {
		return Affine{}, fmt.Errorf("inverting affine: %w", err)
	}
	return Affine{m: out}, nil
}

// String renders the matrix for logs and error messages.
func (a Affine) String() string {
	return fmt.Sprintf("%.4g", mat.Formatted(a.matrix()))
}

func (a Affine) matrix() *mat.Dense {
	if a.m == nil {
		return eye4()
	}
	return a.m
}
