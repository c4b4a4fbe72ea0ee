// Package anatomy models the background anatomical volume a curation
// session can display underneath the streamlines. Volumes load from
// NIfTI-1 files and expose per-axis cross-section extraction for the
// viewer's three slicers.
package anatomy

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"streamcurate/pkg/tract"
)

// Volume is a scalar 3D image stored in row-major order, x fastest.
type Volume struct {
	data   []float64
	width  int
	height int
	depth  int

	// voxel edge lengths in mm, x/y/z
	voxel [3]float64
	// voxel-to-world transform
	affine tract.Affine

	min, max float64
}

// NewVolume wraps data as a width by height by depth volume with unit
// voxels and an identity affine. The intensity range is scanned once
// here so slice rendering can window against it.
func NewVolume(data []float64, width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got %dx%dx%d", width, height, depth)
	}
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("volume data holds %d samples, want %d", len(data), width*height*depth)
	}
	v := &Volume{
		data:   data,
		width:  width,
		height: height,
		depth:  depth,
		voxel:  [3]float64{1, 1, 1},
		affine: tract.IdentityAffine(),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
	for _, s := range data {
		if s < v.min {
			v.min = s
		}
		if s > v.max {
			v.max = s
		}
	}
	return v, nil
}

// Dims returns the voxel counts along x, y and z.
func (v *Volume) Dims() (width, height, depth int) {
	return v.width, v.height, v.depth
}

// VoxelSize returns the voxel edge lengths in mm.
func (v *Volume) VoxelSize() (x, y, z float64) {
	return v.voxel[0], v.voxel[1], v.voxel[2]
}

// Affine returns the voxel-to-world transform.
func (v *Volume) Affine() tract.Affine { return v.affine }

// Range returns the smallest and largest sample in the volume.
func (v *Volume) Range() (min, max float64) { return v.min, v.max }

// At returns the sample at voxel (x, y, z). Coordinates must be in
// range.
func (v *Volume) At(x, y, z int) float64 {
	return v.data[z*v.width*v.height+y*v.width+x]
}

// MidSlices returns the middle position along each axis, where the
// viewer's slicers start.
func (v *Volume) MidSlices() (x, y, z int) {
	return v.width / 2, v.height / 2, v.depth / 2
}

// ExtractSlice renders the cross-section at position along the given
// axis ("x", "y" or "z") as a 16 bit grayscale image. Intensities are
// windowed over the volume's global range.
func (v *Volume) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	if position < 0 {
		return nil, fmt.Errorf("slice position must be non-negative, got %d", position)
	}

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if position >= v.width {
			return nil, fmt.Errorf("slice position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, v.gray(v.At(position, y, z)))
			}
		}

	case "y", "Y":
		if position >= v.height {
			return nil, fmt.Errorf("slice position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, v.gray(v.At(x, position, z)))
			}
		}

	case "z", "Z":
		if position >= v.depth {
			return nil, fmt.Errorf("slice position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, v.gray(v.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis %q (must be x, y, or z)", axis)
	}
	return img, nil
}

func (v *Volume) gray(s float64) color.Gray16 {
	if v.max <= v.min {
		return color.Gray16{}
	}
	n := (s - v.min) / (v.max - v.min) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, n)))}
}

// WriteSliceJPEG saves an extracted slice to path as a JPEG.
func WriteSliceJPEG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// Slicer tracks the displayed cross-section position along each axis.
// New slicers start at the volume's middle, matching the viewer's
// anatomy panel.
type Slicer struct {
	vol *Volume

	X, Y, Z int
}

func NewSlicer(vol *Volume) *Slicer {
	x, y, z := vol.MidSlices()
	return &Slicer{vol: vol, X: x, Y: y, Z: z}
}

// Shift moves the cross-section along axis by delta voxels, clamped to
// the volume bounds.
func (s *Slicer) Shift(axis string, delta int) error {
	switch axis {
	case "x", "X":
		s.X = clampPos(s.X+delta, s.vol.width)
	case "y", "Y":
		s.Y = clampPos(s.Y+delta, s.vol.height)
	case "z", "Z":
		s.Z = clampPos(s.Z+delta, s.vol.depth)
	default:
		return fmt.Errorf("invalid axis %q (must be x, y, or z)", axis)
	}
	return nil
}

func clampPos(p, n int) int {
	if p < 0 {
		return 0
	}
	if p >= n {
		return n - 1
	}
	return p
}
