package anatomy

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"streamcurate/pkg/tract"
)

// NIfTI-1 header fields used here, by byte offset: sizeof_hdr(0),
// dim(40), datatype(70), pixdim(76), vox_offset(108), scl_slope(112),
// scl_inter(116), sform_code(254), srow_x/y/z(280/296/312), magic(344).
const niftiHeaderSize = 348

// NIfTI-1 datatype codes.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
	dtUint16  = 512
)

// LoadNIfTI reads a .nii or .nii.gz anatomical volume. Only the
// single-file "n+1" layout is supported, and 4D files must carry a
// single frame.
func LoadNIfTI(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading anatomy: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("loading anatomy %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	vol, err := DecodeNIfTI(r)
	if err != nil {
		return nil, fmt.Errorf("loading anatomy %s: %w", path, err)
	}
	return vol, nil
}

// DecodeNIfTI reads one NIfTI-1 stream. Byte order is detected from
// the header size field; the scl slope/intercept scaling is applied to
// the samples; the affine comes from the srow fields when sform_code
// is set and falls back to pixdim scaling otherwise.
func DecodeNIfTI(r io.Reader) (*Volume, error) {
	hdr := make([]byte, niftiHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("reading nifti header: %w", err)
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case order.Uint32(hdr[0:]) == niftiHeaderSize:
	case binary.BigEndian.Uint32(hdr[0:]) == niftiHeaderSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a nifti-1 stream: header size %d", binary.LittleEndian.Uint32(hdr[0:]))
	}

	magic := string(hdr[344:347])
	switch magic {
	case "n+1":
	case "ni1":
		return nil, errors.New("two-file nifti (.hdr/.img) is not supported")
	default:
		return nil, fmt.Errorf("bad nifti magic %q", magic)
	}

	dim := func(i int) int { return int(int16(order.Uint16(hdr[40+2*i:]))) }
	f32 := func(off int) float64 { return float64(math.Float32frombits(order.Uint32(hdr[off:]))) }

	ndim := dim(0)
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("anatomy must be 3D, header says %dD", ndim)
	}
	for i := 4; i <= ndim; i++ {
		if dim(i) > 1 {
			return nil, fmt.Errorf("anatomy must be a single 3D frame, dim[%d] is %d", i, dim(i))
		}
	}
	width, height, depth := dim(1), dim(2), dim(3)
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("bad nifti dimensions %dx%dx%d", width, height, depth)
	}

	datatype := int16(order.Uint16(hdr[70:]))
	voxOffset := int(f32(108))
	if voxOffset < niftiHeaderSize {
		return nil, fmt.Errorf("bad nifti data offset %d", voxOffset)
	}
	slope, inter := f32(112), f32(116)
	if slope == 0 {
		slope, inter = 1, 0
	}

	// Header extensions sit between the header and the samples.
	if _, err := io.CopyN(io.Discard, r, int64(voxOffset-niftiHeaderSize)); err != nil {
		return nil, fmt.Errorf("reading nifti extensions: %w", err)
	}

	data, err := readSamples(r, order, datatype, width*height*depth)
	if err != nil {
		return nil, err
	}
	if slope != 1 || inter != 0 {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	vol, err := NewVolume(data, width, height, depth)
	if err != nil {
		return nil, err
	}
	vol.voxel = [3]float64{f32(80), f32(84), f32(88)}

	if sform := int16(order.Uint16(hdr[254:])); sform > 0 {
		var m [16]float64
		for i := 0; i < 12; i++ {
			m[i] = f32(280 + 4*i)
		}
		m[15] = 1
		vol.affine = tract.NewAffine(m)
	} else {
		vol.affine = tract.NewAffine([16]float64{
			vol.voxel[0], 0, 0, 0,
			0, vol.voxel[1], 0, 0,
			0, 0, vol.voxel[2], 0,
			0, 0, 0, 1,
		})
	}
	return vol, nil
}

func readSamples(r io.Reader, order binary.ByteOrder, datatype int16, n int) ([]float64, error) {
	var size int
	switch datatype {
	case dtUint8:
		size = 1
	case dtInt16, dtUint16:
		size = 2
	case dtInt32, dtFloat32:
		size = 4
	case dtFloat64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported nifti datatype %d", datatype)
	}

	raw := make([]byte, n*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading nifti samples: %w", err)
	}

	data := make([]float64, n)
	switch datatype {
	case dtUint8:
		for i := range data {
			data[i] = float64(raw[i])
		}
	case dtInt16:
		for i := range data {
			data[i] = float64(int16(order.Uint16(raw[2*i:])))
		}
	case dtUint16:
		for i := range data {
			data[i] = float64(order.Uint16(raw[2*i:]))
		}
	case dtInt32:
		for i := range data {
			data[i] = float64(int32(order.Uint32(raw[4*i:])))
		}
	case dtFloat32:
		for i := range data {
			data[i] = float64(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	case dtFloat64:
		for i := range data {
			data[i] = math.Float64frombits(order.Uint64(raw[8*i:]))
		}
	}
	return data, nil
}
