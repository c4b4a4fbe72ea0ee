package trackio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"streamcurate/pkg/tract"
)

// TCK is the MRtrix track file format: a text header ("mrtrix tracks"
// magic, key: value fields, END sentinel) followed by float32 point
// triplets at the byte offset the file field names. A NaN triplet ends
// each streamline and an Inf triplet ends the stream.
type TCK struct{}

const tckMagic = "mrtrix tracks"

func (TCK) Extensions() []string { return []string{".tck"} }

// Encode writes t as Float32LE track data.
func (TCK) Encode(w io.Writer, t *tract.Tractogram) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(tckHeader(t.Len())); err != nil {
		return fmt.Errorf("encoding tck header: %w", err)
	}
	var buf [12]byte
	writeTriplet := func(x, y, z float64) error {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(x)))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(y)))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(z)))
		_, err := bw.Write(buf[:])
		return err
	}
	nan := math.NaN()
	for i := 0; i < t.Len(); i++ {
		for _, p := range t.Line(i) {
			if err := writeTriplet(p.X, p.Y, p.Z); err != nil {
				return fmt.Errorf("encoding tck points: %w", err)
			}
		}
		if err := writeTriplet(nan, nan, nan); err != nil {
			return fmt.Errorf("encoding tck separator: %w", err)
		}
	}
	inf := math.Inf(1)
	if err := writeTriplet(inf, inf, inf); err != nil {
		return fmt.Errorf("encoding tck terminator: %w", err)
	}
	return bw.Flush()
}

// tckHeader renders the text header. The file field holds the byte
// offset of the binary section, which depends on its own width, so the
// offset is iterated until it reproduces itself.
func tckHeader(count int) string {
	base := fmt.Sprintf("%s\ndatatype: Float32LE\ncount: %d\n", tckMagic, count)
	offset := len(base)
	for {
		header := base + fmt.Sprintf("file: . %d\nEND\n", offset)
		if len(header) == offset {
			return header
		}
		offset = len(header)
	}
}

// Decode reads one tck stream. Count fields are often stale in the
// wild, so the decoder trusts the delimiter triplets instead.
func (TCK) Decode(r io.Reader) (*tract.Tractogram, error) {
	br := bufio.NewReader(r)

	first, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("decoding tck magic: %w", err)
	}
	read := len(first)
	if strings.TrimSpace(first) != tckMagic {
		return nil, fmt.Errorf("not a tck stream: first line %q", strings.TrimSpace(first))
	}

	var order binary.ByteOrder
	offset := -1
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("decoding tck header: %w", err)
		}
		read += len(line)
		line = strings.TrimSpace(line)
		if line == "END" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "datatype":
			switch value {
			case "Float32LE":
				order = binary.LittleEndian
			case "Float32BE":
				order = binary.BigEndian
			default:
				return nil, fmt.Errorf("unsupported tck datatype %q", value)
			}
		case "file":
			fields := strings.Fields(value)
			if len(fields) != 2 || fields[0] != "." {
				return nil, fmt.Errorf("unsupported tck file field %q", value)
			}
			off, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("bad tck data offset %q", fields[1])
			}
			offset = off
		}
	}
	if order == nil {
		return nil, errors.New("tck header missing datatype field")
	}
	if offset < 0 {
		return nil, errors.New("tck header missing file field")
	}
	if offset < read {
		return nil, fmt.Errorf("tck data offset %d lies inside the %d byte header", offset, read)
	}
	if _, err := br.Discard(offset - read); err != nil {
		return nil, fmt.Errorf("decoding tck header padding: %w", err)
	}

	out := tract.NewTractogram()
	var current tract.Streamline
	var buf [12]byte
	for {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("tck stream truncated: %w", err)
		}
		x := float64(math.Float32frombits(order.Uint32(buf[0:])))
		y := float64(math.Float32frombits(order.Uint32(buf[4:])))
		z := float64(math.Float32frombits(order.Uint32(buf[8:])))
		switch {
		case math.IsNaN(x) && math.IsNaN(y) && math.IsNaN(z):
			if len(current) > 0 {
				if err := out.Append(current); err != nil {
					return nil, fmt.Errorf("decoding tck streamline %d: %w", out.Len(), err)
				}
				current = current[:0]
			}
		case math.IsInf(x, 0) && math.IsInf(y, 0) && math.IsInf(z, 0):
			// Some writers skip the separator before the terminator.
			if len(current) > 0 {
				if err := out.Append(current); err != nil {
					return nil, fmt.Errorf("decoding tck streamline %d: %w", out.Len(), err)
				}
			}
			return out, nil
		default:
			current = append(current, r3.Vec{X: x, Y: y, Z: z})
		}
	}
}
