package trackio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"streamcurate/pkg/session"
	"streamcurate/pkg/tract"
)

var _ session.Storage = FileStore{}

// lineAtX builds an n point streamline at a fixed x. Integer
// coordinates survive the float32 round trip exactly.
func lineAtX(x float64, n int) tract.Streamline {
	pts := make(tract.Streamline, n)
	for i := range pts {
		pts[i] = r3.Vec{X: x, Y: float64(i), Z: -float64(i)}
	}
	return pts
}

func sampleTractogram(t *testing.T) *tract.Tractogram {
	t.Helper()
	tg, err := tract.FromLines([]tract.Streamline{
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0.5, Z: 0}, {X: 2, Y: 1, Z: -1}},
		{{X: 10, Y: 20, Z: 30}, {X: 11, Y: 21, Z: 31}},
		lineAtX(-4, 5),
	})
	require.NoError(t, err)
	return tg
}

func requireSameLines(t *testing.T, want, got *tract.Tractogram) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		require.Equal(t, want.Line(i), got.Line(i), "streamline %d", i)
	}
}

func TestTCKRoundTrip(t *testing.T) {
	want := sampleTractogram(t)

	var buf bytes.Buffer
	require.NoError(t, TCK{}.Encode(&buf, want))

	got, err := TCK{}.Decode(&buf)
	require.NoError(t, err)
	requireSameLines(t, want, got)
}

func TestTCKHeaderLayout(t *testing.T) {
	tg := sampleTractogram(t)

	var buf bytes.Buffer
	require.NoError(t, TCK{}.Encode(&buf, tg))
	raw := buf.String()

	require.True(t, strings.HasPrefix(raw, "mrtrix tracks\n"))
	end := strings.Index(raw, "\nEND\n")
	require.GreaterOrEqual(t, end, 0, "END sentinel missing")
	headerLen := end + len("\nEND\n")
	header := raw[:headerLen]

	assert.Contains(t, header, "datatype: Float32LE\n")
	assert.Contains(t, header, fmt.Sprintf("count: %d\n", tg.Len()))

	offset := -1
	for _, line := range strings.Split(header, "\n") {
		if rest, ok := strings.CutPrefix(line, "file: . "); ok {
			n, err := strconv.Atoi(rest)
			require.NoError(t, err)
			offset = n
		}
	}
	require.NotEqual(t, -1, offset, "file field missing")
	assert.Equal(t, headerLen, offset, "offset must point at the first byte after the header")

	// One triplet per point, one separator per line, one terminator.
	wantBinary := 12 * (tg.TotalPoints() + tg.Len() + 1)
	assert.Equal(t, headerLen+wantBinary, len(raw))
}

func TestTCKEmptyTractogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TCK{}.Encode(&buf, tract.NewTractogram()))

	got, err := TCK{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestTCKDecodeBigEndian(t *testing.T) {
	// Offset 100 leaves padding between END and the data section, which
	// also exercises the discard path. The stale count must be ignored.
	header := "mrtrix tracks\ndatatype: Float32BE\ncount: 999\nfile: . 100\nEND\n"
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.Write(make([]byte, 100-len(header)))

	writeBE := func(x, y, z float32) {
		var b [12]byte
		binary.BigEndian.PutUint32(b[0:], math.Float32bits(x))
		binary.BigEndian.PutUint32(b[4:], math.Float32bits(y))
		binary.BigEndian.PutUint32(b[8:], math.Float32bits(z))
		buf.Write(b[:])
	}
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	writeBE(1, 2, 3)
	writeBE(4, 5, 6)
	writeBE(nan, nan, nan)
	writeBE(7, 8, 9)
	writeBE(10, 11, 12)
	writeBE(13, 14, 15)
	// No separator before the terminator; the last line must still land.
	writeBE(inf, inf, inf)

	got, err := TCK{}.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, tract.Streamline{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, got.Line(0))
	assert.Equal(t, tract.Streamline{{X: 7, Y: 8, Z: 9}, {X: 10, Y: 11, Z: 12}, {X: 13, Y: 14, Z: 15}}, got.Line(1))
}

func TestTCKDecodeErrors(t *testing.T) {
	encode := func(t *testing.T) []byte {
		t.Helper()
		var buf bytes.Buffer
		require.NoError(t, TCK{}.Encode(&buf, sampleTractogram(t)))
		return buf.Bytes()
	}

	t.Run("wrong magic", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix image\nEND\n"))
		require.ErrorContains(t, err, "not a tck stream")
	})

	t.Run("unsupported datatype", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix tracks\ndatatype: Float64LE\nfile: . 60\nEND\n"))
		require.ErrorContains(t, err, "unsupported tck datatype")
	})

	t.Run("missing file field", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix tracks\ndatatype: Float32LE\nEND\n"))
		require.ErrorContains(t, err, "missing file field")
	})

	t.Run("missing datatype field", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix tracks\nfile: . 60\nEND\n"))
		require.ErrorContains(t, err, "missing datatype")
	})

	t.Run("offset inside header", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix tracks\ndatatype: Float32LE\nfile: . 5\nEND\n"))
		require.ErrorContains(t, err, "inside")
	})

	t.Run("external data file", func(t *testing.T) {
		_, err := TCK{}.Decode(strings.NewReader("mrtrix tracks\ndatatype: Float32LE\nfile: other.dat 60\nEND\n"))
		require.ErrorContains(t, err, "unsupported tck file field")
	})

	t.Run("missing terminator", func(t *testing.T) {
		raw := encode(t)
		_, err := TCK{}.Decode(bytes.NewReader(raw[:len(raw)-12]))
		require.ErrorContains(t, err, "truncated")
	})

	t.Run("partial triplet", func(t *testing.T) {
		raw := encode(t)
		_, err := TCK{}.Decode(bytes.NewReader(raw[:len(raw)-5]))
		require.ErrorContains(t, err, "truncated")
	})
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("bundle_0.tck")
	require.NoError(t, err)
	assert.IsType(t, TCK{}, c)

	c, err = CodecFor("SHOUTY.TCK")
	require.NoError(t, err)
	assert.IsType(t, TCK{}, c)

	_, err = CodecFor("bundle_0.xyz")
	require.ErrorContains(t, err, `no track codec for ".xyz"`)

	_, err = CodecFor("noextension")
	require.Error(t, err)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store := FileStore{}
	tg := sampleTractogram(t)

	t.Run("write creates parent directories", func(t *testing.T) {
		path := filepath.Join(dir, "out", "deep", "sub_bundle_0.tck")
		require.NoError(t, store.Write(path, tg))

		got, err := Load(path)
		require.NoError(t, err)
		requireSameLines(t, tg, got)
	})

	t.Run("remove deletes the file", func(t *testing.T) {
		path := filepath.Join(dir, "sub_inliers.tck")
		require.NoError(t, store.Write(path, tg))
		require.NoError(t, store.Remove(path))
		_, err := os.Stat(path)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("remove of an absent path is not an error", func(t *testing.T) {
		require.NoError(t, store.Remove(filepath.Join(dir, "never_written.tck")))
	})

	t.Run("write rejects unknown extensions", func(t *testing.T) {
		require.Error(t, store.Write(filepath.Join(dir, "sub_bundle_0.xyz"), tg))
	})
}

func TestLoadAllMergesInArgumentOrder(t *testing.T) {
	dir := t.TempDir()

	write := func(t *testing.T, name string, lines ...tract.Streamline) string {
		t.Helper()
		tg, err := tract.FromLines(lines)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, tg))
		return path
	}

	paths := []string{
		write(t, "a.tck", lineAtX(0, 3), lineAtX(0, 4)),
		write(t, "b.tck", lineAtX(100, 3), lineAtX(100, 3), lineAtX(100, 5)),
		write(t, "c.tck", lineAtX(200, 2)),
	}

	merged, err := LoadAll(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, 6, merged.Len())

	assert.Equal(t, 0.0, merged.Line(0)[0].X)
	assert.Equal(t, 0.0, merged.Line(1)[0].X)
	assert.Equal(t, 100.0, merged.Line(2)[0].X)
	assert.Equal(t, 100.0, merged.Line(4)[0].X)
	assert.Equal(t, 200.0, merged.Line(5)[0].X)
	assert.Equal(t, []int{3, 4, 3, 3, 5, 2}, merged.Lengths())
}

func TestLoadAllErrors(t *testing.T) {
	t.Run("no inputs", func(t *testing.T) {
		_, err := LoadAll(context.Background(), nil)
		require.ErrorContains(t, err, "no track files")
	})

	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		good := filepath.Join(dir, "good.tck")
		tg, err := tract.FromLines([]tract.Streamline{lineAtX(0, 2)})
		require.NoError(t, err)
		require.NoError(t, Save(good, tg))

		_, err = LoadAll(context.Background(), []string{good, filepath.Join(dir, "gone.tck")})
		require.ErrorContains(t, err, "gone.tck")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := LoadAll(ctx, []string{"whatever.tck"})
		require.Error(t, err)
	})
}
