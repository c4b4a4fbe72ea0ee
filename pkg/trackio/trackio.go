// Package trackio reads and writes streamline track files. Formats
// register as Codecs keyed by file extension; the MRtrix .tck format
// is built in. FileStore adapts the codecs to plain filesystem paths
// for session saves, and LoadAll merges several input files into one
// tractogram.
package trackio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"streamcurate/pkg/tract"
)

// Codec encodes and decodes one track file format.
type Codec interface {
	// Extensions lists the file extensions this codec claims, lower
	// case and including the leading dot.
	Extensions() []string
	Decode(r io.Reader) (*tract.Tractogram, error)
	Encode(w io.Writer, t *tract.Tractogram) error
}

var codecs = map[string]Codec{}

// Register makes a codec available to CodecFor under each of its
// extensions, replacing any previous claim on the same extension.
func Register(c Codec) {
	for _, ext := range c.Extensions() {
		codecs[strings.ToLower(ext)] = c
	}
}

func init() {
	Register(TCK{})
}

// CodecFor picks the codec registered for the extension of path.
func CodecFor(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := codecs[ext]
	if !ok {
		return nil, fmt.Errorf("no track codec for %q", ext)
	}
	return c, nil
}

// Load reads one track file, picking the codec by extension.
func Load(path string) (*tract.Tractogram, error) {
	c, err := CodecFor(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading tracks: %w", err)
	}
	defer f.Close()
	t, err := c.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return t, nil
}

// Save writes one track file, picking the codec by extension.
func Save(path string, t *tract.Tractogram) error {
	c, err := CodecFor(path)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saving tracks: %w", err)
	}
	defer f.Close()
	if err := c.Encode(f, t); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return f.Sync()
}

// FileStore persists tractograms on the local filesystem. It satisfies
// the storage contract curation sessions save through: Write creates
// missing parent directories and Remove of an absent path is not an
// error.
type FileStore struct{}

func (FileStore) Write(path string, t *tract.Tractogram) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("writing tracks: %w", err)
		}
	}
	return Save(path, t)
}

func (FileStore) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
