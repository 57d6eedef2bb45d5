package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrNotFound is returned when a segment ID does not resolve to a file in
// the catalog.
var ErrNotFound = errors.New("catalog: segment not found")

var segmentRef = regexp.MustCompile(`segment_(\d+)\.ts`)

// Catalog is the on-disk set of video segments plus their HLS playlist.
// It is immutable for the process lifetime and knows nothing about payment.
type Catalog struct {
	dir string
}

// New creates a catalog rooted at dir. The directory is expected to hold
// playlist.m3u8 and files named segment_NNN.ts.
func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// CanonicalID maps any accepted spelling of a segment ID to its canonical
// form: "007" and "7" are the same unit, recorded as "7". Non-numeric IDs
// are returned unchanged; they never resolve to a file.
func CanonicalID(id string) string {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return id
	}
	return strconv.Itoa(n)
}

// Path resolves a segment ID to its file path, zero-padding the index to
// match the segment_NNN.ts naming on disk.
func (c *Catalog) Path(id string) (string, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return "", ErrNotFound
	}

	path := filepath.Join(c.dir, fmt.Sprintf("segment_%03d.ts", n))
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// Playlist returns the HLS manifest with every segment reference rewritten
// to the protected delivery path, so the player requests segments through
// the payment gate instead of as plain files.
func (c *Catalog) Playlist() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, "playlist.m3u8"))
	if err != nil {
		return nil, fmt.Errorf("catalog: read playlist: %w", err)
	}
	return segmentRef.ReplaceAll(data, []byte("/video/segment/$1")), nil
}
