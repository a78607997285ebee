package repository

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
)

// FormatVersion is the version of the on-disk store layout.
const FormatVersion = 1

// Marker is the content of HEAD.toml, written last by a persist run. A
// store without a readable marker is not a committed store.
type Marker struct {
	Version     int               `toml:"version"`
	Head        string            `toml:"head"`
	Revisions   int               `toml:"revisions"`
	Sources     int               `toml:"sources"`
	RunID       string            `toml:"run_id"`
	Compression codec.Compression `toml:"compression"`
	PersistedAt time.Time         `toml:"persisted_at"`
	// Checksums maps every snapshot path to the BLAKE3 hash of its file.
	Checksums map[string]string `toml:"checksums"`
}

// Paths returns the snapshot paths recorded in the marker, sorted.
func (m *Marker) Paths() []string {
	return slices.Sorted(maps.Keys(m.Checksums))
}

func loadMarker(path string) (*Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CorruptedHistory, "can't read the store marker", err)
	}

	var m Marker
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, errors.New(errors.CorruptedHistory, "can't parse the store marker", err)
	}
	if m.Version != FormatVersion {
		return nil, errors.Newf(errors.CorruptedHistory,
			"store format version %d is not supported (want %d)", m.Version, FormatVersion)
	}
	if _, err := codec.ParseCompression(string(m.Compression)); err != nil {
		return nil, errors.New(errors.CorruptedHistory, "invalid store marker", err)
	}
	if len(m.Checksums) != m.Sources {
		return nil, errors.Newf(errors.CorruptedHistory,
			"store marker lists %d checksums for %d sources", len(m.Checksums), m.Sources)
	}
	return &m, nil
}

func (m *Marker) save(path string) error {
	m.Version = FormatVersion

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create marker: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}
	return f.Sync()
}
