package snapshot

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// FileSourceName identifies snapshots restored from the on-disk cache.
const FileSourceName = "file"

// cacheVersion guards against decoding a file written by an incompatible build.
const cacheVersion = 1

type cacheFile struct {
	Version int
	Network metro.RawNetwork
}

// FileSource reads a raw network previously written by SaveFile. It lets the
// server start when storage is down.
type FileSource struct {
	Path string
}

func (FileSource) Name() string { return FileSourceName }

func (f FileSource) ReadNetwork(ctx context.Context) (metro.RawNetwork, error) {
	return LoadFile(f.Path)
}

// Encode writes raw to w using gob encoding.
func Encode(w io.Writer, raw metro.RawNetwork) error {
	if err := gob.NewEncoder(w).Encode(cacheFile{Version: cacheVersion, Network: raw}); err != nil {
		return fmt.Errorf("snapshot: encode cache: %w", err)
	}
	return nil
}

// Decode reads a raw network written by Encode.
func Decode(r io.Reader) (metro.RawNetwork, error) {
	var cf cacheFile
	if err := gob.NewDecoder(r).Decode(&cf); err != nil {
		return metro.RawNetwork{}, fmt.Errorf("snapshot: decode cache: %w", err)
	}
	if cf.Version != cacheVersion {
		return metro.RawNetwork{}, fmt.Errorf("snapshot: cache version %d, want %d", cf.Version, cacheVersion)
	}
	return cf.Network, nil
}

// SaveFile writes raw to path, replacing any previous file atomically.
func SaveFile(path string, raw metro.RawNetwork) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot: create cache dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a raw network from path.
func LoadFile(path string) (metro.RawNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return metro.RawNetwork{}, fmt.Errorf("snapshot: read cache file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
