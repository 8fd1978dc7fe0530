package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// snapshotVersion guards against future format changes.
const snapshotVersion = 1

// snapshot is the on-disk index format. The header makes the file
// self-describing: a load with a different provider or dimension is
// rejected instead of silently producing nonsense similarities.
type snapshot struct {
	Version   int       `json:"version"`
	Provider  string    `json:"provider"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"built_at"`
	Records   []Record  `json:"records"`
}

// Save writes the index to w as a self-describing snapshot.
func Save(ix *Index, w io.Writer) error {
	snap := snapshot{
		Version:   snapshotVersion,
		Provider:  ix.provider,
		Dimension: ix.dimension,
		BuiltAt:   ix.builtAt,
		Records:   ix.records,
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// SaveFile writes the index snapshot to path, replacing any previous
// snapshot atomically via rename.
func SaveFile(ix *Index, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := Save(ix, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot and rebuilds the index. wantProvider and
// wantDimension describe the configured embedding provider; pass ""
// and 0 to accept whatever the snapshot declares. A mismatch fails
// with ErrProviderMismatch or ErrDimensionMismatch; an index built by
// one provider is not queryable through another.
func Load(r io.Reader, wantProvider string, wantDimension int) (*Index, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if wantProvider != "" && snap.Provider != wantProvider {
		return nil, fmt.Errorf("%w: snapshot built with %q, configured %q",
			ErrProviderMismatch, snap.Provider, wantProvider)
	}
	if wantDimension != 0 && snap.Dimension != wantDimension {
		return nil, fmt.Errorf("%w: snapshot has %d dimensions, configured %d",
			ErrDimensionMismatch, snap.Dimension, wantDimension)
	}

	ix := New(snap.Provider, snap.Dimension)
	ix.builtAt = snap.BuiltAt
	for _, rec := range snap.Records {
		if err := ix.Add(rec); err != nil {
			return nil, fmt.Errorf("snapshot record %s: %w", rec.ChunkID, err)
		}
	}
	return ix, nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path, wantProvider string, wantDimension int) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Load(f, wantProvider, wantDimension)
}
