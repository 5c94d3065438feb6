package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// LockfileVersion is the current lockfile format version.
const LockfileVersion = 1

// Lockfile records every vendored definition and its provenance. It is the
// durable output of a resolution run and the input to drift checks.
type Lockfile struct {
	Version     int         `json:"version"`
	GeneratedAt time.Time   `json:"generated_at"`
	Entries     []LockEntry `json:"entries"`
}

// LockEntry is the provenance record of one vendored definition.
type LockEntry struct {
	Definition    string    `json:"definition"`
	Package       string    `json:"package"`
	OriginVersion string    `json:"origin_version"`
	OriginFile    string    `json:"origin_file"`
	OriginRef     string    `json:"origin_ref,omitempty"`
	VendoredAt    time.Time `json:"vendored_at"`
	ContentHash   string    `json:"content_hash"`
	File          string    `json:"file"`
}

// LoadLockfile reads a lockfile from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile '%s': %w", path, err)
	}

	lock := &Lockfile{}
	if err := json.Unmarshal(raw, lock); err != nil {
		return nil, fmt.Errorf("failed to decode lockfile '%s': %w", path, err)
	}

	if lock.Version != LockfileVersion {
		return nil, fmt.Errorf("unsupported lockfile version %d in '%s'", lock.Version, path)
	}

	return lock, nil
}

// Save writes the lockfile with entries in stable order.
func (l *Lockfile) Save(path string) error {
	sort.Slice(l.Entries, func(i, j int) bool {
		if l.Entries[i].Package != l.Entries[j].Package {
			return l.Entries[i].Package < l.Entries[j].Package
		}
		return l.Entries[i].Definition < l.Entries[j].Definition
	})

	raw, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode lockfile: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write lockfile '%s': %w", path, err)
	}
	return nil
}

// Entry looks up the lock entry for a definition of an origin package.
func (l *Lockfile) Entry(pkg, definition string) (LockEntry, bool) {
	for _, e := range l.Entries {
		if e.Package == pkg && e.Definition == definition {
			return e, true
		}
	}
	return LockEntry{}, false
}
