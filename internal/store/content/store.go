// Package content implements the local content-addressed tally-sheet store.
package content

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/hash/sha256"
)

// Config captures the store's directory layout.
type Config struct {
	// RawDir holds one canonical file per content digest.
	RawDir string `mapstructure:"raw_dir"`
	// DuplicatesDir holds colliding copies keyed by digest plus timestamp.
	DuplicatesDir string `mapstructure:"duplicates_dir"`
	// ArchivedDir holds files that have been uploaded to object storage.
	ArchivedDir string `mapstructure:"archived_dir"`
}

// Store writes fetched bytes under digest-derived names. Identical content
// maps to exactly one canonical file; collisions are kept in the duplicates
// area, never merged or dropped. Uploaded files move to the archived area so
// the raw area only ever holds work in flight.
type Store struct {
	rawDir  string
	dupDir  string
	archDir string
	logger  *zap.Logger
}

// New creates the directories and returns a Store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.RawDir == "" || cfg.DuplicatesDir == "" || cfg.ArchivedDir == "" {
		return nil, fmt.Errorf("raw, duplicates, and archived directories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{cfg.RawDir, cfg.DuplicatesDir, cfg.ArchivedDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create content dir %s: %w", dir, err)
		}
	}
	return &Store{rawDir: cfg.RawDir, dupDir: cfg.DuplicatesDir, archDir: cfg.ArchivedDir, logger: logger}, nil
}

// Write stores data under the canonical name for digest, or in the duplicates
// area when the canonical file already exists. It returns the name the bytes
// were stored under. Workers in other processes may race on the same digest;
// the rename-based write keeps readers from ever observing a partial file.
func (s *Store) Write(digest string, timestamp string, data []byte) (string, error) {
	if s.Exists(digest) {
		name := sha256.DuplicateName(digest, timestamp)
		if err := atomicWrite(filepath.Join(s.dupDir, name), data); err != nil {
			return "", fmt.Errorf("write duplicate %s: %w", name, err)
		}
		s.logger.Debug("duplicate content retained",
			zap.String("digest", digest),
			zap.String("name", name),
		)
		return name, nil
	}

	name := sha256.CanonicalName(digest)
	if err := atomicWrite(filepath.Join(s.rawDir, name), data); err != nil {
		return "", fmt.Errorf("write canonical %s: %w", name, err)
	}
	return name, nil
}

// Open returns the stored bytes for a name previously returned by Write,
// checking the raw area first, then duplicates, then archived.
func (s *Store) Open(name string) ([]byte, error) {
	for _, dir := range []string{s.rawDir, s.dupDir, s.archDir} {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- names are digest-derived
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open stored file %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("stored file %s: %w", name, os.ErrNotExist)
}

// Archive moves an uploaded file from its live area into the archived area.
// Archiving a file that has already been archived is a no-op.
func (s *Store) Archive(name string) error {
	target := filepath.Join(s.archDir, name)
	for _, dir := range []string{s.rawDir, s.dupDir} {
		src := filepath.Join(dir, name)
		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat stored file %s: %w", name, err)
		}
		if err := os.Rename(src, target); err != nil {
			return fmt.Errorf("archive %s: %w", name, err)
		}
		s.logger.Debug("file archived", zap.String("name", name))
		return nil
	}
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	return fmt.Errorf("archive %s: %w", name, os.ErrNotExist)
}

// Exists reports whether the canonical file for digest is present in either
// the raw or archived area, so content seen before stays deduplicated after
// its canonical file has been uploaded and moved out of raw.
func (s *Store) Exists(digest string) bool {
	name := sha256.CanonicalName(digest)
	for _, dir := range []string{s.rawDir, s.archDir} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// atomicWrite lands data via a temp file and rename in the same directory.
func atomicWrite(target string, data []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
