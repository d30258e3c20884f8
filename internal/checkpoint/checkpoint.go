// Package checkpoint persists harvest state as CSV so interrupted runs can
// resume and external tooling can inspect progress with ordinary tools.
package checkpoint

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// header is the fixed column set of every checkpoint file.
var header = []string{"URL", "STATUS", "UPLOADED", "DATETIME", "FILE_NAMES", "HASHES"}

// Store reads and writes ActaSet checkpoints. Files are written atomically so
// a crash mid-save never truncates the previous checkpoint.
type Store struct {
	logger *zap.Logger
}

// New returns a checkpoint Store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Save writes the set to path, creating parent directories as needed.
func (s *Store) Save(path string, set harvest.ActaSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, set); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	s.logger.Info("checkpoint saved", zap.String("path", path), zap.Int("actas", len(set)))
	return nil
}

// Load reads a checkpoint from path.
func (s *Store) Load(path string) (harvest.ActaSet, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	set, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	s.logger.Info("checkpoint loaded", zap.String("path", path), zap.Int("actas", len(set)))
	return set, nil
}

// Encode writes the set as CSV rows to w. Sequence columns join their elements
// with single spaces; the names themselves never contain spaces.
func Encode(w io.Writer, set harvest.ActaSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write checkpoint header: %w", err)
	}
	for _, a := range set {
		row := []string{
			a.URL,
			string(a.Status),
			strconv.FormatBool(a.Uploaded),
			a.Timestamp,
			strings.Join(a.FileNames, " "),
			strings.Join(a.Hashes, " "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write checkpoint row for %s: %w", a.URL, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	return nil
}

// Decode parses CSV rows from r into an ActaSet. Unknown status strings decode
// to StatusError so the rows are reprocessed instead of rejected.
func Decode(r io.Reader) (harvest.ActaSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read checkpoint rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("checkpoint is empty")
	}
	if !equalHeader(rows[0]) {
		return nil, fmt.Errorf("unexpected checkpoint header %v", rows[0])
	}

	set := make(harvest.ActaSet, 0, len(rows)-1)
	for i, row := range rows[1:] {
		uploaded, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse UPLOADED %q: %w", i+1, row[2], err)
		}
		set = append(set, harvest.Acta{
			URL:       row[0],
			Status:    harvest.ParseStatus(row[1]),
			Uploaded:  uploaded,
			Timestamp: row[3],
			FileNames: splitSequence(row[4]),
			Hashes:    splitSequence(row[5]),
		})
	}
	return set, nil
}

func equalHeader(row []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i, col := range header {
		if row[i] != col {
			return false
		}
	}
	return true
}

// splitSequence parses a space-joined sequence column. An empty column means
// an empty sequence, not a single empty element.
func splitSequence(col string) []string {
	if col == "" {
		return nil
	}
	return strings.Fields(col)
}
