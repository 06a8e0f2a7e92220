package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmylchreest/xtreamctl/internal/storage"
)

// DefaultFile is the store file name inside the data directory.
const DefaultFile = "servers.json"

// Store reads and writes the server list. Each operation loads, modifies
// and saves the whole list; there is no locking.
type Store struct {
	sandbox *storage.Sandbox
	file    string
	logger  *slog.Logger
}

// New creates a Store backed by file inside sandbox.
func New(sandbox *storage.Sandbox, file string, logger *slog.Logger) *Store {
	if file == "" {
		file = DefaultFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{sandbox: sandbox, file: file, logger: logger}
}

// Path returns the absolute path of the store file.
func (s *Store) Path() string {
	path, err := s.sandbox.ResolvePath(s.file)
	if err != nil {
		return s.file
	}
	return path
}

// Load returns the saved records. A missing file yields an empty list; an
// unreadable or corrupt file also yields an empty list and a warning.
func (s *Store) Load() []ServerRecord {
	data, err := s.sandbox.ReadFile(s.file)
	if errors.Is(err, fs.ErrNotExist) {
		return []ServerRecord{}
	}
	if err != nil {
		s.logger.Warn("failed to read server store",
			slog.String("file", s.file),
			slog.String("error", err.Error()),
		)
		return []ServerRecord{}
	}

	records, err := decode(data)
	if err != nil {
		s.logger.Warn("server store is corrupt, starting empty",
			slog.String("file", s.file),
			slog.String("error", err.Error()),
		)
		return []ServerRecord{}
	}
	return records
}

func decode(data []byte) ([]ServerRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []ServerRecord{}, nil
	}

	var records []ServerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding servers: %w", err)
	}
	if records == nil {
		records = []ServerRecord{}
	}
	for i := range records {
		records[i].normalize()
	}
	return records, nil
}

// Save replaces the store file atomically with records, pretty-printed
// with a two-space indent.
func (s *Store) Save(records []ServerRecord) error {
	if records == nil {
		records = []ServerRecord{}
	}
	for i := range records {
		records[i].normalize()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding servers: %w", err)
	}

	if err := s.sandbox.AtomicWrite(s.file, buf.Bytes()); err != nil {
		return fmt.Errorf("saving servers: %w", err)
	}
	return nil
}
