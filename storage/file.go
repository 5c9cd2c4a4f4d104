package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// FileStore implements a record store on the local file system. Records are
// stored one file per (owner, index) under a per-owner directory, so the
// owner's count is the number of record files in its directory.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a new file record store rooted at baseDir, creating
// the directory if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "owners"), 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Put persists the record as a JSON file. The write goes through a temporary
// file and rename so a crash never leaves a half-written record behind.
func (s *FileStore) Put(ctx context.Context, owner common.Address, index uint64, record interfaces.SecretRecord) error {
	recordPath := s.recordPath(owner, index)
	if err := os.MkdirAll(filepath.Dir(recordPath), 0700); err != nil {
		return fmt.Errorf("failed to create owner directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tmpPath := recordPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmpPath, recordPath); err != nil {
		return fmt.Errorf("failed to finalize record: %w", err)
	}

	s.log.Debug("Stored record in file",
		slog.String("path", recordPath),
		slog.Int("size", len(data)))
	return nil
}

// Get retrieves the record at (owner, index). Returns ErrRecordNotFound if
// the record file does not exist.
func (s *FileStore) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	data, err := os.ReadFile(s.recordPath(owner, index))
	if os.IsNotExist(err) {
		return interfaces.SecretRecord{}, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to read record: %w", err)
	}

	var record interfaces.SecretRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// Count returns the number of record files in the owner's directory.
func (s *FileStore) Count(ctx context.Context, owner common.Address) (uint64, error) {
	entries, err := os.ReadDir(s.ownerDir(owner))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list owner directory: %w", err)
	}

	var count uint64
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count, nil
}

// Available checks if the base directory is accessible.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI identifying this store.
func (s *FileStore) LocationURI() string { return s.locationURI }

func (s *FileStore) ownerDir(owner common.Address) string {
	return filepath.Join(s.baseDir, "owners", owner.Hex())
}

func (s *FileStore) recordPath(owner common.Address, index uint64) string {
	return filepath.Join(s.ownerDir(owner), fmt.Sprintf("%012d.json", index))
}
