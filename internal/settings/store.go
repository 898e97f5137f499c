// Package settings keeps the queue configuration in a JSON file that
// supervisors edit at runtime.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dennisdiepolder/monti/supportdesk/internal/errs"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// FileStore serves the queue configuration from disk. The file is read on
// every call so edits take effect without a restart.
type FileStore struct {
	path   string
	mu     sync.Mutex
	last   types.QueueConfig // last good read, served when the file is corrupt
	logger zerolog.Logger
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		last:   types.DefaultQueueConfig(),
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// QueueConfig returns the stored configuration, or the defaults when the file does not exist
func (s *FileStore) QueueConfig() types.QueueConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

// Save validates cfg and replaces the file atomically
func (s *FileStore) Save(cfg types.QueueConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cfg)
}

// Update applies fn to the current configuration and saves the result. The
// read, change and write happen under one lock, so concurrent updates do not
// overwrite each other. Nothing is written when fn fails.
func (s *FileStore) Update(fn func(*types.QueueConfig) error) (types.QueueConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.current()
	if err := fn(&cfg); err != nil {
		return types.QueueConfig{}, err
	}
	if err := s.write(cfg); err != nil {
		return types.QueueConfig{}, err
	}
	return cfg, nil
}

// current reads the file, falling back to the last good copy. Callers hold mu.
func (s *FileStore) current() types.QueueConfig {
	cfg, err := s.read()
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("failed to read queue settings, using last good copy")
		return s.last
	}
	s.last = cfg
	return cfg
}

// write validates cfg and replaces the file atomically. Callers hold mu.
func (s *FileStore) write(cfg types.QueueConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queue-settings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	s.last = cfg
	s.logger.Info().Str("path", s.path).Msg("queue settings saved")
	return nil
}

// read decodes the file over the defaults so omitted fields keep their default values
func (s *FileStore) read() (types.QueueConfig, error) {
	cfg := types.DefaultQueueConfig()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid settings file: %w", err)
	}
	return cfg, nil
}
