package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/sirupsen/logrus"
)

const (
	// Directory permissions.
	stateDirPerm = 0o750
	// File permissions.
	stateFilePerm = 0o600
	// Retry configuration for disk writes.
	maxRetries     = 3
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 1 * time.Second
)

// FileStore is a Store persisted as a single JSON document on disk.
// Every Set or Remove rewrites the whole document through a temp file and rename.
type FileStore struct {
	path  string
	data  map[string]string
	quota int
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileQuota limits the total size of keys and values in bytes.
func WithFileQuota(bytes int) FileOption {
	return func(s *FileStore) { s.quota = bytes }
}

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(log logrus.FieldLogger) FileOption {
	return func(s *FileStore) { s.log = log }
}

// OpenFile opens or creates the store document at path.
// A corrupt document is moved aside and the store starts empty.
func OpenFile(ctx context.Context, path string, opts ...FileOption) (*FileStore, error) {
	start := time.Now()
	s := &FileStore{
		path: path,
		data: make(map[string]string),
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "kvstore", "path": path})

	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	raw, err := retry.DoWithData(func() ([]byte, error) {
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return b, err
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff), retry.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			corrupt := path + ".corrupt"
			s.log.WithError(err).Warnf("State file is corrupt, moving it to %s and starting empty", corrupt)
			if err := os.Rename(path, corrupt); err != nil {
				s.log.WithError(err).Warn("Failed to move corrupt state file aside")
			}
			s.data = make(map[string]string)
		}
	}

	s.log.WithField("keys", len(s.data)).Debugf("State file loaded in %v", time.Since(start))
	return s, nil
}

// Path returns the location of the backing document.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

// Set stores value under key and flushes the document.
func (s *FileStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 && s.usage(key, value) > s.quota {
		return ErrQuotaExceeded
	}

	prev, existed := s.data[key]
	s.data[key] = string(value)
	if err := s.flush(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Remove deletes key and flushes the document.
func (s *FileStore) Remove(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	if !existed {
		return nil
	}
	delete(s.data, key)
	if err := s.flush(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

// Keys returns every stored key in sorted order.
func (s *FileStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.data)
}

// Clear removes every key and flushes an empty document.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data
	s.data = make(map[string]string)
	if err := s.flush(); err != nil {
		s.data = prev
		return err
	}
	s.log.Info("State cleared")
	return nil
}

func (s *FileStore) usage(key string, value []byte) int {
	total := len(key) + len(value)
	for k, v := range s.data {
		if k != key {
			total += len(k) + len(v)
		}
	}
	return total
}

// flush writes the whole document. Callers hold s.mu.
func (s *FileStore) flush() error {
	doc, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	err = retry.Do(func() error {
		return writeAtomic(s.path, doc)
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	if err != nil {
		s.log.WithError(err).Warn("Failed to flush state file")
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // already failing
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	if err := os.Chmod(tmpName, stateFilePerm); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	return os.Rename(tmpName, path)
}
