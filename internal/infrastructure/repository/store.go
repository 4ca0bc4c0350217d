package repository

import (
	"NSSaDS/fileshare/internal/domain"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Store struct {
	dir   string
	locks *lockTable
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Store{
		dir:   dir,
		locks: newLockTable(),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) ValidateName(name string) error {
	return domain.ValidateFilename(name)
}

func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), domain.StagingPrefix) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Open returns a reader for name. The name stays read-locked until the
// reader is closed, so an upload of the same name cannot be committed while
// it is being sent.
func (s *Store) Open(name string) (io.ReadCloser, *domain.FileInfo, error) {
	if err := domain.ValidateFilename(name); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.RLock(name)

	file, err := os.Open(s.path(name))
	if err != nil {
		unlock()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		unlock()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !stat.Mode().IsRegular() {
		file.Close()
		unlock()
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}

	info := &domain.FileInfo{
		Name:    name,
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
	}

	return &lockedFile{File: file, release: unlock}, info, nil
}

// Create stages a new upload for name in a hidden file in the store root.
func (s *Store) Create(name string) (domain.Upload, error) {
	if err := domain.ValidateFilename(name); err != nil {
		return nil, err
	}

	stagingPath := s.path(domain.StagingPrefix + uuid.NewString())
	file, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	return &stagedUpload{
		store: s,
		name:  name,
		path:  stagingPath,
		file:  file,
	}, nil
}

// Cleanup removes staging files left behind by an interrupted process.
func (s *Store) Cleanup() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read store directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), domain.StagingPrefix) || entry.IsDir() {
			continue
		}
		if err := os.Remove(s.path(entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove staging file: %w", err)
		}
		removed++
	}

	return removed, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

type lockedFile struct {
	*os.File
	once    sync.Once
	release func()
}

func (f *lockedFile) Close() error {
	err := f.File.Close()
	f.once.Do(f.release)
	return err
}

type stagedUpload struct {
	store *Store
	name  string
	path  string
	file  *os.File
	done  bool
}

func (u *stagedUpload) Write(p []byte) (int, error) {
	return u.file.Write(p)
}

func (u *stagedUpload) Commit() error {
	if u.done {
		return fmt.Errorf("upload of %s already finished", u.name)
	}
	u.done = true

	if err := u.file.Sync(); err != nil {
		u.file.Close()
		os.Remove(u.path)
		return fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err := u.file.Close(); err != nil {
		os.Remove(u.path)
		return fmt.Errorf("failed to close staging file: %w", err)
	}

	unlock := u.store.locks.Lock(u.name)
	err := os.Rename(u.path, u.store.path(u.name))
	unlock()

	if err != nil {
		os.Remove(u.path)
		return fmt.Errorf("failed to commit upload: %w", err)
	}

	return nil
}

func (u *stagedUpload) Abort() error {
	if u.done {
		return nil
	}
	u.done = true

	u.file.Close()
	if err := os.Remove(u.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove staging file: %w", err)
	}

	return nil
}
