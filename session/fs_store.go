package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const tempFilePrefix = ".tmp-"

// FileStore keeps one record file per owner inside a directory. File names are the
// path-escaped owner id. Writes go to a temporary file that is renamed into place, so
// a reader never observes a partially written record.
type FileStore struct {
	dir   string
	locks ownerLocks
}

// NewFileStore returns a FileStore rooted at dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session: file store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(ownerID string) (string, error) {
	if ownerID == "" || ownerID == "." || ownerID == ".." {
		return "", ErrInvalidOwner
	}
	name := url.PathEscape(ownerID)
	if strings.HasPrefix(name, tempFilePrefix) || name == "." || name == ".." {
		return "", ErrInvalidOwner
	}
	return filepath.Join(s.dir, name), nil
}

// Get reads the record for ownerID. Missing and corrupt files read as absent.
func (s *FileStore) Get(ctx context.Context, ownerID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	p, err := s.path(ownerID)
	if err != nil {
		return Record{}, false, err
	}
	return s.read(ownerID, p)
}

func (s *FileStore) read(ownerID, p string) (Record, bool, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec, err := DecodeRecord(ownerID, string(raw))
	if err != nil {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Set overwrites the record for rec.OwnerID.
func (s *FileStore) Set(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(rec.OwnerID)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(rec.OwnerID)
	defer unlock()
	return s.write(p, rec)
}

func (s *FileStore) write(p string, rec Record) error {
	tmp, err := os.CreateTemp(s.dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(EncodeRecord(rec)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Remove deletes the record for ownerID. Removing an absent record is a no-op.
func (s *FileStore) Remove(ctx context.Context, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(ownerID)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(ownerID)
	defer unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// List returns every owner id with a record file, skipping in-flight temp files and
// names that do not unescape.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	owners := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempFilePrefix) {
			continue
		}
		owner, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

// CompareAndSwap replaces the record only if its key still equals expectedKey.
// Concurrent swaps in this process are serialized per owner.
func (s *FileStore) CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(ownerID)
	if err != nil {
		return false, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	current, ok, err := s.read(ownerID, p)
	if err != nil {
		return false, err
	}
	if !ok || !current.KeyMatches(expectedKey) {
		return false, nil
	}

	next.OwnerID = ownerID
	if err := s.write(p, next); err != nil {
		return false, err
	}
	return true, nil
}
