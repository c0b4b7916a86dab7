package persistence // import "github.com/joincivil/civil-debate-processor/pkg/persistence"

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	localDirPerm  = 0750
	localFilePerm = 0640
)

// NewLocalDiskStore creates a state store rooted at baseDir, creating the
// directory if needed
func NewLocalDiskStore(baseDir string) (*LocalDiskStore, error) {
	if baseDir == "" {
		return nil, errors.New("local disk store requires a base directory")
	}
	err := os.MkdirAll(baseDir, localDirPerm)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating state dir %v", baseDir)
	}
	return &LocalDiskStore{baseDir: baseDir}, nil
}

// LocalDiskStore keeps each document as a file under a base directory
type LocalDiskStore struct {
	baseDir string
}

// BaseDir returns the directory documents are stored in
func (l *LocalDiskStore) BaseDir() string {
	return l.baseDir
}

// Read returns the document at key
func (l *LocalDiskStore) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // nolint: gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "error reading %v", path)
	}
	return data, nil
}

// Write replaces the document at key. The file is written to a temp file
// and renamed so readers never see a partial document.
func (l *LocalDiskStore) Write(ctx context.Context, key string, doc []byte) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, localDirPerm)
	if err != nil {
		return errors.Wrapf(err, "error creating dir %v", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "error creating temp file")
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(doc)
	if err == nil {
		err = tmp.Chmod(localFilePerm)
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName) // nolint: gosec
		return errors.Wrapf(err, "error writing %v", path)
	}
	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName) // nolint: gosec
		return errors.Wrapf(err, "error replacing %v", path)
	}
	return nil
}

// Keys returns the stored keys that start with prefix, in lexical order.
// Temp files from unfinished writes are skipped.
func (l *LocalDiskStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.WalkDir(l.baseDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing %v", l.baseDir)
	}
	return keys, nil
}

func (l *LocalDiskStore) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(cleaned) || cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("invalid state key: %q", key)
	}
	return filepath.Join(l.baseDir, cleaned), nil
}
