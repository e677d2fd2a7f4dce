package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is the object storage the catalog and order workflow write product
// images to, addressed by relative path strings.
type Store interface {
	Exists(path string) bool
	Save(path string, r io.Reader) error
	Copy(src, dst string) error
	Delete(path string) error
	List(prefix string) ([]string, error)
}

// DiskStore keeps files under a single root directory on local disk.
type DiskStore struct {
	Root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{Root: root}, nil
}

func (s *DiskStore) abs(path string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path))
}

func (s *DiskStore) Exists(path string) bool {
	info, err := os.Stat(s.abs(path))
	return err == nil && !info.IsDir()
}

func (s *DiskStore) Save(path string, r io.Reader) error {
	dst := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (s *DiskStore) Copy(src, dst string) error {
	in, err := os.Open(s.abs(src))
	if err != nil {
		return err
	}
	defer in.Close()
	return s.Save(dst, in)
}

func (s *DiskStore) Delete(path string) error {
	err := os.Remove(s.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskStore) List(prefix string) ([]string, error) {
	root := s.abs(prefix)
	var out []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		out = append(out, strings.ReplaceAll(rel, string(filepath.Separator), "/"))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return out, err
}
