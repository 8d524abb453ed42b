package filestore

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

func (s *Store) cardPath(name string) string {
	return filepath.Join(s.root, name+Ext)
}

// tmpPath does not end in Ext so listings never pick up partial writes.
func (s *Store) tmpPath(name string) string {
	return filepath.Join(s.root, "."+name+Ext+".tmp")
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func writeFileAtomic(fs afero.Fs, tmp, path string, data []byte) error {
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}
